package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo eventdomain.Repository
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	repo eventdomain.Repository
}

func New(p ServiceParam) eventdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("event.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, filter eventdomain.ListFilter) ([]eventdomain.Event, error) {
	if filter.OwnerID == 0 {
		return nil, eventdomain.ErrInvalidOwner
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) AssignManually(ctx context.Context, ownerID snowflake.ID, eventID string, entityID string) (*eventdomain.Event, error) {
	if ownerID == 0 {
		return nil, eventdomain.ErrInvalidOwner
	}
	id, err := snowflake.ParseString(strings.TrimSpace(eventID))
	if err != nil {
		return nil, eventdomain.ErrInvalidID
	}

	var target *snowflake.ID
	if trimmed := strings.TrimSpace(entityID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, eventdomain.ErrInvalidID
		}
		target = &parsed
	}

	updated, err := s.repo.SetManualAssignment(ctx, s.db, ownerID, id, target)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Either the event does not exist or it is frozen by an invoice.
		events, err := s.repo.FindByIDs(ctx, s.db, ownerID, []snowflake.ID{id})
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return nil, eventdomain.ErrNotFound
		}
		return nil, eventdomain.ErrEventBilled
	}

	events, err := s.repo.FindByIDs(ctx, s.db, ownerID, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, eventdomain.ErrNotFound
	}
	return &events[0], nil
}
