package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  entitydomain.Repository
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	repo  entitydomain.Repository
}

func New(p ServiceParam) entitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingentity.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req entitydomain.CreateRequest) (*entitydomain.BillingEntity, error) {
	if req.OwnerID == 0 {
		return nil, entitydomain.ErrInvalidOwner
	}
	kind := entitydomain.EntityKind(strings.TrimSpace(req.Kind))
	if kind != entitydomain.EntityKindStudio && kind != entitydomain.EntityKindTeacher {
		return nil, entitydomain.ErrInvalidKind
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, entitydomain.ErrInvalidName
	}
	if req.RateConfig == nil {
		return nil, entitydomain.ErrMissingRateConfig
	}
	if err := req.RateConfig.Validate(); err != nil {
		return nil, err
	}

	rateJSON, err := json.Marshal(req.RateConfig)
	if err != nil {
		return nil, err
	}
	patternsJSON, err := json.Marshal(entitydomain.NormalizePatterns(req.LocationMatch))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entity := &entitydomain.BillingEntity{
		ID:               s.genID.Generate(),
		OwnerID:          req.OwnerID,
		Kind:             kind,
		Name:             name,
		LocationMatch:    datatypes.JSON(patternsJSON),
		RateConfig:       datatypes.JSON(rateJSON),
		RecipientName:    strings.TrimSpace(req.RecipientName),
		RecipientEmail:   strings.TrimSpace(req.RecipientEmail),
		RecipientAddress: strings.TrimSpace(req.RecipientAddress),
		Currency:         normalizeCurrency(req.Currency),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.MatchPriority != nil {
		entity.MatchPriority = *req.MatchPriority
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}

	s.log.Info("billing entity created",
		zap.String("entity_id", entity.ID.String()),
		zap.String("kind", string(kind)),
	)
	return entity, nil
}

func (s *Service) Update(ctx context.Context, req entitydomain.UpdateRequest) (*entitydomain.BillingEntity, error) {
	if req.OwnerID == 0 {
		return nil, entitydomain.ErrInvalidOwner
	}
	id, err := entitydomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, entitydomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, req.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entitydomain.ErrInvalidName
		}
		entity.Name = name
	}
	if req.LocationMatch != nil {
		patternsJSON, err := json.Marshal(entitydomain.NormalizePatterns(req.LocationMatch))
		if err != nil {
			return nil, err
		}
		entity.LocationMatch = datatypes.JSON(patternsJSON)
	}
	if req.RateConfig != nil {
		if err := req.RateConfig.Validate(); err != nil {
			return nil, err
		}
		rateJSON, err := json.Marshal(req.RateConfig)
		if err != nil {
			return nil, err
		}
		entity.RateConfig = datatypes.JSON(rateJSON)
	}
	if req.MatchPriority != nil {
		entity.MatchPriority = *req.MatchPriority
	}
	if req.RecipientName != nil {
		entity.RecipientName = strings.TrimSpace(*req.RecipientName)
	}
	if req.RecipientEmail != nil {
		entity.RecipientEmail = strings.TrimSpace(*req.RecipientEmail)
	}
	if req.RecipientAddress != nil {
		entity.RecipientAddress = strings.TrimSpace(*req.RecipientAddress)
	}
	if req.Currency != nil {
		entity.Currency = normalizeCurrency(*req.Currency)
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]entitydomain.BillingEntity, error) {
	if ownerID == 0 {
		return nil, entitydomain.ErrInvalidOwner
	}
	return s.repo.List(ctx, s.db, ownerID)
}

func (s *Service) GetByID(ctx context.Context, ownerID snowflake.ID, id string) (*entitydomain.BillingEntity, error) {
	if ownerID == 0 {
		return nil, entitydomain.ErrInvalidOwner
	}
	entityID, err := entitydomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, entitydomain.ErrInvalidID
	}
	entity, err := s.repo.FindByID(ctx, s.db, ownerID, entityID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, entitydomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) Delete(ctx context.Context, ownerID snowflake.ID, id string) error {
	if ownerID == 0 {
		return entitydomain.ErrInvalidOwner
	}
	entityID, err := entitydomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return entitydomain.ErrInvalidID
	}
	return s.repo.Delete(ctx, s.db, ownerID, entityID)
}

func normalizeCurrency(raw string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return "EUR"
	}
	return currency
}
