package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	matcherdomain "github.com/studiobill/studiobill/internal/matcher/domain"
	"github.com/studiobill/studiobill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	EntityRepo entitydomain.Repository
	EventRepo  eventdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	entityRepo entitydomain.Repository
	eventRepo  eventdomain.Repository
	metrics    *metrics.Metrics
}

func New(p ServiceParam) matcherdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("matcher.service"),

		entityRepo: p.EntityRepo,
		eventRepo:  p.EventRepo,
		metrics:    p.Metrics,
	}
}

// Match walks the owner's entities in claim order. Per-pattern failures are
// logged and skipped so one broken pattern cannot sink the whole pass; the
// returned counts reflect what was actually claimed.
func (s *Service) Match(ctx context.Context, ownerID snowflake.ID) (matcherdomain.MatchResult, error) {
	if ownerID == 0 {
		return matcherdomain.MatchResult{}, matcherdomain.ErrInvalidOwner
	}

	entities, err := s.entityRepo.ListForMatching(ctx, s.db, ownerID)
	if err != nil {
		return matcherdomain.MatchResult{}, err
	}

	result := matcherdomain.MatchResult{PerEntity: make([]matcherdomain.EntityMatchCount, 0, len(entities))}
	claimed := make(map[snowflake.ID]bool)

	for _, entity := range entities {
		patterns, err := entity.Patterns()
		if err != nil {
			s.log.Warn("skipping entity with unreadable patterns",
				zap.String("entity_id", entity.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if len(patterns) == 0 {
			continue
		}

		candidates := s.collectCandidates(ctx, ownerID, entity.ID, patterns, claimed)
		if len(candidates) == 0 {
			result.PerEntity = append(result.PerEntity, matcherdomain.EntityMatchCount{
				EntityID: entity.ID.String(),
			})
			continue
		}

		count, err := s.eventRepo.ClaimForEntity(ctx, s.db, ownerID, entity.ID, candidates)
		if err != nil {
			s.log.Warn("claim failed, continuing with next entity",
				zap.String("entity_id", entity.ID.String()),
				zap.Error(err),
			)
			result.PerEntity = append(result.PerEntity, matcherdomain.EntityMatchCount{
				EntityID: entity.ID.String(),
			})
			continue
		}

		// Remove all candidates from the pool, not only the claimed ones: a
		// row this entity lost in a race is taken either way.
		for _, id := range candidates {
			claimed[id] = true
		}

		result.MatchedCount += int(count)
		result.PerEntity = append(result.PerEntity, matcherdomain.EntityMatchCount{
			EntityID: entity.ID.String(),
			Count:    int(count),
		})
	}

	s.metrics.RecordEventsMatched(ctx, int64(result.MatchedCount))
	s.log.Info("matcher pass finished",
		zap.String("owner_id", ownerID.String()),
		zap.Int("matched", result.MatchedCount),
		zap.Int("entities", len(entities)),
	)
	return result, nil
}

// collectCandidates unions the pattern hits for one entity, deduplicated and
// minus events already claimed earlier in this pass.
func (s *Service) collectCandidates(
	ctx context.Context,
	ownerID, entityID snowflake.ID,
	patterns []string,
	claimed map[snowflake.ID]bool,
) []snowflake.ID {
	seen := make(map[snowflake.ID]bool)
	var candidates []snowflake.ID

	for _, pattern := range patterns {
		ids, err := s.eventRepo.FindUnassignedIDsByLocation(ctx, s.db, ownerID, pattern)
		if err != nil {
			s.log.Warn("pattern query failed, continuing with remaining patterns",
				zap.String("entity_id", entityID.String()),
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			continue
		}
		for _, id := range ids {
			if seen[id] || claimed[id] {
				continue
			}
			seen[id] = true
			candidates = append(candidates, id)
		}
	}
	return candidates
}
