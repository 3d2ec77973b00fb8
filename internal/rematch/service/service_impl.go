package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	"github.com/studiobill/studiobill/internal/lock"
	"github.com/studiobill/studiobill/internal/observability/metrics"
	rematchdomain "github.com/studiobill/studiobill/internal/rematch/domain"
	tagruledomain "github.com/studiobill/studiobill/internal/tagrule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Locker      *lock.Locker `optional:"true"`
	EntityRepo  entitydomain.Repository
	EventRepo   eventdomain.Repository
	TagRuleRepo tagruledomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	locker      *lock.Locker
	entityRepo  entitydomain.Repository
	eventRepo   eventdomain.Repository
	tagRuleRepo tagruledomain.Repository
	metrics     *metrics.Metrics
}

func New(p ServiceParam) rematchdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("rematch.service"),

		locker:      p.Locker,
		entityRepo:  p.EntityRepo,
		eventRepo:   p.EventRepo,
		tagRuleRepo: p.TagRuleRepo,
		metrics:     p.Metrics,
	}
}

// entityPatterns is one entity with its decoded, normalized patterns, in
// claim order.
type entityPatterns struct {
	id       snowflake.ID
	patterns []string
}

// Run re-derives tags and entity assignments for the in-scope events. The
// pass is idempotent: running it twice over unchanged configuration reports
// zero updates on the second run.
func (s *Service) Run(ctx context.Context, req rematchdomain.Request) (rematchdomain.Result, error) {
	if req.OwnerID == 0 {
		return rematchdomain.Result{}, rematchdomain.ErrInvalidOwner
	}
	if req.Scope.FeedID != nil && len(req.Scope.EventIDs) > 0 {
		return rematchdomain.Result{}, rematchdomain.ErrInvalidScope
	}
	if !req.RematchTags && !req.RematchEntities {
		req.RematchTags = true
		req.RematchEntities = true
	}

	lockKey := "rematch:" + req.OwnerID.String()
	token, acquired, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return rematchdomain.Result{}, err
	}
	if !acquired {
		return rematchdomain.Result{}, rematchdomain.ErrRematchInProgress
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey, token); err != nil {
			s.log.Warn("failed to release rematch lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	events, err := s.eventRepo.ListRematchable(ctx, s.db, req.OwnerID, req.Scope)
	if err != nil {
		return rematchdomain.Result{}, err
	}

	var rules []tagruledomain.TagRule
	if req.RematchTags {
		rules, err = s.tagRuleRepo.List(ctx, s.db, req.OwnerID)
		if err != nil {
			return rematchdomain.Result{}, err
		}
	}

	var entities []entityPatterns
	if req.RematchEntities {
		entities, err = s.loadEntityPatterns(ctx, req.OwnerID)
		if err != nil {
			return rematchdomain.Result{}, err
		}
	}

	result := rematchdomain.Result{TotalProcessed: len(events)}
	for i := range events {
		ev := &events[i]

		// Manual assignments are owner decisions; the pass leaves those
		// events entirely untouched, tags included.
		if ev.ManuallyAssigned {
			continue
		}

		changed := false

		if req.RematchTags {
			updated, err := s.retag(ctx, ev, rules)
			if err != nil {
				s.log.Warn("retag failed, skipping event",
					zap.String("event_id", ev.ID.String()),
					zap.Error(err),
				)
			} else if updated {
				changed = true
			}
		}

		if req.RematchEntities {
			updated, err := s.reassign(ctx, ev, entities)
			if err != nil {
				s.log.Warn("reassign failed, skipping event",
					zap.String("event_id", ev.ID.String()),
					zap.Error(err),
				)
			} else if updated {
				changed = true
			}
		}

		if changed {
			result.UpdatedCount++
		}
	}

	s.metrics.RecordRematchRun(ctx, int64(result.UpdatedCount))
	s.log.Info("rematch pass finished",
		zap.String("owner_id", req.OwnerID.String()),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("updated", result.UpdatedCount),
	)
	return result, nil
}

// retag recomputes the event's tags from the keyword rules and writes them
// only when the resulting sorted set differs from what is stored.
func (s *Service) retag(ctx context.Context, ev *eventdomain.Event, rules []tagruledomain.TagRule) (bool, error) {
	desired := deriveTags(ev, rules)
	current, err := ev.TagList()
	if err != nil {
		// Unreadable tags column; rewrite it from the rules.
		current = nil
	}
	if equalTags(current, desired) {
		return false, nil
	}

	var raw datatypes.JSON
	if len(desired) > 0 {
		encoded, err := json.Marshal(desired)
		if err != nil {
			return false, err
		}
		raw = datatypes.JSON(encoded)
	}
	updated, err := s.eventRepo.UpdateTags(ctx, s.db, ev.OwnerID, ev.ID, raw)
	if err != nil {
		return false, err
	}
	if updated {
		ev.Tags = raw
	}
	return updated, nil
}

// reassign applies first-match-wins over the entities in claim order and
// moves the assignment only when the winner differs from the current one.
// Events that no longer match anything are returned to the unassigned pool.
func (s *Service) reassign(ctx context.Context, ev *eventdomain.Event, entities []entityPatterns) (bool, error) {
	winner := matchEntity(ev.Location, entities)

	current := ev.BillingEntityID
	switch {
	case winner == nil && current == nil:
		return false, nil
	case winner != nil && current != nil && *winner == *current:
		return false, nil
	}

	updated, err := s.eventRepo.ReassignEntity(ctx, s.db, ev.OwnerID, ev.ID, winner)
	if err != nil {
		return false, err
	}
	if updated {
		ev.BillingEntityID = winner
	}
	return updated, nil
}

func (s *Service) loadEntityPatterns(ctx context.Context, ownerID snowflake.ID) ([]entityPatterns, error) {
	list, err := s.entityRepo.ListForMatching(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]entityPatterns, 0, len(list))
	for _, entity := range list {
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
		out = append(out, entityPatterns{id: entity.ID, patterns: patterns})
	}
	return out, nil
}

// matchEntity returns the id of the first entity with a pattern contained in
// the location, or nil when nothing matches.
func matchEntity(location string, entities []entityPatterns) *snowflake.ID {
	haystack := strings.ToLower(location)
	for _, entity := range entities {
		for _, pattern := range entity.patterns {
			if strings.Contains(haystack, strings.ToLower(pattern)) {
				id := entity.id
				return &id
			}
		}
	}
	return nil
}

// deriveTags collects the tags of every rule whose keyword appears in the
// event's location or title, deduplicated and sorted.
func deriveTags(ev *eventdomain.Event, rules []tagruledomain.TagRule) []string {
	haystack := strings.ToLower(ev.Location + " " + ev.Title)

	seen := make(map[string]bool)
	var tags []string
	for _, rule := range rules {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" || !strings.Contains(haystack, keyword) {
			continue
		}
		tag := strings.TrimSpace(rule.Tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sorted := append([]string(nil), a...)
	sort.Strings(sorted)
	for i := range sorted {
		if sorted[i] != b[i] {
			return false
		}
	}
	return true
}
