package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() eventdomain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter eventdomain.ListFilter) ([]eventdomain.Event, error) {
	stmt := db.WithContext(ctx).Where("owner_id = ?", filter.OwnerID)
	if filter.BillingEntityID != nil {
		stmt = stmt.Where("billing_entity_id = ?", *filter.BillingEntityID)
	}
	if filter.Unbilled {
		stmt = stmt.Where("invoice_id IS NULL")
	}
	if filter.From != nil {
		stmt = stmt.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("start_time < ?", *filter.To)
	}

	var events []eventdomain.Event
	err := stmt.Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]eventdomain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var events []eventdomain.Event
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&events).Error
	return events, err
}

func (r *repo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]eventdomain.Event, error) {
	var events []eventdomain.Event
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("start_time ASC").
		Find(&events).Error
	return events, err
}

func (r *repo) FindUnassignedIDsByLocation(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pattern string) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ?", ownerID).
		Where("billing_entity_id IS NULL").
		Where("invoice_id IS NULL").
		Where("manually_assigned = ?", false).
		Where("LOWER(location) LIKE ?", "%"+strings.ToLower(pattern)+"%").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repo) ClaimForEntity(ctx context.Context, db *gorm.DB, ownerID, entityID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	// Conditional write: a row claimed by a concurrent pass is skipped, so a
	// lost race degrades to a no-op instead of a double assignment.
	result := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Where("billing_entity_id IS NULL").
		Where("invoice_id IS NULL").
		Where("manually_assigned = ?", false).
		Updates(map[string]any{
			"billing_entity_id": entityID,
			"updated_at":        time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repo) ReassignEntity(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, entityID *snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ? AND id = ?", ownerID, eventID).
		Where("invoice_id IS NULL").
		Where("manually_assigned = ?", false).
		Updates(map[string]any{
			"billing_entity_id": entityID,
			"updated_at":        time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repo) SetManualAssignment(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, entityID *snowflake.ID) (bool, error) {
	manual := entityID != nil
	result := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ? AND id = ?", ownerID, eventID).
		Where("invoice_id IS NULL").
		Updates(map[string]any{
			"billing_entity_id": entityID,
			"manually_assigned": manual,
			"updated_at":        time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repo) LinkToInvoice(ctx context.Context, db *gorm.DB, ownerID, eventID, entityID, invoiceID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ? AND id = ?", ownerID, eventID).
		Where("billing_entity_id = ?", entityID).
		Where("invoice_id IS NULL").
		Updates(map[string]any{
			"invoice_id": invoiceID,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repo) UnlinkFromInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("invoice_id = ? AND id IN ?", invoiceID, ids).
		Updates(map[string]any{
			"invoice_id": nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) UnlinkAllFromInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"invoice_id": nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) ListRematchable(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, scope eventdomain.RematchScope) ([]eventdomain.Event, error) {
	stmt := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Where("invoice_id IS NULL")
	if scope.FeedID != nil {
		stmt = stmt.Where("feed_id = ?", *scope.FeedID)
	}
	if len(scope.EventIDs) > 0 {
		stmt = stmt.Where("id IN ?", scope.EventIDs)
	}

	var events []eventdomain.Event
	err := stmt.Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *repo) UpdateTags(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, tags datatypes.JSON) (bool, error) {
	result := db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Where("owner_id = ? AND id = ?", ownerID, eventID).
		Where("invoice_id IS NULL").
		Updates(map[string]any{
			"tags":       tags,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}
