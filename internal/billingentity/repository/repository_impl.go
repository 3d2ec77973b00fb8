package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() entitydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entity *entitydomain.BillingEntity) error {
	return db.WithContext(ctx).Create(entity).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, entity *entitydomain.BillingEntity) error {
	return db.WithContext(ctx).
		Model(&entitydomain.BillingEntity{}).
		Where("owner_id = ? AND id = ?", entity.OwnerID, entity.ID).
		Updates(map[string]any{
			"name":              entity.Name,
			"location_match":    entity.LocationMatch,
			"rate_config":       entity.RateConfig,
			"match_priority":    entity.MatchPriority,
			"recipient_name":    entity.RecipientName,
			"recipient_email":   entity.RecipientEmail,
			"recipient_address": entity.RecipientAddress,
			"currency":          entity.Currency,
			"updated_at":        entity.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&entitydomain.BillingEntity{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*entitydomain.BillingEntity, error) {
	var entity entitydomain.BillingEntity
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&entity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]entitydomain.BillingEntity, error) {
	var entities []entitydomain.BillingEntity
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&entities).Error
	return entities, err
}

func (r *repo) ListForMatching(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]entitydomain.BillingEntity, error) {
	var entities []entitydomain.BillingEntity
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("match_priority ASC, created_at ASC, id ASC").
		Find(&entities).Error
	return entities, err
}
