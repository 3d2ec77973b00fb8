package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entity *BillingEntity) error
	Update(ctx context.Context, db *gorm.DB, entity *BillingEntity) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*BillingEntity, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]BillingEntity, error)

	// ListForMatching returns the owner's entities in claim order:
	// match_priority ASC, created_at ASC, id ASC. The ordering is part of the
	// matcher contract; first entity in this slice claims first.
	ListForMatching(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]BillingEntity, error)
}
