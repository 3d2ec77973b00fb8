// Package domain contains keyword tagging rules applied to imported events.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TagRule tags events whose location or title contains Keyword
// (case-insensitive). Rules are re-applied during rematch passes.
type TagRule struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID   snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index"`
	Keyword   string       `json:"keyword" gorm:"type:text;not null"`
	Tag       string       `json:"tag" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TagRule) TableName() string { return "tag_rules" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *TagRule) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]TagRule, error)
}

var (
	ErrInvalidKeyword = errors.New("invalid_keyword")
	ErrInvalidTag     = errors.New("invalid_tag")
	ErrInvalidID      = errors.New("invalid_id")
)
