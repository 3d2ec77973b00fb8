// Package domain contains the calendar feed model. Feed syncing itself is an
// external collaborator; the engine only uses feeds to scope rematch passes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type CalendarFeed struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID      snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	FeedURL      string       `json:"feed_url" gorm:"type:text;not null"`
	LastSyncedAt *time.Time   `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CalendarFeed) TableName() string { return "calendar_feeds" }
