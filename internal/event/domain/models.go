// Package domain contains persistence models for imported calendar events.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event is one imported calendar occurrence. Events are created by the
// calendar import (external to this engine) and only ever annotated here:
// the matcher sets billing_entity_id, the aggregator sets invoice_id.
type Event struct {
	ID      snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index"`

	// ExternalUID is the source calendar's event identifier.
	ExternalUID string        `json:"external_uid" gorm:"type:text;index"`
	FeedID      *snowflake.ID `json:"feed_id,omitempty" gorm:"index"`

	Title     string    `json:"title" gorm:"type:text"`
	StartTime time.Time `json:"start_time" gorm:"not null;index"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`
	Location  string    `json:"location" gorm:"type:text"`

	StudentsStudio int `json:"students_studio" gorm:"not null;default:0"`
	StudentsOnline int `json:"students_online" gorm:"not null;default:0"`

	BillingEntityID *snowflake.ID `json:"billing_entity_id,omitempty" gorm:"index"`
	InvoiceID       *snowflake.ID `json:"invoice_id,omitempty" gorm:"index"`

	// ManuallyAssigned marks a human-set billing_entity_id that matching and
	// rematching must never overwrite.
	ManuallyAssigned bool `json:"manually_assigned" gorm:"not null;default:false"`

	Tags datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }

// TagList decodes the tags column.
func (e *Event) TagList() ([]string, error) {
	if len(e.Tags) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(e.Tags, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
