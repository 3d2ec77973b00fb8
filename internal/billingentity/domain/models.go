// Package domain contains persistence models for billing entities.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EntityKind distinguishes studios from substitute teachers.
type EntityKind string

const (
	EntityKindStudio  EntityKind = "studio"
	EntityKindTeacher EntityKind = "teacher"
)

// BillingEntity is a studio or teacher that classes are billed against.
type BillingEntity struct {
	ID      snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index"`
	Kind    EntityKind   `json:"kind" gorm:"type:text;not null;default:'studio'"`
	Name    string       `json:"name" gorm:"type:text;not null"`

	// LocationMatch holds the ordered pattern strings used by the matcher,
	// stored as a JSON array. Entities with no patterns are skipped.
	LocationMatch datatypes.JSON `json:"location_match" gorm:"type:jsonb"`

	// RateConfig holds the serialized rate configuration (tagged union).
	RateConfig datatypes.JSON `json:"rate_config" gorm:"type:jsonb"`

	// MatchPriority orders entities during a matcher pass; lower claims first.
	MatchPriority int `json:"match_priority" gorm:"not null;default:0"`

	RecipientName    string `json:"recipient_name" gorm:"type:text"`
	RecipientEmail   string `json:"recipient_email" gorm:"type:text"`
	RecipientAddress string `json:"recipient_address" gorm:"type:text"`
	Currency         string `json:"currency" gorm:"type:text;not null;default:'EUR'"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingEntity) TableName() string { return "billing_entities" }

// Patterns decodes the location_match column. Patterns are stored trimmed
// and deduplicated; normalization runs again on read for rows written
// before that rule existed.
func (e *BillingEntity) Patterns() ([]string, error) {
	if len(e.LocationMatch) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(e.LocationMatch, &raw); err != nil {
		return nil, err
	}
	return NormalizePatterns(raw), nil
}

// ParsedRateConfig decodes the rate_config column without validating it.
func (e *BillingEntity) ParsedRateConfig() (RateConfig, error) {
	var cfg RateConfig
	if len(e.RateConfig) == 0 {
		return cfg, ErrMissingRateConfig
	}
	if err := json.Unmarshal(e.RateConfig, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NormalizePatterns trims, drops empties and deduplicates while keeping order.
func NormalizePatterns(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
