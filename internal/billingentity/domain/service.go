package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BillingEntity, error)
	Update(ctx context.Context, req UpdateRequest) (*BillingEntity, error)
	List(ctx context.Context, ownerID snowflake.ID) ([]BillingEntity, error)
	GetByID(ctx context.Context, ownerID snowflake.ID, id string) (*BillingEntity, error)
	Delete(ctx context.Context, ownerID snowflake.ID, id string) error
}

type CreateRequest struct {
	OwnerID          snowflake.ID `json:"-"`
	Kind             string       `json:"kind"`
	Name             string       `json:"name"`
	LocationMatch    []string     `json:"location_match"`
	RateConfig       *RateConfig  `json:"rate_config"`
	MatchPriority    *int         `json:"match_priority"`
	RecipientName    string       `json:"recipient_name"`
	RecipientEmail   string       `json:"recipient_email"`
	RecipientAddress string       `json:"recipient_address"`
	Currency         string       `json:"currency"`
}

type UpdateRequest struct {
	OwnerID          snowflake.ID `json:"-"`
	ID               string       `json:"id"`
	Name             *string      `json:"name,omitempty"`
	LocationMatch    []string     `json:"location_match,omitempty"`
	RateConfig       *RateConfig  `json:"rate_config,omitempty"`
	MatchPriority    *int         `json:"match_priority,omitempty"`
	RecipientName    *string      `json:"recipient_name,omitempty"`
	RecipientEmail   *string      `json:"recipient_email,omitempty"`
	RecipientAddress *string      `json:"recipient_address,omitempty"`
	Currency         *string      `json:"currency,omitempty"`
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidKind       = errors.New("invalid_kind")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrMissingRateConfig = errors.New("missing_rate_config")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
