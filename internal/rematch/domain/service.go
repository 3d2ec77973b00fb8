// Package domain defines the rematch pass contract. A rematch re-derives
// tags and billing entity assignments for existing events after config
// changes, without ever touching invoiced or manually assigned rows.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
)

type Request struct {
	OwnerID snowflake.ID
	Scope   eventdomain.RematchScope

	// RematchTags re-applies keyword rules; RematchEntities re-runs
	// location matching. Both default to true when neither is requested.
	RematchTags     bool
	RematchEntities bool
}

type Result struct {
	// TotalProcessed counts events examined, UpdatedCount those actually
	// changed. A rematch over an unchanged config reports UpdatedCount 0.
	TotalProcessed int `json:"total_processed"`
	UpdatedCount   int `json:"updated_count"`
}

type Service interface {
	Run(ctx context.Context, req Request) (Result, error)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrRematchInProgress = errors.New("rematch_in_progress")
	ErrInvalidScope      = errors.New("invalid_rematch_scope")
)
