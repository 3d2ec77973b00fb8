package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListFilter narrows event listings for the selection UI.
type ListFilter struct {
	OwnerID         snowflake.ID
	BillingEntityID *snowflake.ID
	Unbilled        bool
	From            *time.Time
	To              *time.Time
}

// RematchScope bounds a rematch pass. Zero value means all of the owner's
// events; FeedID and EventIDs are mutually exclusive.
type RematchScope struct {
	FeedID   *snowflake.ID
	EventIDs []snowflake.ID
}

type Repository interface {
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Event, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]Event, error)
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Event, error)

	// FindUnassignedIDsByLocation returns ids of events still open for
	// matching whose location contains the pattern case-insensitively.
	FindUnassignedIDsByLocation(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, pattern string) ([]snowflake.ID, error)

	// ClaimForEntity conditionally assigns billing_entity_id for the given
	// ids. Rows already assigned, invoiced or manually assigned are left
	// untouched; the returned count is the number of rows actually claimed.
	ClaimForEntity(ctx context.Context, db *gorm.DB, ownerID, entityID snowflake.ID, ids []snowflake.ID) (int64, error)

	// ReassignEntity moves a matcher-owned assignment (possibly to nil).
	// It is a no-op for manually assigned or invoiced rows.
	ReassignEntity(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, entityID *snowflake.ID) (bool, error)

	// SetManualAssignment records a human override of billing_entity_id.
	// Invoiced events are immutable and are not touched.
	SetManualAssignment(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, entityID *snowflake.ID) (bool, error)

	// LinkToInvoice attaches one event to an invoice, only when it still
	// belongs to the expected entity and is not invoiced yet.
	LinkToInvoice(ctx context.Context, db *gorm.DB, ownerID, eventID, entityID, invoiceID snowflake.ID) (bool, error)

	// UnlinkFromInvoice returns events to the unbilled pool.
	UnlinkFromInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, ids []snowflake.ID) error
	UnlinkAllFromInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error

	// ListRematchable returns in-scope events excluding invoiced ones.
	ListRematchable(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, scope RematchScope) ([]Event, error)

	// UpdateTags rewrites the tags column for a non-invoiced event.
	UpdateTags(ctx context.Context, db *gorm.DB, ownerID, eventID snowflake.ID, tags datatypes.JSON) (bool, error)
}

var (
	ErrNotFound     = errors.New("event_not_found")
	ErrInvalidID    = errors.New("invalid_event_id")
	ErrEventBilled  = errors.New("event_already_invoiced")
	ErrInvalidOwner = errors.New("invalid_owner")
)
