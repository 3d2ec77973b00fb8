package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
)

type CreateRequest struct {
	OwnerID     snowflake.ID `json:"-"`
	EntityID    string       `json:"billing_entity_id"`
	EventIDs    []string     `json:"event_ids"`
	Notes       string       `json:"notes"`
	PeriodStart *time.Time   `json:"period_start,omitempty"`
	PeriodEnd   *time.Time   `json:"period_end,omitempty"`
}

type UpdateRequest struct {
	OwnerID   snowflake.ID `json:"-"`
	InvoiceID string       `json:"-"`
	// EventIDs nil leaves the linked set untouched; non-nil replaces it.
	EventIDs []string `json:"event_ids,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
	Status   *string  `json:"status,omitempty"`
}

type ListRequest struct {
	OwnerID snowflake.ID
	Status  *InvoiceStatus
}

// InvoiceDetail is an invoice with its currently linked events.
type InvoiceDetail struct {
	Invoice
	Events []eventdomain.Event `json:"events"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	Update(ctx context.Context, req UpdateRequest) (*Invoice, error)
	Delete(ctx context.Context, ownerID snowflake.ID, invoiceID string) error
	GetByID(ctx context.Context, ownerID snowflake.ID, invoiceID string) (*InvoiceDetail, error)
	List(ctx context.Context, req ListRequest) ([]Invoice, error)
}

var (
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidID          = errors.New("invalid_invoice_id")
	ErrNotFound           = errors.New("invoice_not_found")
	ErrEntityNotFound     = errors.New("entity_not_found")
	ErrEmptySelection     = errors.New("empty_selection")
	ErrEntityMismatch     = errors.New("entity_mismatch")
	ErrEventAlreadyBilled = errors.New("event_already_invoiced")
	ErrNumberConflict     = errors.New("invoice_number_conflict")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrEventsNotFound     = errors.New("events_not_found")
)
