// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// ValidStatus reports whether the given status is a known lifecycle state.
func ValidStatus(status InvoiceStatus) bool {
	switch status {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

// Invoice groups a set of events billed against one entity. AmountTotal is a
// snapshot of the summed payouts at the time of the last (re)computation.
type Invoice struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID         snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index;uniqueIndex:ux_invoices_owner_number,priority:1"`
	BillingEntityID snowflake.ID `json:"billing_entity_id" gorm:"not null;index"`

	InvoiceNumber string `json:"invoice_number" gorm:"type:text;not null;uniqueIndex:ux_invoices_owner_number,priority:2"`
	// InvoiceSeq is the per-owner running sequence behind InvoiceNumber.
	InvoiceSeq int64 `json:"-" gorm:"not null"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	Notes       string     `json:"notes" gorm:"type:text"`

	AmountTotal decimal.Decimal `json:"amount_total" gorm:"type:numeric;not null"`
	Currency    string          `json:"currency" gorm:"type:text;not null"`
	Status      InvoiceStatus   `json:"status" gorm:"type:text;not null;default:'draft'"`

	// ArtifactRef points at the rendered document, written by the external
	// document generator. Cleared implicitly when the invoice is deleted.
	ArtifactRef string `json:"artifact_ref,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
