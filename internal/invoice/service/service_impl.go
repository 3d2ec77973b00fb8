package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	"github.com/studiobill/studiobill/internal/config"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	invoicedomain "github.com/studiobill/studiobill/internal/invoice/domain"
	"github.com/studiobill/studiobill/internal/observability/metrics"
	"github.com/studiobill/studiobill/internal/payout"
	"github.com/studiobill/studiobill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     config.Config
	EntityRepo entitydomain.Repository
	EventRepo  eventdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	prefix     string
	entityRepo entitydomain.Repository
	eventRepo  eventdomain.Repository
	metrics    *metrics.Metrics
}

func New(p ServiceParam) invoicedomain.Service {
	prefix := strings.TrimSpace(p.Config.InvoicePrefix)
	if prefix == "" {
		prefix = "INV"
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		prefix:     prefix,
		entityRepo: p.EntityRepo,
		eventRepo:  p.EventRepo,
		metrics:    p.Metrics,
	}
}

// Create aggregates the selected events into a new invoice. The invoice row
// and every event link land in one transaction: either all events are linked
// or the invoice does not exist.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	if req.OwnerID == 0 {
		return nil, invoicedomain.ErrInvalidOwner
	}
	if len(req.EventIDs) == 0 {
		return nil, invoicedomain.ErrEmptySelection
	}
	entityID, err := snowflake.ParseString(strings.TrimSpace(req.EntityID))
	if err != nil {
		return nil, invoicedomain.ErrEntityNotFound
	}
	eventIDs, err := parseIDs(req.EventIDs)
	if err != nil {
		return nil, eventdomain.ErrInvalidID
	}

	var created *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := s.entityRepo.FindByID(ctx, tx, req.OwnerID, entityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return invoicedomain.ErrEntityNotFound
		}
		cfg, err := entity.ParsedRateConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		events, err := s.eventRepo.FindByIDs(ctx, tx, req.OwnerID, eventIDs)
		if err != nil {
			return err
		}
		if len(events) != len(eventIDs) {
			return invoicedomain.ErrEventsNotFound
		}

		total, err := s.sumPayouts(ctx, events, entityID, 0, cfg)
		if err != nil {
			return err
		}

		seq, err := s.nextInvoiceSeq(ctx, tx, req.OwnerID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		invoice := invoicedomain.Invoice{
			ID:              s.genID.Generate(),
			OwnerID:         req.OwnerID,
			BillingEntityID: entityID,
			InvoiceNumber:   fmt.Sprintf("%s-%s-%d", s.prefix, now.Format("200601"), seq),
			InvoiceSeq:      seq,
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			Notes:           strings.TrimSpace(req.Notes),
			AmountTotal:     total,
			Currency:        entity.Currency,
			Status:          invoicedomain.InvoiceStatusDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				// Another process took the same sequence number between our
				// MAX read and this insert.
				return invoicedomain.ErrNumberConflict
			}
			return err
		}

		for _, ev := range events {
			linked, err := s.eventRepo.LinkToInvoice(ctx, tx, req.OwnerID, ev.ID, entityID, invoice.ID)
			if err != nil {
				return err
			}
			if !linked {
				// Row changed under us since the read above; abort the whole
				// mutation rather than persist a partially linked invoice.
				return invoicedomain.ErrEventAlreadyBilled
			}
		}

		created = &invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceCreated(ctx, created.Currency)
	s.log.Info("invoice created",
		zap.String("invoice_id", created.ID.String()),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("amount_total", created.AmountTotal.String()),
		zap.Int("events", len(req.EventIDs)),
	)
	return created, nil
}

// Update replaces the linked event set and/or metadata, recomputing the
// frozen amount_total from the resulting set.
func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateRequest) (*invoicedomain.Invoice, error) {
	if req.OwnerID == 0 {
		return nil, invoicedomain.ErrInvalidOwner
	}
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(req.InvoiceID))
	if err != nil {
		return nil, invoicedomain.ErrInvalidID
	}
	if req.Status != nil && !invoicedomain.ValidStatus(invoicedomain.InvoiceStatus(*req.Status)) {
		return nil, invoicedomain.ErrInvalidStatus
	}

	var updated *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.findInvoice(ctx, tx, req.OwnerID, invoiceID)
		if err != nil {
			return err
		}

		entity, err := s.entityRepo.FindByID(ctx, tx, req.OwnerID, invoice.BillingEntityID)
		if err != nil {
			return err
		}
		if entity == nil {
			return invoicedomain.ErrEntityNotFound
		}
		cfg, err := entity.ParsedRateConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if req.EventIDs != nil {
			if len(req.EventIDs) == 0 {
				return invoicedomain.ErrEmptySelection
			}
			desired, err := parseIDs(req.EventIDs)
			if err != nil {
				return eventdomain.ErrInvalidID
			}
			if err := s.relinkEvents(ctx, tx, invoice, desired); err != nil {
				return err
			}
		}

		linked, err := s.eventRepo.FindByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		total, err := s.sumPayouts(ctx, linked, invoice.BillingEntityID, invoice.ID, cfg)
		if err != nil {
			return err
		}

		invoice.AmountTotal = total
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Status != nil {
			invoice.Status = invoicedomain.InvoiceStatus(*req.Status)
		}
		invoice.UpdatedAt = time.Now().UTC()

		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("owner_id = ? AND id = ?", invoice.OwnerID, invoice.ID).
			Updates(map[string]any{
				"amount_total": invoice.AmountTotal,
				"notes":        invoice.Notes,
				"status":       invoice.Status,
				"updated_at":   invoice.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete unlinks all events and removes the invoice row. Events are never
// deleted; they return to the unbilled pool.
func (s *Service) Delete(ctx context.Context, ownerID snowflake.ID, invoiceID string) error {
	if ownerID == 0 {
		return invoicedomain.ErrInvalidOwner
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return invoicedomain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findInvoice(ctx, tx, ownerID, id); err != nil {
			return err
		}
		if err := s.eventRepo.UnlinkAllFromInvoice(ctx, tx, id); err != nil {
			return err
		}
		return tx.Where("owner_id = ? AND id = ?", ownerID, id).
			Delete(&invoicedomain.Invoice{}).Error
	})
}

func (s *Service) GetByID(ctx context.Context, ownerID snowflake.ID, invoiceID string) (*invoicedomain.InvoiceDetail, error) {
	if ownerID == 0 {
		return nil, invoicedomain.ErrInvalidOwner
	}
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil {
		return nil, invoicedomain.ErrInvalidID
	}

	invoice, err := s.findInvoice(ctx, s.db, ownerID, id)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.FindByInvoice(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.InvoiceDetail{Invoice: *invoice, Events: events}, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) ([]invoicedomain.Invoice, error) {
	if req.OwnerID == 0 {
		return nil, invoicedomain.ErrInvalidOwner
	}
	stmt := s.db.WithContext(ctx).Where("owner_id = ?", req.OwnerID)
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}

	var invoices []invoicedomain.Invoice
	err := stmt.Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

// relinkEvents reconciles the linked set towards desired: removed events are
// unlinked back to the pool, added ones linked under the usual preconditions.
func (s *Service) relinkEvents(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, desired []snowflake.ID) error {
	current, err := s.eventRepo.FindByInvoice(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	desiredSet := make(map[snowflake.ID]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}
	currentSet := make(map[snowflake.ID]bool, len(current))

	var removed []snowflake.ID
	for _, ev := range current {
		currentSet[ev.ID] = true
		if !desiredSet[ev.ID] {
			removed = append(removed, ev.ID)
		}
	}
	if err := s.eventRepo.UnlinkFromInvoice(ctx, tx, invoice.ID, removed); err != nil {
		return err
	}

	var added []snowflake.ID
	for _, id := range desired {
		if !currentSet[id] {
			added = append(added, id)
		}
	}
	if len(added) == 0 {
		return nil
	}

	events, err := s.eventRepo.FindByIDs(ctx, tx, invoice.OwnerID, added)
	if err != nil {
		return err
	}
	if len(events) != len(added) {
		return invoicedomain.ErrEventsNotFound
	}
	for _, ev := range events {
		if ev.BillingEntityID == nil || *ev.BillingEntityID != invoice.BillingEntityID {
			return invoicedomain.ErrEntityMismatch
		}
		if ev.InvoiceID != nil {
			return invoicedomain.ErrEventAlreadyBilled
		}
		linked, err := s.eventRepo.LinkToInvoice(ctx, tx, invoice.OwnerID, ev.ID, invoice.BillingEntityID, invoice.ID)
		if err != nil {
			return err
		}
		if !linked {
			return invoicedomain.ErrEventAlreadyBilled
		}
	}
	return nil
}

// sumPayouts verifies every event belongs to the entity and is not billed to
// another invoice, then sums the calculator results. invoiceID is the invoice
// the events are allowed to be linked to already; zero during creation, when
// every event must still be unbilled.
func (s *Service) sumPayouts(
	ctx context.Context,
	events []eventdomain.Event,
	entityID, invoiceID snowflake.ID,
	cfg entitydomain.RateConfig,
) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, ev := range events {
		if ev.BillingEntityID == nil || *ev.BillingEntityID != entityID {
			return decimal.Zero, invoicedomain.ErrEntityMismatch
		}
		if ev.InvoiceID != nil && *ev.InvoiceID != invoiceID {
			return decimal.Zero, invoicedomain.ErrEventAlreadyBilled
		}

		result, err := payout.Compute(payout.EventInput{
			StudentsStudio: ev.StudentsStudio,
			StudentsOnline: ev.StudentsOnline,
		}, cfg)
		if err != nil {
			return decimal.Zero, err
		}
		if result.Warning != "" {
			s.log.Warn("payout warning while invoicing",
				zap.String("event_id", ev.ID.String()),
				zap.String("warning", result.Warning),
			)
		}
		s.metrics.RecordPayoutComputed(ctx, string(cfg.Type))
		total = total.Add(result.Amount)
	}
	return total, nil
}

func (s *Service) findInvoice(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, invoicedomain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) nextInvoiceSeq(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(invoice_seq), 0) + 1
		 FROM invoices
		 WHERE owner_id = ?`,
		ownerID,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]bool, len(raw))
	out := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
