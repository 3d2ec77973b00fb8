package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	entityrepo "github.com/studiobill/studiobill/internal/billingentity/repository"
	"github.com/studiobill/studiobill/internal/config"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	eventrepo "github.com/studiobill/studiobill/internal/event/repository"
	invoicedomain "github.com/studiobill/studiobill/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func setupInvoiceService(t *testing.T, node *snowflake.Node) (invoicedomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&entitydomain.BillingEntity{},
		&eventdomain.Event{},
		&invoicedomain.Invoice{},
	))

	svc := New(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Config:     config.Config{InvoicePrefix: "INV"},
		EntityRepo: entityrepo.Provide(),
		EventRepo:  eventrepo.Provide(),
	})
	return svc, db
}

func seedFlatEntity(t *testing.T, db *gorm.DB, node *snowflake.Node, ownerID snowflake.ID, baseRate string) snowflake.ID {
	t.Helper()

	rateJSON, err := json.Marshal(map[string]any{"type": "flat", "base_rate": baseRate})
	require.NoError(t, err)

	now := time.Now().UTC()
	entity := entitydomain.BillingEntity{
		ID:         node.Generate(),
		OwnerID:    ownerID,
		Kind:       entitydomain.EntityKindStudio,
		Name:       "Flow Studio",
		RateConfig: rateJSON,
		Currency:   "EUR",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(&entity).Error)
	return entity.ID
}

func seedAssignedEvent(t *testing.T, db *gorm.DB, node *snowflake.Node, ownerID, entityID snowflake.ID, students int) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	event := eventdomain.Event{
		ID:              node.Generate(),
		OwnerID:         ownerID,
		Title:           "Vinyasa Flow",
		StartTime:       now,
		EndTime:         now.Add(time.Hour),
		Location:        "Flow Studio",
		StudentsStudio:  students,
		BillingEntityID: &entityID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, db.Create(&event).Error)
	return event.ID
}

func TestCreateInvoiceSumsPayoutsAndLinksEvents(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")

	first := seedAssignedEvent(t, db, node, ownerID, entityID, 10)
	second := seedAssignedEvent(t, db, node, ownerID, entityID, 20)

	invoice, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{first.String(), second.String()},
	})
	require.NoError(t, err)
	require.True(t, invoice.AmountTotal.Equal(decimal.RequireFromString("90")),
		"got %s", invoice.AmountTotal)
	require.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	require.Equal(t, "EUR", invoice.Currency)
	require.Equal(t,
		fmt.Sprintf("INV-%s-1", time.Now().UTC().Format("200601")),
		invoice.InvoiceNumber,
	)

	var linked int64
	require.NoError(t, db.Model(&eventdomain.Event{}).
		Where("invoice_id = ?", invoice.ID).
		Count(&linked).Error)
	require.EqualValues(t, 2, linked)
}

func TestCreateInvoiceSequencePerOwner(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")

	first := seedAssignedEvent(t, db, node, ownerID, entityID, 5)
	second := seedAssignedEvent(t, db, node, ownerID, entityID, 5)

	a, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{first.String()},
	})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{second.String()},
	})
	require.NoError(t, err)

	require.EqualValues(t, 1, a.InvoiceSeq)
	require.EqualValues(t, 2, b.InvoiceSeq)
	require.NotEqual(t, a.InvoiceNumber, b.InvoiceNumber)
}

func TestCreateInvoiceRejectsForeignAndBilledEvents(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")
	otherEntity := seedFlatEntity(t, db, node, ownerID, "30")

	foreign := seedAssignedEvent(t, db, node, ownerID, otherEntity, 5)
	_, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{foreign.String()},
	})
	require.ErrorIs(t, err, invoicedomain.ErrEntityMismatch)

	ok := seedAssignedEvent(t, db, node, ownerID, entityID, 5)
	_, err = svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{ok.String()},
	})
	require.NoError(t, err)

	// Already invoiced now; a second invoice over the same event must fail.
	_, err = svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{ok.String()},
	})
	require.ErrorIs(t, err, invoicedomain.ErrEventAlreadyBilled)
}

func TestCreateInvoiceRollsBackOnPartialFailure(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")
	otherEntity := seedFlatEntity(t, db, node, ownerID, "30")

	good := seedAssignedEvent(t, db, node, ownerID, entityID, 5)
	bad := seedAssignedEvent(t, db, node, ownerID, otherEntity, 5)

	_, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{good.String(), bad.String()},
	})
	require.ErrorIs(t, err, invoicedomain.ErrEntityMismatch)

	var invoices int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error)
	require.Zero(t, invoices)

	var linked int64
	require.NoError(t, db.Model(&eventdomain.Event{}).
		Where("invoice_id IS NOT NULL").
		Count(&linked).Error)
	require.Zero(t, linked)
}

func TestCreateInvoiceValidatesSelection(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")

	_, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
	})
	require.ErrorIs(t, err, invoicedomain.ErrEmptySelection)

	_, err = svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{node.Generate().String()},
	})
	require.ErrorIs(t, err, invoicedomain.ErrEventsNotFound)
}

func TestUpdateInvoiceReplacesEventSet(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")

	kept := seedAssignedEvent(t, db, node, ownerID, entityID, 5)
	removed := seedAssignedEvent(t, db, node, ownerID, entityID, 5)
	added := seedAssignedEvent(t, db, node, ownerID, entityID, 5)

	invoice, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{kept.String(), removed.String()},
	})
	require.NoError(t, err)
	require.True(t, invoice.AmountTotal.Equal(decimal.RequireFromString("90")))

	updated, err := svc.Update(context.Background(), invoicedomain.UpdateRequest{
		OwnerID:   ownerID,
		InvoiceID: invoice.ID.String(),
		EventIDs:  []string{kept.String(), added.String()},
	})
	require.NoError(t, err)
	require.True(t, updated.AmountTotal.Equal(decimal.RequireFromString("90")))

	var removedEvent eventdomain.Event
	require.NoError(t, db.First(&removedEvent, "id = ?", removed).Error)
	require.Nil(t, removedEvent.InvoiceID)

	var addedEvent eventdomain.Event
	require.NoError(t, db.First(&addedEvent, "id = ?", added).Error)
	require.NotNil(t, addedEvent.InvoiceID)
	require.Equal(t, invoice.ID, *addedEvent.InvoiceID)
}

func TestUpdateInvoiceStatusAndNotes(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")
	eventID := seedAssignedEvent(t, db, node, ownerID, entityID, 5)

	invoice, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{eventID.String()},
	})
	require.NoError(t, err)

	status := "sent"
	notes := "October classes"
	updated, err := svc.Update(context.Background(), invoicedomain.UpdateRequest{
		OwnerID:   ownerID,
		InvoiceID: invoice.ID.String(),
		Notes:     &notes,
		Status:    &status,
	})
	require.NoError(t, err)
	require.Equal(t, invoicedomain.InvoiceStatusSent, updated.Status)
	require.Equal(t, notes, updated.Notes)
	require.True(t, updated.AmountTotal.Equal(invoice.AmountTotal),
		"metadata edit must not change the frozen total")

	bogus := "shredded"
	_, err = svc.Update(context.Background(), invoicedomain.UpdateRequest{
		OwnerID:   ownerID,
		InvoiceID: invoice.ID.String(),
		Status:    &bogus,
	})
	require.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)
}

func TestDeleteInvoiceReleasesEvents(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")
	eventID := seedAssignedEvent(t, db, node, ownerID, entityID, 5)

	invoice, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{eventID.String()},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ownerID, invoice.ID.String()))

	var event eventdomain.Event
	require.NoError(t, db.First(&event, "id = ?", eventID).Error)
	require.Nil(t, event.InvoiceID)
	require.NotNil(t, event.BillingEntityID, "entity assignment survives invoice deletion")

	_, err = svc.GetByID(context.Background(), ownerID, invoice.ID.String())
	require.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestGetInvoiceIncludesEvents(t *testing.T) {
	node := mustNode(t)
	svc, db := setupInvoiceService(t, node)
	ownerID := node.Generate()
	entityID := seedFlatEntity(t, db, node, ownerID, "45")
	eventID := seedAssignedEvent(t, db, node, ownerID, entityID, 5)

	invoice, err := svc.Create(context.Background(), invoicedomain.CreateRequest{
		OwnerID:  ownerID,
		EntityID: entityID.String(),
		EventIDs: []string{eventID.String()},
	})
	require.NoError(t, err)

	detail, err := svc.GetByID(context.Background(), ownerID, invoice.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Events, 1)
	require.Equal(t, eventID, detail.Events[0].ID)
}
