package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	eventdomain "github.com/studiobill/studiobill/internal/event/domain"
	eventrepo "github.com/studiobill/studiobill/internal/event/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func setupEventService(t *testing.T) (eventdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&eventdomain.Event{}))

	svc := New(ServiceParam{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: eventrepo.Provide(),
	})
	return svc, db
}

func seedEvent(t *testing.T, db *gorm.DB, node *snowflake.Node, ownerID snowflake.ID, mutate func(*eventdomain.Event)) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	event := eventdomain.Event{
		ID:        node.Generate(),
		OwnerID:   ownerID,
		Title:     "Morning Class",
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		Location:  "Flow Studio",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(&event)
	}
	require.NoError(t, db.Create(&event).Error)
	return event.ID
}

func TestAssignManuallySetsOverrideFlag(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEventService(t)
	ownerID := node.Generate()
	entityID := node.Generate()

	eventID := seedEvent(t, db, node, ownerID, nil)

	event, err := svc.AssignManually(context.Background(), ownerID, eventID.String(), entityID.String())
	require.NoError(t, err)
	require.NotNil(t, event.BillingEntityID)
	require.Equal(t, entityID, *event.BillingEntityID)
	require.True(t, event.ManuallyAssigned)
}

func TestAssignManuallyClearWithEmptyEntity(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEventService(t)
	ownerID := node.Generate()
	entityID := node.Generate()

	eventID := seedEvent(t, db, node, ownerID, func(e *eventdomain.Event) {
		e.BillingEntityID = &entityID
		e.ManuallyAssigned = true
	})

	event, err := svc.AssignManually(context.Background(), ownerID, eventID.String(), "")
	require.NoError(t, err)
	require.Nil(t, event.BillingEntityID)
	require.False(t, event.ManuallyAssigned)
}

func TestAssignManuallyRejectsInvoicedEvent(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEventService(t)
	ownerID := node.Generate()
	entityID := node.Generate()
	invoiceID := node.Generate()

	eventID := seedEvent(t, db, node, ownerID, func(e *eventdomain.Event) {
		e.BillingEntityID = &entityID
		e.InvoiceID = &invoiceID
	})

	_, err := svc.AssignManually(context.Background(), ownerID, eventID.String(), node.Generate().String())
	require.ErrorIs(t, err, eventdomain.ErrEventBilled)
}

func TestAssignManuallyUnknownEvent(t *testing.T) {
	node := mustNode(t)
	svc, _ := setupEventService(t)

	_, err := svc.AssignManually(context.Background(), node.Generate(), node.Generate().String(), "")
	require.ErrorIs(t, err, eventdomain.ErrNotFound)
}

func TestListFiltersUnbilled(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEventService(t)
	ownerID := node.Generate()
	invoiceID := node.Generate()

	openID := seedEvent(t, db, node, ownerID, nil)
	seedEvent(t, db, node, ownerID, func(e *eventdomain.Event) {
		e.InvoiceID = &invoiceID
	})

	events, err := svc.List(context.Background(), eventdomain.ListFilter{
		OwnerID:  ownerID,
		Unbilled: true,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, openID, events[0].ID)
}
