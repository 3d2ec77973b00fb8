package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	entitydomain "github.com/studiobill/studiobill/internal/billingentity/domain"
	entityrepo "github.com/studiobill/studiobill/internal/billingentity/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func setupEntityService(t *testing.T, node *snowflake.Node) entitydomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&entitydomain.BillingEntity{}))

	return New(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  entityrepo.Provide(),
	})
}

func flatConfig(baseRate string) *entitydomain.RateConfig {
	rate := decimal.RequireFromString(baseRate)
	return &entitydomain.RateConfig{
		Type:     entitydomain.RateTypeFlat,
		BaseRate: &rate,
	}
}

func TestCreateEntityNormalizesPatterns(t *testing.T) {
	node := mustNode(t)
	svc := setupEntityService(t, node)
	ownerID := node.Generate()

	entity, err := svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:       ownerID,
		Kind:          "studio",
		Name:          "Flow Studio",
		LocationMatch: []string{" Flow Studio ", "flow studio", "", "Annex"},
		RateConfig:    flatConfig("45"),
	})
	require.NoError(t, err)

	patterns, err := entity.Patterns()
	require.NoError(t, err)
	require.Equal(t, []string{"Flow Studio", "Annex"}, patterns)
	require.Equal(t, "EUR", entity.Currency)
}

func TestCreateEntityRejectsInvalidInput(t *testing.T) {
	node := mustNode(t)
	svc := setupEntityService(t, node)
	ownerID := node.Generate()

	_, err := svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:    ownerID,
		Kind:       "venue",
		Name:       "Somewhere",
		RateConfig: flatConfig("45"),
	})
	require.ErrorIs(t, err, entitydomain.ErrInvalidKind)

	_, err = svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:    ownerID,
		Kind:       "studio",
		Name:       "  ",
		RateConfig: flatConfig("45"),
	})
	require.ErrorIs(t, err, entitydomain.ErrInvalidName)

	_, err = svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID: ownerID,
		Kind:    "studio",
		Name:    "Flow Studio",
	})
	require.ErrorIs(t, err, entitydomain.ErrMissingRateConfig)

	_, err = svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:    ownerID,
		Kind:       "studio",
		Name:       "Flow Studio",
		RateConfig: &entitydomain.RateConfig{Type: entitydomain.RateTypeFlat},
	})
	var cfgErr *entitydomain.RateConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "invalid_base_rate", cfgErr.Code)
}

func TestUpdateEntityPartialFields(t *testing.T) {
	node := mustNode(t)
	svc := setupEntityService(t, node)
	ownerID := node.Generate()

	entity, err := svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:    ownerID,
		Kind:       "teacher",
		Name:       "Alex Substitute",
		RateConfig: flatConfig("40"),
	})
	require.NoError(t, err)

	name := "Alex Cover"
	priority := 3
	updated, err := svc.Update(context.Background(), entitydomain.UpdateRequest{
		OwnerID:       ownerID,
		ID:            entity.ID.String(),
		Name:          &name,
		MatchPriority: &priority,
	})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, priority, updated.MatchPriority)
	require.Equal(t, entitydomain.EntityKindTeacher, updated.Kind)
}

func TestGetEntityScopedToOwner(t *testing.T) {
	node := mustNode(t)
	svc := setupEntityService(t, node)
	ownerID := node.Generate()

	entity, err := svc.Create(context.Background(), entitydomain.CreateRequest{
		OwnerID:    ownerID,
		Kind:       "studio",
		Name:       "Flow Studio",
		RateConfig: flatConfig("45"),
	})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), node.Generate(), entity.ID.String())
	require.ErrorIs(t, err, entitydomain.ErrNotFound)

	found, err := svc.GetByID(context.Background(), ownerID, entity.ID.String())
	require.NoError(t, err)
	require.Equal(t, entity.ID, found.ID)
}
