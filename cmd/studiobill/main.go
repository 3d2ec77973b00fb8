package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/studiobill/studiobill/internal/config"
	"github.com/studiobill/studiobill/internal/logger"
	"github.com/studiobill/studiobill/internal/migration"
	"github.com/studiobill/studiobill/internal/observability/metrics"
	"github.com/studiobill/studiobill/internal/server"
	"github.com/studiobill/studiobill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// HTTP server plus all domain modules
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
