package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/alias"
	"github.com/smallbiznis/usagehub/internal/config"
	"github.com/smallbiznis/usagehub/internal/dataset"
	"github.com/smallbiznis/usagehub/internal/fact"
	"github.com/smallbiznis/usagehub/internal/ingest"
	"github.com/smallbiznis/usagehub/internal/intake"
	"github.com/smallbiznis/usagehub/internal/logger"
	"github.com/smallbiznis/usagehub/internal/metrics"
	"github.com/smallbiznis/usagehub/internal/migration"
	"github.com/smallbiznis/usagehub/internal/normalize"
	"github.com/smallbiznis/usagehub/internal/rawrow"
	"github.com/smallbiznis/usagehub/internal/server"
	"github.com/smallbiznis/usagehub/internal/storage"
	"github.com/smallbiznis/usagehub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,
		storage.Module,

		// Ingestion pipeline
		alias.Module,
		dataset.Module,
		rawrow.Module,
		fact.Module,
		normalize.Module,
		ingest.Module,
		intake.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
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
