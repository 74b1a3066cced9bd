package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/claimflow/internal/clock"
	"github.com/smallbiznis/claimflow/internal/config"
	"github.com/smallbiznis/claimflow/internal/migration"
	"github.com/smallbiznis/claimflow/internal/observability"
	"github.com/smallbiznis/claimflow/internal/server"
	"github.com/smallbiznis/claimflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
