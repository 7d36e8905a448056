package config

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/repository/memory"
	"github.com/craftnudge/commitlens/pkg/repository/postgres"
)

// Database selects the entity store backend. Without a DSN the pipeline runs
// on the in-memory store, which is enough for local use but loses everything
// on restart.
type Database struct {
	dsn string
}

func (x *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-dsn",
			Usage:       "PostgreSQL DSN (empty for in-memory store)",
			Category:    "Database",
			Destination: &x.dsn,
			Sources:     cli.EnvVars("COMMITLENS_DATABASE_DSN"),
		},
	}
}

func (x *Database) Enabled() bool {
	return x.dsn != ""
}

// NewStore opens the configured backend and applies pending schema
// migrations for PostgreSQL.
func (x *Database) NewStore(ctx context.Context) (interfaces.Store, error) {
	if !x.Enabled() {
		return memory.New(), nil
	}
	return postgres.New(ctx, x.dsn)
}

func (x *Database) LogValue() slog.Value {
	backend := "memory"
	if x.Enabled() {
		backend = "postgres"
	}
	return slog.GroupValue(
		slog.String("backend", backend),
		slog.Int("DSN.len", len(x.dsn)),
	)
}
