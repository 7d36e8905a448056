package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/gots/slice"
	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/cli/config"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// runCommand executes one reclaim-reconcile-drain cycle and exits. Suitable
// for cron-style operation without the HTTP server.
func runCommand() *cli.Command {
	var (
		database config.Database
		gitHub   config.GitHub
		ollama   config.Ollama
		monitor  config.Monitor
		bigQuery config.BigQuery
		sentry   config.Sentry
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run one pipeline cycle and exit",
		Flags: slice.Flatten(
			database.Flags(),
			gitHub.Flags(),
			ollama.Flags(),
			monitor.Flags(),
			bigQuery.Flags(),
			sentry.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting one-shot run",
				slog.Any("Database", database),
				slog.Any("GitHub", gitHub),
				slog.Any("Ollama", ollama),
				slog.Any("Monitor", monitor),
				slog.Any("BigQuery", bigQuery),
				slog.Any("Sentry", sentry),
			)

			if err := sentry.Configure(ctx); err != nil {
				return err
			}

			_, orch, err := buildPipeline(ctx, &database, &gitHub, &ollama, &monitor, &bigQuery)
			if err != nil {
				return err
			}

			return orch.RunOnce(ctx)
		},
	}
}
