package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gots/slice"
	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/cli/config"
	"github.com/craftnudge/commitlens/pkg/controller/server"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

func serveCommand() *cli.Command {
	var (
		addr string

		database config.Database
		gitHub   config.GitHub
		ollama   config.Ollama
		monitor  config.Monitor
		bigQuery config.BigQuery
		sentry   config.Sentry
	)
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Binding address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("COMMITLENS_ADDR"),
			Destination: &addr,
		},
	}

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Server mode: receive webhooks and run the pipeline continuously",
		Flags: slice.Flatten(
			serveFlags,
			database.Flags(),
			gitHub.Flags(),
			ollama.Flags(),
			monitor.Flags(),
			bigQuery.Flags(),
			sentry.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting serve",
				slog.Any("Addr", addr),
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

			uc, orch, err := buildPipeline(ctx, &database, &gitHub, &ollama, &monitor, &bigQuery)
			if err != nil {
				return err
			}

			s := server.New(uc,
				server.WithWebhookSecret(gitHub.WebhookSecret()),
				server.WithMonitor(orch),
			)

			if err := orch.Start(ctx, monitor.Interval()); err != nil {
				return err
			}

			serverErr := make(chan error, 1)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: s.Mux(),

				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
			}

			go func() {
				logging.Default().Info("starting http server", "addr", addr)
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					serverErr <- goerr.Wrap(err, "failed to listen and serve")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-serverErr:
				return err

			case sig := <-quit:
				logging.Default().Info("shutting down server", "signal", sig)

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				// Stop accepting webhooks first, then let claimed events finish.
				if err := httpServer.Shutdown(ctx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server")
				}
				if err := orch.Stop(ctx); err != nil {
					return goerr.Wrap(err, "failed to stop monitor")
				}
			}

			return nil
		},
	}
}
