package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
)

// Monitor tunes the reclaim-reconcile-drain cycle.
type Monitor struct {
	interval       time.Duration
	workers        int
	maxAttempts    int
	backoffBase    time.Duration
	backoffMax     time.Duration
	pollLimit      int
	staleThreshold time.Duration
}

func (x *Monitor) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "monitor-interval",
			Usage:       "Interval between pipeline cycles",
			Category:    "Monitor",
			Value:       time.Minute,
			Destination: &x.interval,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_INTERVAL"),
		},
		&cli.IntFlag{
			Name:        "monitor-workers",
			Usage:       "Dispatcher worker pool size",
			Category:    "Monitor",
			Destination: &x.workers,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_WORKERS"),
		},
		&cli.IntFlag{
			Name:        "monitor-max-attempts",
			Usage:       "Attempts before an event fails permanently",
			Category:    "Monitor",
			Destination: &x.maxAttempts,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_MAX_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Name:        "monitor-backoff-base",
			Usage:       "Initial retry backoff",
			Category:    "Monitor",
			Destination: &x.backoffBase,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_BACKOFF_BASE"),
		},
		&cli.DurationFlag{
			Name:        "monitor-backoff-max",
			Usage:       "Retry backoff cap",
			Category:    "Monitor",
			Destination: &x.backoffMax,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_BACKOFF_MAX"),
		},
		&cli.IntFlag{
			Name:        "monitor-poll-limit",
			Usage:       "Recent commits inspected per repository per poll",
			Category:    "Monitor",
			Destination: &x.pollLimit,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_POLL_LIMIT"),
		},
		&cli.DurationFlag{
			Name:        "monitor-stale-threshold",
			Usage:       "Age after which an in_progress event is reclaimed",
			Category:    "Monitor",
			Destination: &x.staleThreshold,
			Sources:     cli.EnvVars("COMMITLENS_MONITOR_STALE_THRESHOLD"),
		},
	}
}

func (x *Monitor) Interval() time.Duration       { return x.interval }
func (x *Monitor) Workers() int                  { return x.workers }
func (x *Monitor) MaxAttempts() int              { return x.maxAttempts }
func (x *Monitor) BackoffBase() time.Duration    { return x.backoffBase }
func (x *Monitor) BackoffMax() time.Duration     { return x.backoffMax }
func (x *Monitor) PollLimit() int                { return x.pollLimit }
func (x *Monitor) StaleThreshold() time.Duration { return x.staleThreshold }

func (x *Monitor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("Interval", x.interval),
		slog.Int("Workers", x.workers),
		slog.Int("MaxAttempts", x.maxAttempts),
		slog.Duration("BackoffBase", x.backoffBase),
		slog.Duration("BackoffMax", x.backoffMax),
		slog.Int("PollLimit", x.pollLimit),
		slog.Duration("StaleThreshold", x.staleThreshold),
	)
}
