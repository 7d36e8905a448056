package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/infra/ghsource"
)

type GitHub struct {
	webhookSecret types.WebhookSecret `masq:"secret"`
	token         types.GitHubToken   `masq:"secret"`
	trackedRepos  []string
}

func (x *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "Shared secret for webhook signature validation",
			Category:    "GitHub",
			Destination: (*string)(&x.webhookSecret),
			Sources:     cli.EnvVars("COMMITLENS_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub API token for the reconciliation poller",
			Category:    "GitHub",
			Destination: (*string)(&x.token),
			Sources:     cli.EnvVars("COMMITLENS_GITHUB_TOKEN"),
		},
		&cli.StringSliceFlag{
			Name:        "github-repo",
			Usage:       "Repository to poll, as owner/name (repeatable)",
			Category:    "GitHub",
			Destination: &x.trackedRepos,
			Sources:     cli.EnvVars("COMMITLENS_GITHUB_REPOS"),
		},
	}
}

func (x *GitHub) WebhookSecret() types.WebhookSecret {
	return x.webhookSecret
}

func (x *GitHub) TrackedRepos() []string {
	return x.trackedRepos
}

func (x *GitHub) NewCodeHost() *ghsource.Client {
	return ghsource.New(x.token)
}

func (x *GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("WebhookSecret.len", len(x.webhookSecret)),
		slog.Int("Token.len", len(x.token)),
		slog.Any("TrackedRepos", x.trackedRepos),
	)
}
