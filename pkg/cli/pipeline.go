package cli

import (
	"context"

	"github.com/craftnudge/commitlens/pkg/cli/config"
	"github.com/craftnudge/commitlens/pkg/infra"
	"github.com/craftnudge/commitlens/pkg/usecase"
)

// buildPipeline wires the configured backends into a use case and its
// orchestrator. Shared by the serve and run commands.
func buildPipeline(ctx context.Context, database *config.Database, gitHub *config.GitHub, ollamaCfg *config.Ollama, monitor *config.Monitor, bigQuery *config.BigQuery) (*usecase.UseCase, *usecase.Orchestrator, error) {
	store, err := database.NewStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	infraOptions := []infra.Option{
		infra.WithStore(store),
		infra.WithAnalyzer(ollamaCfg.NewAnalyzer()),
	}

	tracked, err := usecase.ParseTrackedRepos(gitHub.TrackedRepos())
	if err != nil {
		return nil, nil, err
	}
	if len(tracked) > 0 {
		infraOptions = append(infraOptions, infra.WithCodeHost(gitHub.NewCodeHost()))
	}

	if bqClient, err := bigQuery.NewClient(ctx); err != nil {
		return nil, nil, err
	} else if bqClient != nil {
		infraOptions = append(infraOptions, infra.WithBigQuery(bqClient))
	}

	uc := usecase.New(infra.New(infraOptions...),
		usecase.WithTrackedRepos(tracked),
		usecase.WithWorkers(monitor.Workers()),
		usecase.WithMaxAttempts(monitor.MaxAttempts()),
		usecase.WithBackoff(monitor.BackoffBase(), monitor.BackoffMax()),
		usecase.WithPollLimit(monitor.PollLimit()),
	)

	orch := usecase.NewOrchestrator(uc,
		usecase.WithStaleThreshold(monitor.StaleThreshold()),
	)

	return uc, orch, nil
}
