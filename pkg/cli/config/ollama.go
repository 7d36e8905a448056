package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/infra/ollama"
)

type Ollama struct {
	baseURL     string
	codeModel   string
	commitModel string
	timeout     time.Duration
}

func (x *Ollama) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ollama-url",
			Usage:       "Ollama base URL",
			Category:    "Ollama",
			Value:       "http://localhost:11434",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("COMMITLENS_OLLAMA_URL"),
		},
		&cli.StringFlag{
			Name:        "ollama-code-model",
			Usage:       "Model for code analysis",
			Category:    "Ollama",
			Destination: &x.codeModel,
			Sources:     cli.EnvVars("COMMITLENS_OLLAMA_CODE_MODEL"),
		},
		&cli.StringFlag{
			Name:        "ollama-commit-model",
			Usage:       "Model for commit analysis",
			Category:    "Ollama",
			Destination: &x.commitModel,
			Sources:     cli.EnvVars("COMMITLENS_OLLAMA_COMMIT_MODEL"),
		},
		&cli.DurationFlag{
			Name:        "ollama-timeout",
			Usage:       "Per-request timeout for analysis calls",
			Category:    "Ollama",
			Destination: &x.timeout,
			Sources:     cli.EnvVars("COMMITLENS_OLLAMA_TIMEOUT"),
		},
	}
}

func (x *Ollama) NewAnalyzer() *ollama.Client {
	var options []ollama.Option
	if x.codeModel != "" {
		options = append(options, ollama.WithModel(types.AgentCodeAnalysis, x.codeModel))
	}
	if x.commitModel != "" {
		options = append(options, ollama.WithModel(types.AgentCommitAnalysis, x.commitModel))
	}
	if x.timeout > 0 {
		options = append(options, ollama.WithTimeout(x.timeout))
	}
	return ollama.New(x.baseURL, options...)
}

func (x *Ollama) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("BaseURL", x.baseURL),
		slog.String("CodeModel", x.codeModel),
		slog.String("CommitModel", x.commitModel),
		slog.Duration("Timeout", x.timeout),
	)
}
