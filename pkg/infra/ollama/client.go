package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/utils/safe"
)

const (
	defaultCodeModel   = "codellama:7b"
	defaultCommitModel = "llama2:7b"
	defaultTimeout     = 2 * time.Minute
)

const codeAnalysisSystemPrompt = `You are a code analysis agent. Analyze the provided code changes and provide insights about:
1. Code quality and best practices
2. Potential bugs or issues
3. Security concerns
4. Performance implications
5. Suggestions for improvement

Provide clear, actionable feedback.`

const commitAnalysisSystemPrompt = `You are a commit analysis agent. Analyze commit messages and changes to provide insights about:
1. Commit message quality
2. Change impact assessment
3. Development patterns
4. Team collaboration insights
5. Project health indicators

Provide concise, valuable feedback.`

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls a local Ollama server to analyze commits. It implements
// interfaces.Analyzer.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	timeout    time.Duration
	models     map[types.AgentKind]string
}

var _ interfaces.Analyzer = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client HTTPClient) Option {
	return func(x *Client) {
		x.httpClient = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(x *Client) {
		x.timeout = timeout
	}
}

func WithModel(agent types.AgentKind, modelName string) Option {
	return func(x *Client) {
		x.models[agent] = modelName
	}
}

func New(baseURL string, options ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		models: map[types.AgentKind]string{
			types.AgentCodeAnalysis:   defaultCodeModel,
			types.AgentCommitAnalysis: defaultCommitModel,
		},
	}

	for _, opt := range options {
		opt(client)
	}

	return client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze sends the commit to the Ollama model configured for the agent kind.
// Timeouts, connection failures, and server-side errors are retryable; an
// unusable response is permanent.
func (x *Client) Analyze(ctx context.Context, input *model.AnalysisInput) (*model.AnalysisOutput, error) {
	modelName, ok := x.models[input.Agent]
	if !ok {
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "no model configured for agent", goerr.V("agent", input.Agent))
	}

	body, err := json.Marshal(&generateRequest{
		Model:  modelName,
		Prompt: buildPrompt(input),
		System: systemPrompt(input.Agent),
		Stream: false,
	})
	if err != nil {
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "failed to marshal generate request")
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "failed to create generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are retryable conditions.
		return nil, goerr.Wrap(types.ErrAnalysisRetryable, "ollama request failed",
			goerr.V("model", modelName),
			goerr.V("cause", err.Error()),
		)
	}
	defer safe.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, goerr.Wrap(types.ErrAnalysisRetryable, "ollama server error",
				goerr.V("status", resp.StatusCode),
				goerr.V("model", modelName),
			)
		}
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "ollama rejected request",
			goerr.V("status", resp.StatusCode),
			goerr.V("model", modelName),
		)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "failed to decode ollama response", goerr.V("model", modelName))
	}
	if out.Response == "" {
		return nil, goerr.Wrap(types.ErrAnalysisFailed, "empty ollama response", goerr.V("model", modelName))
	}

	return &model.AnalysisOutput{
		Text:  out.Response,
		Model: modelName,
	}, nil
}

func systemPrompt(agent types.AgentKind) string {
	switch agent {
	case types.AgentCodeAnalysis:
		return codeAnalysisSystemPrompt
	case types.AgentCommitAnalysis:
		return commitAnalysisSystemPrompt
	default:
		return ""
	}
}

func buildPrompt(input *model.AnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", input.Repo)
	fmt.Fprintf(&b, "Commit: %s\n", input.SHA)
	fmt.Fprintf(&b, "Author: %s\n", input.Author)
	if input.Branch != "" {
		fmt.Fprintf(&b, "Branch: %s\n", input.Branch)
	}
	if !input.CommittedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", input.CommittedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\nCommit message:\n%s\n", input.Message)
	if len(input.ChangedFiles) > 0 {
		b.WriteString("\nChanged files:\n")
		for _, f := range input.ChangedFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

// BuildPromptForTest is exported for testing purposes
func BuildPromptForTest(input *model.AnalysisInput) string {
	return buildPrompt(input)
}
