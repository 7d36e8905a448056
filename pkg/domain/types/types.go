package types

import (
	"log/slog"

	"github.com/google/uuid"
)

type (
	EventID       string
	RequestID     string
	RepoID        int64
	CommitID      int64
	CommitSHA     string
	BranchName    string
	WebhookSecret string
	GitHubToken   string

	EventSource    string
	EventState     string
	AgentKind      string
	AnalysisStatus string
	ChangeKind     string
)

const (
	EventSourceWebhook EventSource = "webhook"
	EventSourcePoll    EventSource = "poll"
)

const (
	EventStatePending         EventState = "pending"
	EventStateInProgress      EventState = "in_progress"
	EventStateDone            EventState = "done"
	EventStateFailedTransient EventState = "failed_transient"
	EventStateFailedPermanent EventState = "failed_permanent"
)

// IsTerminal returns true when the state never transitions again.
func (x EventState) IsTerminal() bool {
	return x == EventStateDone || x == EventStateFailedPermanent
}

const (
	AgentCodeAnalysis   AgentKind = "code_analysis"
	AgentCommitAnalysis AgentKind = "commit_analysis"
)

// AllAgentKinds lists every analyzer that should run for a commit.
func AllAgentKinds() []AgentKind {
	return []AgentKind{AgentCodeAnalysis, AgentCommitAnalysis}
}

const (
	AnalysisStatusOK     AnalysisStatus = "ok"
	AnalysisStatusFailed AnalysisStatus = "failed"
)

const (
	ChangeKindAdded    ChangeKind = "added"
	ChangeKindModified ChangeKind = "modified"
	ChangeKindRemoved  ChangeKind = "removed"
)

func NewEventID() EventID {
	return EventID(uuid.NewString())
}

func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

func (x WebhookSecret) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x WebhookSecret) String() string {
	return "***********"
}

func (x GitHubToken) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x GitHubToken) String() string {
	return "***********"
}
