package model

import (
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// AnalysisResult holds the output of one analyzer run for one commit.
// (CommitID, Agent) is unique: at most one successful row per pair, and a
// retry after failure replaces the failed row rather than appending.
type AnalysisResult struct {
	CommitID  types.CommitID
	RepoID    types.RepoID
	SHA       types.CommitSHA
	Agent     types.AgentKind
	Status    types.AnalysisStatus
	Text      string
	Model     string
	CreatedAt time.Time
}

// AnalysisInput carries the commit metadata and diff summary handed to an
// analyzer.
type AnalysisInput struct {
	Agent        types.AgentKind
	Repo         string
	SHA          types.CommitSHA
	Author       string
	Message      string
	Branch       types.BranchName
	CommittedAt  time.Time
	ChangedFiles []string
}

// AnalysisOutput is the analyzer's successful response.
type AnalysisOutput struct {
	Text  string
	Model string
}

// AnalysisRecord is the analytics export shape for one analysis result.
// Timestamps are exported as UnixMicro because BigQuery's TIMESTAMP column
// expects microseconds, not time.Time JSON encoding.
type AnalysisRecord struct {
	Repo      string               `bigquery:"repo"`
	SHA       types.CommitSHA      `bigquery:"sha"`
	Agent     types.AgentKind      `bigquery:"agent"`
	Status    types.AnalysisStatus `bigquery:"status"`
	Text      string               `bigquery:"text"`
	Model     string               `bigquery:"model"`
	Timestamp int64                `bigquery:"timestamp"`
}
