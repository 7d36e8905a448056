package interfaces

//go:generate moq -out ../mock/store.go -pkg mock . Store

import (
	"context"
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// Store is the durable entity store for the ingestion pipeline. Every write
// operation is individually atomic; the event claim is the only point of
// mutual exclusion between workers.
type Store interface {
	// UpsertRepository creates the repository on first sighting or refreshes
	// its descriptive fields. (Owner, Name) is unique.
	UpsertRepository(ctx context.Context, repo *model.Repository) (types.RepoID, error)

	// UpsertCommit inserts the commit and its file changes atomically, or
	// reports wasNew=false when (SHA, RepoID) already exists. Concurrent
	// callers with the same key observe exactly one wasNew=true.
	UpsertCommit(ctx context.Context, repoID types.RepoID, commit *model.Commit) (types.CommitID, bool, error)

	// SaveAnalysis records an analyzer outcome. A successful row for the same
	// (CommitID, Agent) is never overwritten; a failed row is replaced.
	SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error
	GetAnalysis(ctx context.Context, commitID types.CommitID, agent types.AgentKind) (*model.AnalysisResult, error)

	// CreateEvent persists a pending event. A duplicate delivery ID yields
	// repository.ErrEventExists and no second row.
	CreateEvent(ctx context.Context, ev *model.Event) error

	// ClaimNextEvent atomically claims one claimable event (pending, or
	// failed_transient past its retry time) for exclusive processing. Returns
	// repository.ErrNoClaimableEvent when nothing is due.
	ClaimNextEvent(ctx context.Context, now time.Time) (*model.Event, error)

	MarkEventDone(ctx context.Context, id types.EventID, now time.Time) error
	MarkEventTransientFailure(ctx context.Context, id types.EventID, lastError string, nextRetryAt time.Time) error
	MarkEventPermanentFailure(ctx context.Context, id types.EventID, lastError string, now time.Time) error

	// ReclaimStaleEvents returns in_progress events older than the threshold
	// to pending. Used for crash recovery on startup.
	ReclaimStaleEvents(ctx context.Context, olderThan time.Time) (int, error)

	CountEventsByState(ctx context.Context) (map[types.EventState]int, error)
	GetEvent(ctx context.Context, id types.EventID) (*model.Event, error)

	// Read accessors for lookup endpoints and the reconciliation poller.
	HasCommit(ctx context.Context, repoID types.RepoID, sha types.CommitSHA) (bool, error)
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	ListRepositories(ctx context.Context) ([]*model.Repository, error)
	ListCommits(ctx context.Context, repoID types.RepoID, limit int) ([]*model.Commit, error)
}
