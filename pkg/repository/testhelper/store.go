package testhelper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

// TestAll runs the conformance suite against a Store implementation. Both the
// in-memory and the Postgres store must pass it.
func TestAll(t *testing.T, store interfaces.Store) {
	t.Run("RepositoryUpsert", func(t *testing.T) {
		TestRepositoryUpsert(t, store)
	})
	t.Run("CommitUpsert", func(t *testing.T) {
		TestCommitUpsert(t, store)
	})
	t.Run("ConcurrentCommitUpsert", func(t *testing.T) {
		TestConcurrentCommitUpsert(t, store)
	})
	t.Run("AnalysisRecording", func(t *testing.T) {
		TestAnalysisRecording(t, store)
	})
	t.Run("EventLifecycle", func(t *testing.T) {
		TestEventLifecycle(t, store)
	})
	t.Run("EventClaimExclusivity", func(t *testing.T) {
		TestEventClaimExclusivity(t, store)
	})
	t.Run("StaleEventReclaim", func(t *testing.T) {
		TestStaleEventReclaim(t, store)
	})
}

// NewSHA returns a unique valid commit SHA for tests.
func NewSHA() types.CommitSHA {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return types.CommitSHA(hex + hex[:8])
}

func newRepo() *model.Repository {
	suffix := uuid.NewString()[:8]
	return &model.Repository{
		Owner:    fmt.Sprintf("owner-%s", suffix),
		Name:     fmt.Sprintf("repo-%s", suffix),
		Language: "Go",
	}
}

func newCommit(sha types.CommitSHA) *model.Commit {
	return &model.Commit{
		SHA:         sha,
		Author:      "octocat",
		AuthorEmail: "octocat@example.com",
		Message:     "add widget",
		Branch:      "main",
		CommittedAt: time.Now().UTC().Truncate(time.Second),
		Files: []model.FileChange{
			{Path: "widget.go", Kind: types.ChangeKindAdded},
			{Path: "widget_test.go", Kind: types.ChangeKindAdded},
		},
		Metadata: map[string]string{"pusher": "octocat"},
	}
}

func TestRepositoryUpsert(t *testing.T, store interfaces.Store) {
	ctx := context.Background()
	repo := newRepo()

	id, err := store.UpsertRepository(ctx, repo)
	gt.NoError(t, err)
	gt.N(t, int64(id)).Greater(0)

	// Second upsert with updated attributes keeps the same identity
	repo.Description = "updated"
	id2, err := store.UpsertRepository(ctx, repo)
	gt.NoError(t, err)
	gt.V(t, id2).Equal(id)

	got, err := store.GetRepository(ctx, repo.Owner, repo.Name)
	gt.NoError(t, err)
	gt.V(t, got.Description).Equal("updated")

	_, err = store.GetRepository(ctx, repo.Owner, "no-such-repo")
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCommitUpsert(t *testing.T, store interfaces.Store) {
	ctx := context.Background()

	repoID, err := store.UpsertRepository(ctx, newRepo())
	gt.NoError(t, err)

	sha := NewSHA()
	commitID, wasNew, err := store.UpsertCommit(ctx, repoID, newCommit(sha))
	gt.NoError(t, err)
	gt.True(t, wasNew)

	// Re-ingestion of the same (SHA, repo) is a no-op, not a duplicate
	commitID2, wasNew2, err := store.UpsertCommit(ctx, repoID, newCommit(sha))
	gt.NoError(t, err)
	gt.False(t, wasNew2)
	gt.V(t, commitID2).Equal(commitID)

	exists, err := store.HasCommit(ctx, repoID, sha)
	gt.NoError(t, err)
	gt.True(t, exists)

	commits, err := store.ListCommits(ctx, repoID, 10)
	gt.NoError(t, err)
	gt.A(t, commits).Length(1).At(0, func(t testing.TB, v *model.Commit) {
		gt.V(t, v.SHA).Equal(sha)
		gt.A(t, v.Files).Length(2)
	})

	// Invalid SHA is rejected
	_, _, err = store.UpsertCommit(ctx, repoID, newCommit("not-a-sha"))
	gt.Error(t, err)
}

func TestConcurrentCommitUpsert(t *testing.T, store interfaces.Store) {
	ctx := context.Background()

	repoID, err := store.UpsertRepository(ctx, newRepo())
	gt.NoError(t, err)

	const n = 16
	sha := NewSHA()

	var wg sync.WaitGroup
	newCount := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, wasNew, err := store.UpsertCommit(ctx, repoID, newCommit(sha))
			if err != nil {
				t.Error(err)
				return
			}
			newCount <- wasNew
		}()
	}
	wg.Wait()
	close(newCount)

	var winners int
	for wasNew := range newCount {
		if wasNew {
			winners++
		}
	}
	gt.V(t, winners).Equal(1)
}

func TestAnalysisRecording(t *testing.T, store interfaces.Store) {
	ctx := context.Background()

	repoID, err := store.UpsertRepository(ctx, newRepo())
	gt.NoError(t, err)
	sha := NewSHA()
	commitID, _, err := store.UpsertCommit(ctx, repoID, newCommit(sha))
	gt.NoError(t, err)

	failed := &model.AnalysisResult{
		CommitID:  commitID,
		RepoID:    repoID,
		SHA:       sha,
		Agent:     types.AgentCodeAnalysis,
		Status:    types.AnalysisStatusFailed,
		Text:      "model unavailable",
		CreatedAt: time.Now().UTC(),
	}
	gt.NoError(t, store.SaveAnalysis(ctx, failed))

	// A retry after failure replaces the failed row
	ok := &model.AnalysisResult{
		CommitID:  commitID,
		RepoID:    repoID,
		SHA:       sha,
		Agent:     types.AgentCodeAnalysis,
		Status:    types.AnalysisStatusOK,
		Text:      "looks fine",
		Model:     "codellama:7b",
		CreatedAt: time.Now().UTC(),
	}
	gt.NoError(t, store.SaveAnalysis(ctx, ok))

	got, err := store.GetAnalysis(ctx, commitID, types.AgentCodeAnalysis)
	gt.NoError(t, err)
	gt.V(t, got.Status).Equal(types.AnalysisStatusOK)
	gt.V(t, got.Text).Equal("looks fine")

	// A successful row is never overwritten
	failed.CreatedAt = time.Now().UTC()
	gt.NoError(t, store.SaveAnalysis(ctx, failed))

	got, err = store.GetAnalysis(ctx, commitID, types.AgentCodeAnalysis)
	gt.NoError(t, err)
	gt.V(t, got.Status).Equal(types.AnalysisStatusOK)

	_, err = store.GetAnalysis(ctx, commitID, types.AgentCommitAnalysis)
	gt.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestEventLifecycle(t *testing.T, store interfaces.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	deliveryID := uuid.NewString()
	ev := model.NewEvent(types.EventSourceWebhook, "push", deliveryID, []byte(`{"ref":"refs/heads/main"}`), now)
	gt.NoError(t, store.CreateEvent(ctx, ev))

	// Duplicate delivery ID must not create a second event
	dup := model.NewEvent(types.EventSourceWebhook, "push", deliveryID, []byte(`{"ref":"refs/heads/main"}`), now)
	err := store.CreateEvent(ctx, dup)
	gt.True(t, errors.Is(err, repository.ErrEventExists))

	claimed, err := store.ClaimNextEvent(ctx, now.Add(time.Second))
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(ev.ID)
	gt.V(t, claimed.State).Equal(types.EventStateInProgress)
	gt.V(t, claimed.Attempts).Equal(1)

	// Transient failure schedules a retry
	retryAt := now.Add(time.Minute)
	gt.NoError(t, store.MarkEventTransientFailure(ctx, ev.ID, "analyzer timeout", retryAt))

	// Not yet due
	_, err = store.ClaimNextEvent(ctx, now.Add(30*time.Second))
	gt.True(t, errors.Is(err, repository.ErrNoClaimableEvent))

	// Due after the backoff expires
	claimed, err = store.ClaimNextEvent(ctx, retryAt.Add(time.Second))
	gt.NoError(t, err)
	gt.V(t, claimed.Attempts).Equal(2)

	gt.NoError(t, store.MarkEventDone(ctx, ev.ID, retryAt.Add(2*time.Second)))

	got, err := store.GetEvent(ctx, ev.ID)
	gt.NoError(t, err)
	gt.V(t, got.State).Equal(types.EventStateDone)
	gt.False(t, got.ProcessedAt.IsZero())

	// Terminal states never regress
	gt.Error(t, store.MarkEventTransientFailure(ctx, ev.ID, "late failure", retryAt.Add(time.Hour)))

	got, err = store.GetEvent(ctx, ev.ID)
	gt.NoError(t, err)
	gt.V(t, got.State).Equal(types.EventStateDone)
}

func TestEventClaimExclusivity(t *testing.T, store interfaces.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	ev := model.NewEvent(types.EventSourcePoll, "", uuid.NewString(), []byte(`{}`), now)
	gt.NoError(t, store.CreateEvent(ctx, ev))

	const n = 8
	var wg sync.WaitGroup
	claims := make(chan types.EventID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.ClaimNextEvent(ctx, now.Add(time.Second))
			if err != nil {
				return
			}
			if claimed.ID == ev.ID {
				claims <- claimed.ID
			} else {
				// Claimed an event left over from another subtest; release it.
				_ = store.MarkEventTransientFailure(ctx, claimed.ID, "released by test", now)
			}
		}()
	}
	wg.Wait()
	close(claims)

	var winners int
	for range claims {
		winners++
	}
	gt.V(t, winners).Equal(1)

	gt.NoError(t, store.MarkEventDone(ctx, ev.ID, now.Add(2*time.Second)))
}

func TestStaleEventReclaim(t *testing.T, store interfaces.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	ev := model.NewEvent(types.EventSourceWebhook, "push", uuid.NewString(), []byte(`{}`), now.Add(-time.Hour))
	gt.NoError(t, store.CreateEvent(ctx, ev))

	claimed, err := store.ClaimNextEvent(ctx, now.Add(-30*time.Minute))
	gt.NoError(t, err)
	gt.V(t, claimed.ID).Equal(ev.ID)

	// The claim is older than the staleness threshold; a restart reclaims it.
	n, err := store.ReclaimStaleEvents(ctx, now.Add(-10*time.Minute))
	gt.NoError(t, err)
	gt.N(t, n).GreaterOrEqual(1)

	got, err := store.GetEvent(ctx, ev.ID)
	gt.NoError(t, err)
	gt.V(t, got.State).Equal(types.EventStatePending)

	counts, err := store.CountEventsByState(ctx)
	gt.NoError(t, err)
	gt.N(t, counts[types.EventStatePending]).GreaterOrEqual(1)

	// Drain it so later subtests see a clean claim queue.
	claimed, err = store.ClaimNextEvent(ctx, now)
	gt.NoError(t, err)
	gt.NoError(t, store.MarkEventDone(ctx, claimed.ID, now))
}
