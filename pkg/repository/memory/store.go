package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// New creates a new in-memory store. Used for tests and local development.
func New() interfaces.Store {
	return &store{
		repos:    make(map[string]*model.Repository),
		commits:  make(map[types.RepoID]map[types.CommitSHA]*model.Commit),
		analyses: make(map[types.CommitID]map[types.AgentKind]*model.AnalysisResult),
		events:   make(map[types.EventID]*model.Event),
		devIndex: make(map[string]types.EventID),
	}
}

type store struct {
	mu sync.RWMutex

	repos    map[string]*model.Repository
	commits  map[types.RepoID]map[types.CommitSHA]*model.Commit
	analyses map[types.CommitID]map[types.AgentKind]*model.AnalysisResult
	events   map[types.EventID]*model.Event
	devIndex map[string]types.EventID

	nextRepoID   types.RepoID
	nextCommitID types.CommitID
}

// Repository operations

func (r *store) UpsertRepository(ctx context.Context, repo *model.Repository) (types.RepoID, error) {
	if err := repo.Validate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := repo.Owner + "/" + repo.Name
	if existing, ok := r.repos[key]; ok {
		existing.Description = repo.Description
		existing.Language = repo.Language
		existing.Private = repo.Private
		existing.UpdatedAt = time.Now().UTC()
		return existing.ID, nil
	}

	r.nextRepoID++
	stored := copyRepository(repo)
	stored.ID = r.nextRepoID
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.repos[key] = stored

	return stored.ID, nil
}

func (r *store) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repo, ok := r.repos[owner+"/"+name]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "repository not found",
			goerr.V("owner", owner),
			goerr.V("name", name),
		)
	}
	return copyRepository(repo), nil
}

func (r *store) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repos := make([]*model.Repository, 0, len(r.repos))
	for _, repo := range r.repos {
		repos = append(repos, copyRepository(repo))
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].ID < repos[j].ID })

	return repos, nil
}

// Commit operations

func (r *store) UpsertCommit(ctx context.Context, repoID types.RepoID, commit *model.Commit) (types.CommitID, bool, error) {
	if err := commit.Validate(); err != nil {
		return 0, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.repoExists(repoID) {
		return 0, false, goerr.Wrap(repository.ErrNotFound, "repository not found", goerr.V("repoID", repoID))
	}

	byRepo, ok := r.commits[repoID]
	if !ok {
		byRepo = make(map[types.CommitSHA]*model.Commit)
		r.commits[repoID] = byRepo
	}

	if existing, ok := byRepo[commit.SHA]; ok {
		return existing.ID, false, nil
	}

	r.nextCommitID++
	stored := copyCommit(commit)
	stored.ID = r.nextCommitID
	stored.RepoID = repoID
	stored.CreatedAt = time.Now().UTC()
	byRepo[commit.SHA] = stored

	return stored.ID, true, nil
}

func (r *store) HasCommit(ctx context.Context, repoID types.RepoID, sha types.CommitSHA) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byRepo, ok := r.commits[repoID]
	if !ok {
		return false, nil
	}
	_, ok = byRepo[sha]
	return ok, nil
}

func (r *store) ListCommits(ctx context.Context, repoID types.RepoID, limit int) ([]*model.Commit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var commits []*model.Commit
	for _, c := range r.commits[repoID] {
		commits = append(commits, copyCommit(c))
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].ID > commits[j].ID })
	if limit > 0 && len(commits) > limit {
		commits = commits[:limit]
	}

	return commits, nil
}

// Analysis operations

func (r *store) SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAgent, ok := r.analyses[result.CommitID]
	if !ok {
		byAgent = make(map[types.AgentKind]*model.AnalysisResult)
		r.analyses[result.CommitID] = byAgent
	}

	if existing, ok := byAgent[result.Agent]; ok && existing.Status == types.AnalysisStatusOK {
		// A successful analysis is never overwritten.
		return nil
	}

	stored := *result
	byAgent[result.Agent] = &stored

	return nil
}

func (r *store) GetAnalysis(ctx context.Context, commitID types.CommitID, agent types.AgentKind) (*model.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byAgent, ok := r.analyses[commitID]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "analysis not found", goerr.V("commitID", commitID))
	}
	result, ok := byAgent[agent]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "analysis not found",
			goerr.V("commitID", commitID),
			goerr.V("agent", agent),
		)
	}

	copied := *result
	return &copied, nil
}

// Event operations

func (r *store) CreateEvent(ctx context.Context, ev *model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.DeliveryID != "" {
		if _, ok := r.devIndex[ev.DeliveryID]; ok {
			return goerr.Wrap(repository.ErrEventExists, "duplicate delivery ID", goerr.V("deliveryID", ev.DeliveryID))
		}
	}

	stored := copyEvent(ev)
	r.events[ev.ID] = stored
	if ev.DeliveryID != "" {
		r.devIndex[ev.DeliveryID] = ev.ID
	}

	return nil
}

func (r *store) ClaimNextEvent(ctx context.Context, now time.Time) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidate *model.Event
	for _, ev := range r.events {
		if !ev.Claimable(now) {
			continue
		}
		if candidate == nil || ev.ReceivedAt.Before(candidate.ReceivedAt) {
			candidate = ev
		}
	}
	if candidate == nil {
		return nil, goerr.Wrap(repository.ErrNoClaimableEvent, "no claimable event")
	}

	candidate.State = types.EventStateInProgress
	candidate.Attempts++
	candidate.ClaimedAt = now

	return copyEvent(candidate), nil
}

func (r *store) MarkEventDone(ctx context.Context, id types.EventID, now time.Time) error {
	return r.transition(id, func(ev *model.Event) {
		ev.State = types.EventStateDone
		ev.LastError = ""
		ev.ProcessedAt = now
	})
}

func (r *store) MarkEventTransientFailure(ctx context.Context, id types.EventID, lastError string, nextRetryAt time.Time) error {
	return r.transition(id, func(ev *model.Event) {
		ev.State = types.EventStateFailedTransient
		ev.LastError = lastError
		ev.NextRetryAt = nextRetryAt
	})
}

func (r *store) MarkEventPermanentFailure(ctx context.Context, id types.EventID, lastError string, now time.Time) error {
	return r.transition(id, func(ev *model.Event) {
		ev.State = types.EventStateFailedPermanent
		ev.LastError = lastError
		ev.ProcessedAt = now
	})
}

// transition applies a state mutation unless the event is already terminal.
// Terminal states never regress.
func (r *store) transition(id types.EventID, apply func(ev *model.Event)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return goerr.Wrap(repository.ErrNotFound, "event not found", goerr.V("eventID", id))
	}
	if ev.State.IsTerminal() {
		return goerr.Wrap(repository.ErrInvalidInput, "event already terminal",
			goerr.V("eventID", id),
			goerr.V("state", ev.State),
		)
	}

	apply(ev)
	return nil
}

func (r *store) ReclaimStaleEvents(ctx context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reclaimed int
	for _, ev := range r.events {
		if ev.State == types.EventStateInProgress && ev.ClaimedAt.Before(olderThan) {
			ev.State = types.EventStatePending
			reclaimed++
		}
	}

	return reclaimed, nil
}

func (r *store) CountEventsByState(ctx context.Context) (map[types.EventState]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[types.EventState]int)
	for _, ev := range r.events {
		counts[ev.State]++
	}

	return counts, nil
}

func (r *store) GetEvent(ctx context.Context, id types.EventID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "event not found", goerr.V("eventID", id))
	}

	return copyEvent(ev), nil
}

func (r *store) repoExists(repoID types.RepoID) bool {
	for _, repo := range r.repos {
		if repo.ID == repoID {
			return true
		}
	}
	return false
}

func copyRepository(repo *model.Repository) *model.Repository {
	copied := *repo
	return &copied
}

func copyCommit(commit *model.Commit) *model.Commit {
	copied := *commit
	copied.Files = append([]model.FileChange{}, commit.Files...)
	if commit.Metadata != nil {
		copied.Metadata = make(map[string]string, len(commit.Metadata))
		for k, v := range commit.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

func copyEvent(ev *model.Event) *model.Event {
	copied := *ev
	copied.RawPayload = append([]byte{}, ev.RawPayload...)
	return &copied
}
