package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/safe"
)

const pgUniqueViolation = "23505"

type store struct {
	pool *pgxpool.Pool
}

// wrapStoreErr maps low-level pgx failures to repository.ErrUnavailable so the
// dispatcher can treat them as transient.
func wrapStoreErr(err error, msg string) error {
	return goerr.Wrap(repository.ErrUnavailable, msg, goerr.V("cause", err.Error()))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Repository operations

func (r *store) UpsertRepository(ctx context.Context, repo *model.Repository) (types.RepoID, error) {
	if err := repo.Validate(); err != nil {
		return 0, err
	}

	var id types.RepoID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO repositories (owner, name, description, language, private)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner, name) DO UPDATE SET
			description = EXCLUDED.description,
			language = EXCLUDED.language,
			private = EXCLUDED.private,
			updated_at = now()
		RETURNING id`,
		repo.Owner, repo.Name, repo.Description, repo.Language, repo.Private,
	).Scan(&id)
	if err != nil {
		return 0, wrapStoreErr(err, "failed to upsert repository")
	}

	return id, nil
}

func (r *store) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner, name, description, language, private, created_at, updated_at
		FROM repositories WHERE owner = $1 AND name = $2`,
		owner, name,
	)

	repo, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "repository not found",
			goerr.V("owner", owner),
			goerr.V("name", name),
		)
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to get repository")
	}

	return repo, nil
}

func (r *store) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner, name, description, language, private, created_at, updated_at
		FROM repositories ORDER BY id`)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list repositories")
	}
	defer rows.Close()

	var repos []*model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to scan repository")
		}
		repos = append(repos, repo)
	}

	return repos, rows.Err()
}

func scanRepository(row pgx.Row) (*model.Repository, error) {
	var repo model.Repository
	err := row.Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.Description, &repo.Language, &repo.Private, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// Commit operations

func (r *store) UpsertCommit(ctx context.Context, repoID types.RepoID, commit *model.Commit) (types.CommitID, bool, error) {
	if err := commit.Validate(); err != nil {
		return 0, false, err
	}

	metadata, err := json.Marshal(commit.Metadata)
	if err != nil {
		return 0, false, goerr.Wrap(err, "failed to marshal commit metadata")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, false, wrapStoreErr(err, "failed to begin transaction")
	}
	defer safe.Rollback(ctx, tx)

	// The commit row and its file-change list commit together or not at all.
	var id types.CommitID
	err = tx.QueryRow(ctx, `
		INSERT INTO commits (repository_id, sha, author, author_email, message, branch, committed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (repository_id, sha) DO NOTHING
		RETURNING id`,
		repoID, commit.SHA, commit.Author, commit.AuthorEmail, commit.Message, commit.Branch,
		nullableTime(commit.CommittedAt), metadata,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race or re-ingestion: report the existing row.
		var existingID types.CommitID
		err := tx.QueryRow(ctx, `SELECT id FROM commits WHERE repository_id = $1 AND sha = $2`,
			repoID, commit.SHA,
		).Scan(&existingID)
		if err != nil {
			return 0, false, wrapStoreErr(err, "failed to look up existing commit")
		}
		return existingID, false, nil
	}
	if err != nil {
		return 0, false, wrapStoreErr(err, "failed to insert commit")
	}

	for i, f := range commit.Files {
		if _, err := tx.Exec(ctx, `
			INSERT INTO commit_files (commit_id, position, path, kind) VALUES ($1, $2, $3, $4)`,
			id, i, f.Path, f.Kind,
		); err != nil {
			return 0, false, wrapStoreErr(err, "failed to insert commit file")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, wrapStoreErr(err, "failed to commit transaction")
	}

	return id, true, nil
}

func (r *store) HasCommit(ctx context.Context, repoID types.RepoID, sha types.CommitSHA) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM commits WHERE repository_id = $1 AND sha = $2)`,
		repoID, sha,
	).Scan(&exists)
	if err != nil {
		return false, wrapStoreErr(err, "failed to check commit existence")
	}
	return exists, nil
}

func (r *store) ListCommits(ctx context.Context, repoID types.RepoID, limit int) ([]*model.Commit, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, repository_id, sha, author, author_email, message, branch, committed_at, metadata, created_at
		FROM commits WHERE repository_id = $1 ORDER BY id DESC LIMIT $2`,
		repoID, limit,
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list commits")
	}
	defer rows.Close()

	var commits []*model.Commit
	for rows.Next() {
		commit, err := scanCommit(rows)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to scan commit")
		}
		commits = append(commits, commit)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(err, "failed to iterate commits")
	}

	for _, commit := range commits {
		files, err := r.listCommitFiles(ctx, commit.ID)
		if err != nil {
			return nil, err
		}
		commit.Files = files
	}

	return commits, nil
}

func (r *store) listCommitFiles(ctx context.Context, commitID types.CommitID) ([]model.FileChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT path, kind FROM commit_files WHERE commit_id = $1 ORDER BY position`,
		commitID,
	)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list commit files")
	}
	defer rows.Close()

	var files []model.FileChange
	for rows.Next() {
		var f model.FileChange
		if err := rows.Scan(&f.Path, &f.Kind); err != nil {
			return nil, wrapStoreErr(err, "failed to scan commit file")
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

func scanCommit(row pgx.Row) (*model.Commit, error) {
	var (
		commit      model.Commit
		committedAt pgtype.Timestamptz
		metadata    []byte
	)
	err := row.Scan(&commit.ID, &commit.RepoID, &commit.SHA, &commit.Author, &commit.AuthorEmail,
		&commit.Message, &commit.Branch, &committedAt, &metadata, &commit.CreatedAt)
	if err != nil {
		return nil, err
	}
	if committedAt.Valid {
		commit.CommittedAt = committedAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &commit.Metadata); err != nil {
			return nil, err
		}
	}
	return &commit, nil
}

// Analysis operations

func (r *store) SaveAnalysis(ctx context.Context, result *model.AnalysisResult) error {
	// A successful row wins over any later write; a failed row is replaced.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_results (commit_id, agent, status, analysis, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (commit_id, agent) DO UPDATE SET
			status = EXCLUDED.status,
			analysis = EXCLUDED.analysis,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at
		WHERE analysis_results.status <> 'ok'`,
		result.CommitID, result.Agent, result.Status, result.Text, result.Model, result.CreatedAt,
	)
	if err != nil {
		return wrapStoreErr(err, "failed to save analysis result")
	}

	return nil
}

func (r *store) GetAnalysis(ctx context.Context, commitID types.CommitID, agent types.AgentKind) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	err := r.pool.QueryRow(ctx, `
		SELECT c.repository_id, c.sha, a.commit_id, a.agent, a.status, a.analysis, a.model, a.created_at
		FROM analysis_results a JOIN commits c ON c.id = a.commit_id
		WHERE a.commit_id = $1 AND a.agent = $2`,
		commitID, agent,
	).Scan(&result.RepoID, &result.SHA, &result.CommitID, &result.Agent, &result.Status, &result.Text, &result.Model, &result.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "analysis not found",
			goerr.V("commitID", commitID),
			goerr.V("agent", agent),
		)
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to get analysis result")
	}

	return &result, nil
}

// Event operations

func (r *store) CreateEvent(ctx context.Context, ev *model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, source, delivery_id, webhook_event, raw_payload, state, attempts, last_error, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.Source, ev.DeliveryID, ev.WebhookEvent, ev.RawPayload, ev.State, ev.Attempts, ev.LastError, ev.ReceivedAt,
	)
	if isUniqueViolation(err) {
		return goerr.Wrap(repository.ErrEventExists, "duplicate delivery ID", goerr.V("deliveryID", ev.DeliveryID))
	}
	if err != nil {
		return wrapStoreErr(err, "failed to create event")
	}

	return nil
}

func (r *store) ClaimNextEvent(ctx context.Context, now time.Time) (*model.Event, error) {
	// SKIP LOCKED makes the claim a compare-and-set: two workers never take
	// the same event.
	row := r.pool.QueryRow(ctx, `
		UPDATE events SET state = 'in_progress', attempts = attempts + 1, claimed_at = $1
		WHERE id = (
			SELECT id FROM events
			WHERE state = 'pending' OR (state = 'failed_transient' AND next_retry_at <= $1)
			ORDER BY received_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, source, delivery_id, webhook_event, raw_payload, state, attempts, last_error,
			received_at, claimed_at, next_retry_at, processed_at`,
		now,
	)

	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNoClaimableEvent, "no claimable event")
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to claim event")
	}

	return ev, nil
}

func (r *store) MarkEventDone(ctx context.Context, id types.EventID, now time.Time) error {
	return r.transition(ctx, id, `
		UPDATE events SET state = 'done', last_error = '', processed_at = $2
		WHERE id = $1 AND state NOT IN ('done', 'failed_permanent')`, now)
}

func (r *store) MarkEventTransientFailure(ctx context.Context, id types.EventID, lastError string, nextRetryAt time.Time) error {
	return r.transition(ctx, id, `
		UPDATE events SET state = 'failed_transient', last_error = $3, next_retry_at = $2
		WHERE id = $1 AND state NOT IN ('done', 'failed_permanent')`, nextRetryAt, lastError)
}

func (r *store) MarkEventPermanentFailure(ctx context.Context, id types.EventID, lastError string, now time.Time) error {
	return r.transition(ctx, id, `
		UPDATE events SET state = 'failed_permanent', last_error = $3, processed_at = $2
		WHERE id = $1 AND state NOT IN ('done', 'failed_permanent')`, now, lastError)
}

func (r *store) transition(ctx context.Context, id types.EventID, query string, args ...any) error {
	allArgs := append([]any{id}, args...)
	tag, err := r.pool.Exec(ctx, query, allArgs...)
	if err != nil {
		return wrapStoreErr(err, "failed to update event state")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetEvent(ctx, id); err != nil {
			return err
		}
		return goerr.Wrap(repository.ErrInvalidInput, "event already terminal", goerr.V("eventID", id))
	}

	return nil
}

func (r *store) ReclaimStaleEvents(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET state = 'pending'
		WHERE state = 'in_progress' AND claimed_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, wrapStoreErr(err, "failed to reclaim stale events")
	}

	return int(tag.RowsAffected()), nil
}

func (r *store) CountEventsByState(ctx context.Context) (map[types.EventState]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT state, count(*) FROM events GROUP BY state`)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to count events")
	}
	defer rows.Close()

	counts := make(map[types.EventState]int)
	for rows.Next() {
		var (
			state types.EventState
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, wrapStoreErr(err, "failed to scan event count")
		}
		counts[state] = count
	}

	return counts, rows.Err()
}

func (r *store) GetEvent(ctx context.Context, id types.EventID) (*model.Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, source, delivery_id, webhook_event, raw_payload, state, attempts, last_error,
			received_at, claimed_at, next_retry_at, processed_at
		FROM events WHERE id = $1`,
		id,
	)

	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(repository.ErrNotFound, "event not found", goerr.V("eventID", id))
	}
	if err != nil {
		return nil, wrapStoreErr(err, "failed to get event")
	}

	return ev, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		ev                               model.Event
		claimedAt, nextRetry, processedAt pgtype.Timestamptz
	)
	err := row.Scan(&ev.ID, &ev.Source, &ev.DeliveryID, &ev.WebhookEvent, &ev.RawPayload, &ev.State,
		&ev.Attempts, &ev.LastError, &ev.ReceivedAt, &claimedAt, &nextRetry, &processedAt)
	if err != nil {
		return nil, err
	}
	if claimedAt.Valid {
		ev.ClaimedAt = claimedAt.Time
	}
	if nextRetry.Valid {
		ev.NextRetryAt = nextRetry.Time
	}
	if processedAt.Valid {
		ev.ProcessedAt = processedAt.Time
	}
	return &ev, nil
}

func nullableTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
