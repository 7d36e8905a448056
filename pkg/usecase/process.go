package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/errutil"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// ProcessEvent drives one claimed event to a state transition: done,
// failed_transient (with backoff), or failed_permanent. The caller must hold
// the claim. Store errors mid-flight are transient for the whole event;
// analyzer errors are scoped to the individual commit.
func (x *UseCase) ProcessEvent(ctx context.Context, ev *model.Event) error {
	logger := logging.From(ctx).With(
		slog.String("event_id", string(ev.ID)),
		slog.String("source", string(ev.Source)),
		slog.Int("attempt", ev.Attempts),
	)
	ctx = logging.With(ctx, logger)

	envelopes, err := model.NormalizeEvent(ev)
	if err != nil {
		if errors.Is(err, types.ErrMalformedPayload) {
			logger.Warn("event payload is malformed", slog.Any("error", err))
			return x.clients.Store().MarkEventPermanentFailure(ctx, ev.ID, err.Error(), logging.CtxTime(ctx))
		}
		return x.failEvent(ctx, ev, err)
	}

	retryable := false
	var lastErr error

	// Envelopes are applied in payload order: later commits may amend files
	// touched by earlier ones.
	for _, env := range envelopes {
		repoID, err := x.clients.Store().UpsertRepository(ctx, &env.Repo)
		if err != nil {
			return x.failEvent(ctx, ev, err)
		}

		commitID, wasNew, err := x.clients.Store().UpsertCommit(ctx, repoID, &env.Commit)
		if err != nil {
			return x.failEvent(ctx, ev, err)
		}
		if !wasNew {
			logger.Debug("commit already recorded",
				slog.String("sha", string(env.Commit.SHA)),
				slog.Int64("repo_id", int64(repoID)),
			)
		}

		commitRetryable, err := x.analyzeCommit(ctx, repoID, commitID, &env)
		if err != nil {
			return x.failEvent(ctx, ev, err)
		}
		if commitRetryable {
			retryable = true
			lastErr = fmt.Errorf("analyzer signaled retryable failure for commit %s", env.Commit.SHA)
		}
	}

	now := logging.CtxTime(ctx)
	if retryable {
		if ev.Attempts >= x.maxAttempts {
			msg := fmt.Sprintf("retry budget exhausted after %d attempts", ev.Attempts)
			logger.Error("event failed permanently", slog.String("reason", msg))
			return x.clients.Store().MarkEventPermanentFailure(ctx, ev.ID, msg, now)
		}

		delay := model.RetryBackoff(ev.Attempts, x.backoffBase, x.backoffMax)
		logger.Info("event scheduled for retry", slog.Duration("backoff", delay))
		return x.clients.Store().MarkEventTransientFailure(ctx, ev.ID, lastErr.Error(), now.Add(delay))
	}

	logger.Info("event processed", slog.Int("commits", len(envelopes)))
	return x.clients.Store().MarkEventDone(ctx, ev.ID, now)
}

// analyzeCommit runs every agent kind that has no successful result yet for
// the commit. It returns retryable=true when at least one analyzer signaled a
// transient condition; a returned error means the store itself failed.
func (x *UseCase) analyzeCommit(ctx context.Context, repoID types.RepoID, commitID types.CommitID, env *model.CommitEnvelope) (bool, error) {
	logger := logging.From(ctx)
	retryable := false

	for _, agent := range types.AllAgentKinds() {
		existing, err := x.clients.Store().GetAnalysis(ctx, commitID, agent)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		if existing != nil && existing.Status == types.AnalysisStatusOK {
			continue
		}

		out, err := x.clients.Analyzer().Analyze(ctx, &model.AnalysisInput{
			Agent:        agent,
			Repo:         env.Repo.FullName(),
			SHA:          env.Commit.SHA,
			Author:       env.Commit.Author,
			Message:      env.Commit.Message,
			Branch:       env.Commit.Branch,
			CommittedAt:  env.Commit.CommittedAt,
			ChangedFiles: env.Commit.ChangedPaths(),
		})

		now := logging.CtxTime(ctx)
		switch {
		case err == nil:
			result := &model.AnalysisResult{
				CommitID:  commitID,
				RepoID:    repoID,
				SHA:       env.Commit.SHA,
				Agent:     agent,
				Status:    types.AnalysisStatusOK,
				Text:      out.Text,
				Model:     out.Model,
				CreatedAt: now,
			}
			if err := x.clients.Store().SaveAnalysis(ctx, result); err != nil {
				return false, err
			}
			if err := x.ExportAnalysis(ctx, &env.Repo, result); err != nil {
				// Analytics export is best-effort; the pipeline result is
				// already durable.
				errutil.HandleError(ctx, "failed to export analysis record", err)
			}

		case errors.Is(err, types.ErrAnalysisRetryable):
			logger.Warn("analyzer signaled retryable failure",
				slog.String("sha", string(env.Commit.SHA)),
				slog.String("agent", string(agent)),
				slog.Any("error", err),
			)
			retryable = true

		default:
			logger.Error("analyzer failed permanently",
				slog.String("sha", string(env.Commit.SHA)),
				slog.String("agent", string(agent)),
				slog.Any("error", err),
			)
			result := &model.AnalysisResult{
				CommitID:  commitID,
				RepoID:    repoID,
				SHA:       env.Commit.SHA,
				Agent:     agent,
				Status:    types.AnalysisStatusFailed,
				Text:      err.Error(),
				CreatedAt: now,
			}
			if err := x.clients.Store().SaveAnalysis(ctx, result); err != nil {
				return false, err
			}
		}
	}

	return retryable, nil
}

// failEvent records a store-level failure: transient while the retry budget
// lasts, permanent after.
func (x *UseCase) failEvent(ctx context.Context, ev *model.Event, cause error) error {
	logger := logging.From(ctx)
	now := logging.CtxTime(ctx)

	if ev.Attempts >= x.maxAttempts {
		msg := fmt.Sprintf("retry budget exhausted after %d attempts: %s", ev.Attempts, cause.Error())
		logger.Error("event failed permanently", slog.Any("error", cause))
		return x.clients.Store().MarkEventPermanentFailure(ctx, ev.ID, msg, now)
	}

	delay := model.RetryBackoff(ev.Attempts, x.backoffBase, x.backoffMax)
	logger.Warn("event failed, scheduling retry",
		slog.Any("error", cause),
		slog.Duration("backoff", delay),
	)
	return x.clients.Store().MarkEventTransientFailure(ctx, ev.ID, cause.Error(), now.Add(delay))
}
