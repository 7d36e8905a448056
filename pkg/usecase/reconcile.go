package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// Reconcile polls the tracked repositories for commits that never arrived via
// webhook and enqueues them as poll events. The synthesized delivery ID makes
// repeated sightings of the same commit idempotent, and commits already in
// the store are skipped before enqueueing at all.
func (x *UseCase) Reconcile(ctx context.Context) error {
	if x.clients.CodeHost() == nil || len(x.trackedRepos) == 0 {
		return nil
	}

	var eg errgroup.Group
	eg.SetLimit(x.workers)

	for _, tr := range x.trackedRepos {
		eg.Go(func() error {
			return x.reconcileRepo(ctx, tr)
		})
	}

	return eg.Wait()
}

func (x *UseCase) reconcileRepo(ctx context.Context, tr TrackedRepo) error {
	logger := logging.From(ctx).With(slog.String("repo", tr.Owner+"/"+tr.Name))

	repo, err := x.clients.CodeHost().GetRepository(ctx, tr.Owner, tr.Name)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch repository",
			goerr.V("owner", tr.Owner),
			goerr.V("name", tr.Name),
		)
	}

	repoID, err := x.clients.Store().UpsertRepository(ctx, repo)
	if err != nil {
		return err
	}

	commits, err := x.clients.CodeHost().ListRecentCommits(ctx, tr.Owner, tr.Name, x.pollLimit)
	if err != nil {
		return goerr.Wrap(err, "failed to list recent commits",
			goerr.V("owner", tr.Owner),
			goerr.V("name", tr.Name),
		)
	}

	enqueued := 0
	for _, pc := range commits {
		known, err := x.clients.Store().HasCommit(ctx, repoID, types.CommitSHA(pc.SHA))
		if err != nil {
			return err
		}
		if known {
			continue
		}

		payload := model.PollPayload{
			Repository: model.PollRepository{
				Owner:       repo.Owner,
				Name:        repo.Name,
				Description: repo.Description,
				Language:    repo.Language,
				Private:     repo.Private,
			},
			Commit: *pc,
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return goerr.Wrap(err, "failed to encode poll payload", goerr.V("sha", pc.SHA))
		}

		deliveryID := fmt.Sprintf("poll:%s/%s:%s", tr.Owner, tr.Name, pc.SHA)
		ev := model.NewEvent(types.EventSourcePoll, "", deliveryID, raw, logging.CtxTime(ctx))

		if err := x.clients.Store().CreateEvent(ctx, ev); err != nil {
			if errors.Is(err, repository.ErrEventExists) {
				continue
			}
			return err
		}
		enqueued++
	}

	if enqueued > 0 {
		logger.Info("reconciliation enqueued missed commits", slog.Int("count", enqueued))
	}

	return nil
}
