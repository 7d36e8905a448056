package usecase

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/errutil"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// Drain runs the worker pool until no claimable event remains. Each worker
// loops claim-process-transition; the claim is the only coordination point,
// so workers never touch the same event. Drain returns when the queue is
// empty or ctx is canceled between claims.
func (x *UseCase) Drain(ctx context.Context) error {
	var eg errgroup.Group
	eg.SetLimit(x.workers)

	for i := 0; i < x.workers; i++ {
		eg.Go(func() error {
			return x.drainWorker(ctx)
		})
	}

	return eg.Wait()
}

func (x *UseCase) drainWorker(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		ev, err := x.clients.Store().ClaimNextEvent(ctx, logging.CtxTime(ctx))
		if err != nil {
			if errors.Is(err, repository.ErrNoClaimableEvent) {
				return nil
			}
			return err
		}

		// Once claimed, the event is finished even when the caller is shutting
		// down; abandoning it here would strand it in_progress until the stale
		// reclaim sweep.
		procCtx := logging.InheritContextValues(context.WithoutCancel(ctx), ctx)
		procCtx = logging.With(procCtx, logging.From(ctx))

		if err := x.ProcessEvent(procCtx, ev); err != nil {
			errutil.HandleError(procCtx, "failed to transition event", err)
			x.logStrandedEvent(procCtx, ev, err)
		}
	}
}

func (x *UseCase) logStrandedEvent(ctx context.Context, ev *model.Event, err error) {
	logging.From(ctx).Error("event left in_progress, stale reclaim will recover it",
		slog.String("event_id", string(ev.ID)),
		slog.Any("error", err),
	)
}
