package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/utils/errutil"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

const defaultStaleThreshold = 10 * time.Minute

// Orchestrator owns the pipeline lifecycle: the periodic
// reclaim-reconcile-drain cycle, one-shot runs, and a status snapshot for
// the API. It is safe for concurrent use.
type Orchestrator struct {
	uc             *UseCase
	staleThreshold time.Duration

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastCycleAt time.Time
}

type OrchestratorOption func(*Orchestrator)

// WithStaleThreshold sets how long an in_progress event may sit unclaimed
// before the reclaim sweep returns it to pending.
func WithStaleThreshold(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.staleThreshold = d
		}
	}
}

var _ interfaces.Monitor = (*Orchestrator)(nil)

func NewOrchestrator(uc *UseCase, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		uc:             uc,
		staleThreshold: defaultStaleThreshold,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Start launches the periodic cycle. The first cycle runs immediately so a
// restart recovers stranded in_progress events without waiting one interval.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return goerr.New("orchestrator is already running")
	}
	if interval <= 0 {
		return goerr.Wrap(types.ErrInvalidOption, "monitor interval must be positive", goerr.V("interval", interval))
	}

	runCtx, cancel := context.WithCancel(logging.InheritContextValues(context.WithoutCancel(ctx), ctx))
	runCtx = logging.With(runCtx, logging.From(ctx))

	o.running = true
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.loop(runCtx, interval)

	logging.From(ctx).Info("monitor started", slog.Duration("interval", interval))
	return nil
}

func (o *Orchestrator) loop(ctx context.Context, interval time.Duration) {
	defer close(o.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := o.RunOnce(ctx); err != nil {
			errutil.HandleError(ctx, "monitor cycle failed", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the periodic cycle and waits for the in-flight cycle to finish.
// Events already claimed by a draining worker still reach a terminal or retry
// state before Stop returns.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	cancel := o.cancel
	done := o.done
	o.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "timed out waiting for monitor to drain")
	}

	o.mu.Lock()
	o.running = false
	o.cancel = nil
	o.done = nil
	o.mu.Unlock()

	logging.From(ctx).Info("monitor stopped")
	return nil
}

// RunOnce executes a single reclaim-reconcile-drain cycle. It can be invoked
// while the periodic loop is running; the claim semantics keep concurrent
// cycles from processing the same event twice.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	now := logging.CtxTime(ctx)

	reclaimed, err := o.uc.clients.Store().ReclaimStaleEvents(ctx, now.Add(-o.staleThreshold))
	if err != nil {
		return goerr.Wrap(err, "failed to reclaim stale events")
	}
	if reclaimed > 0 {
		logging.From(ctx).Warn("reclaimed stale in_progress events", slog.Int("count", reclaimed))
	}

	if err := o.uc.Reconcile(ctx); err != nil {
		// A poll failure must not block draining the queue that already has
		// webhook events in it.
		errutil.HandleError(ctx, "reconciliation failed", err)
	}

	if err := o.uc.Drain(ctx); err != nil {
		return goerr.Wrap(err, "failed to drain event queue")
	}

	o.mu.Lock()
	o.lastCycleAt = now
	o.mu.Unlock()

	return nil
}

func (o *Orchestrator) Status(ctx context.Context) (*model.PipelineStatus, error) {
	counts, err := o.uc.clients.Store().CountEventsByState(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count events")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	st := &model.PipelineStatus{
		Running:              o.running,
		PendingCount:         counts[types.EventStatePending],
		FailedPermanentCount: counts[types.EventStateFailedPermanent],
		Counts:               counts,
	}
	if !o.lastCycleAt.IsZero() {
		t := o.lastCycleAt
		st.LastCycleAt = &t
	}
	return st, nil
}
