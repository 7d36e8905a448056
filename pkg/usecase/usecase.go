package usecase

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/infra"
)

var _ interfaces.UseCase = (*UseCase)(nil)

const (
	defaultWorkers     = 4
	defaultMaxAttempts = 5
	defaultBackoffBase = 30 * time.Second
	defaultBackoffMax  = 30 * time.Minute
	defaultPollLimit   = 20
)

// TrackedRepo identifies one repository the reconciliation poller watches.
type TrackedRepo struct {
	Owner string
	Name  string
}

// ParseTrackedRepos parses "owner/name" identifiers from configuration.
func ParseTrackedRepos(repos []string) ([]TrackedRepo, error) {
	var tracked []TrackedRepo
	for _, r := range repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, goerr.Wrap(types.ErrInvalidOption, "repository must be in 'owner/name' format", goerr.V("value", r))
		}
		tracked = append(tracked, TrackedRepo{Owner: parts[0], Name: parts[1]})
	}
	return tracked, nil
}

// UseCase implements the ingestion pipeline operations on top of the
// configured clients.
type UseCase struct {
	clients *infra.Clients

	trackedRepos []TrackedRepo
	workers      int
	maxAttempts  int
	backoffBase  time.Duration
	backoffMax   time.Duration
	pollLimit    int
}

type Option func(*UseCase)

func WithTrackedRepos(repos []TrackedRepo) Option {
	return func(x *UseCase) {
		x.trackedRepos = repos
	}
}

// WithWorkers sets the size of the dispatcher worker pool.
func WithWorkers(n int) Option {
	return func(x *UseCase) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithMaxAttempts caps how many times an event is attempted before it moves
// to failed_permanent.
func WithMaxAttempts(n int) Option {
	return func(x *UseCase) {
		if n > 0 {
			x.maxAttempts = n
		}
	}
}

func WithBackoff(base, max time.Duration) Option {
	return func(x *UseCase) {
		if base > 0 {
			x.backoffBase = base
		}
		if max > 0 {
			x.backoffMax = max
		}
	}
}

// WithPollLimit sets how many recent commits the poller inspects per
// repository per cycle.
func WithPollLimit(n int) Option {
	return func(x *UseCase) {
		if n > 0 {
			x.pollLimit = n
		}
	}
}

func New(clients *infra.Clients, options ...Option) *UseCase {
	uc := &UseCase{
		clients:     clients,
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		pollLimit:   defaultPollLimit,
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}
