package model

import (
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Event is one unit of ingestion work: a webhook delivery or a poll-discovered
// commit. It is created by the receiver or the poller and mutated only by the
// dispatcher. Events are never deleted; terminal states are kept as an audit
// trail.
type Event struct {
	ID           types.EventID
	Source       types.EventSource
	DeliveryID   string
	WebhookEvent string
	RawPayload   []byte
	State        types.EventState
	Attempts     int
	LastError    string
	ReceivedAt   time.Time
	ClaimedAt    time.Time
	NextRetryAt  time.Time
	ProcessedAt  time.Time
}

// NewEvent builds a pending event for the given source and payload.
func NewEvent(source types.EventSource, webhookEvent, deliveryID string, payload []byte, now time.Time) *Event {
	return &Event{
		ID:           types.NewEventID(),
		Source:       source,
		DeliveryID:   deliveryID,
		WebhookEvent: webhookEvent,
		RawPayload:   payload,
		State:        types.EventStatePending,
		ReceivedAt:   now,
	}
}

func (x *Event) Validate() error {
	if x.ID == "" {
		return goerr.Wrap(types.ErrValidationFailed, "event ID is empty")
	}
	if x.Source != types.EventSourceWebhook && x.Source != types.EventSourcePoll {
		return goerr.Wrap(types.ErrValidationFailed, "unknown event source", goerr.V("source", x.Source))
	}
	if len(x.RawPayload) == 0 {
		return goerr.Wrap(types.ErrValidationFailed, "event payload is empty")
	}
	return nil
}

// Claimable reports whether a worker may take ownership of the event at the
// given time. Terminal states never become claimable again.
func (x *Event) Claimable(now time.Time) bool {
	switch x.State {
	case types.EventStatePending:
		return true
	case types.EventStateFailedTransient:
		return !now.Before(x.NextRetryAt)
	default:
		return false
	}
}

// RetryBackoff returns the delay before the next attempt after the given
// attempt count. The delay doubles per attempt starting from base and is
// capped at max.
func RetryBackoff(attempts int, base, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
