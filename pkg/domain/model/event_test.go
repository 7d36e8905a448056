package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

func TestEventClaimable(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("pending is always claimable", func(t *testing.T) {
		ev := model.NewEvent(types.EventSourceWebhook, "push", "d-1", []byte(`{}`), now)
		gt.True(t, ev.Claimable(now))
	})

	t.Run("failed_transient waits for its retry time", func(t *testing.T) {
		ev := model.NewEvent(types.EventSourceWebhook, "push", "d-2", []byte(`{}`), now)
		ev.State = types.EventStateFailedTransient
		ev.NextRetryAt = now.Add(time.Minute)

		gt.False(t, ev.Claimable(now))
		gt.False(t, ev.Claimable(now.Add(59*time.Second)))
		gt.True(t, ev.Claimable(now.Add(time.Minute)))
		gt.True(t, ev.Claimable(now.Add(2*time.Minute)))
	})

	t.Run("terminal states never claimable", func(t *testing.T) {
		for _, state := range []types.EventState{
			types.EventStateInProgress,
			types.EventStateDone,
			types.EventStateFailedPermanent,
		} {
			ev := model.NewEvent(types.EventSourceWebhook, "push", "d-3", []byte(`{}`), now)
			ev.State = state
			gt.False(t, ev.Claimable(now.Add(24*time.Hour)))
		}
	})
}

func TestRetryBackoff(t *testing.T) {
	base := 30 * time.Second
	max := 30 * time.Minute

	t.Run("doubles per attempt", func(t *testing.T) {
		gt.V(t, model.RetryBackoff(1, base, max)).Equal(30 * time.Second)
		gt.V(t, model.RetryBackoff(2, base, max)).Equal(time.Minute)
		gt.V(t, model.RetryBackoff(3, base, max)).Equal(2 * time.Minute)
	})

	t.Run("capped at max", func(t *testing.T) {
		gt.V(t, model.RetryBackoff(10, base, max)).Equal(max)
		gt.V(t, model.RetryBackoff(100, base, max)).Equal(max)
	})

	t.Run("attempt below one treated as first", func(t *testing.T) {
		gt.V(t, model.RetryBackoff(0, base, max)).Equal(base)
	})
}

func TestEventValidate(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("valid event", func(t *testing.T) {
		ev := model.NewEvent(types.EventSourcePoll, "", "poll:acme/demo:aaa", []byte(`{}`), now)
		gt.NoError(t, ev.Validate())
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		ev := model.NewEvent(types.EventSourceWebhook, "push", "d-1", nil, now)
		gt.Error(t, ev.Validate())
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		ev := model.NewEvent(types.EventSource("smoke-signal"), "", "d-2", []byte(`{}`), now)
		gt.Error(t, ev.Validate())
	})
}
