package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

func pushEvent(t *testing.T, raw string) *model.Event {
	t.Helper()
	return &model.Event{
		ID:           types.NewEventID(),
		Source:       types.EventSourceWebhook,
		WebhookEvent: "push",
		RawPayload:   []byte(raw),
		State:        types.EventStatePending,
	}
}

func TestNormalizePushEvent(t *testing.T) {
	payload := `{
		"ref": "refs/heads/feature/parser",
		"repository": {
			"name": "demo-repo",
			"description": "a demo",
			"language": "Go",
			"private": true,
			"owner": {"login": "acme"}
		},
		"pusher": {"name": "alice"},
		"head_commit": {"id": "cccccccccccccccccccccccccccccccccccccccc"},
		"commits": [
			{
				"id": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				"message": "first",
				"timestamp": "2026-08-24T10:00:00Z",
				"author": {"name": "alice", "email": "alice@example.com"},
				"added": ["a.go"],
				"modified": ["README.md"],
				"removed": ["old.go"]
			},
			{
				"id": "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				"message": "second",
				"timestamp": "2026-08-24T10:01:00Z",
				"author": {"name": "bob", "email": "bob@example.com"},
				"modified": ["a.go"]
			}
		]
	}`

	envelopes := gt.R1(model.NormalizeEvent(pushEvent(t, payload))).NoError(t)
	gt.A(t, envelopes).Length(2)

	// Payload order is preserved.
	gt.V(t, envelopes[0].Commit.SHA).Equal(types.CommitSHA("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	gt.V(t, envelopes[1].Commit.SHA).Equal(types.CommitSHA("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))

	first := envelopes[0]
	gt.V(t, first.Repo.Owner).Equal("acme")
	gt.V(t, first.Repo.Name).Equal("demo-repo")
	gt.True(t, first.Repo.Private)
	gt.V(t, first.Commit.Branch).Equal(types.BranchName("feature/parser"))
	gt.V(t, first.Commit.Author).Equal("alice")
	gt.V(t, first.Commit.AuthorEmail).Equal("alice@example.com")
	gt.A(t, first.Commit.Files).Length(3)
	gt.V(t, first.Commit.Files[0]).Equal(model.FileChange{Path: "a.go", Kind: types.ChangeKindAdded})
	gt.V(t, first.Commit.Files[2]).Equal(model.FileChange{Path: "old.go", Kind: types.ChangeKindRemoved})
	gt.V(t, first.Commit.Metadata["pusher"]).Equal("alice")
	gt.V(t, first.Commit.Metadata["head_commit"]).Equal("cccccccccccccccccccccccccccccccccccccccc")
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	t.Run("broken JSON", func(t *testing.T) {
		_, err := model.NormalizeEvent(pushEvent(t, "{not json"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedPayload))
	})

	t.Run("unsupported webhook event", func(t *testing.T) {
		ev := pushEvent(t, `{"zen":"ok"}`)
		ev.WebhookEvent = "ping"
		_, err := model.NormalizeEvent(ev)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedPayload))
	})

	t.Run("push without repository identity", func(t *testing.T) {
		_, err := model.NormalizeEvent(pushEvent(t, `{"ref":"refs/heads/main","commits":[]}`))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedPayload))
	})

	t.Run("unknown event source", func(t *testing.T) {
		ev := pushEvent(t, `{}`)
		ev.Source = types.EventSource("carrier-pigeon")
		_, err := model.NormalizeEvent(ev)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedPayload))
	})
}

func TestNormalizePollEvent(t *testing.T) {
	committedAt := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)
	payload := gt.R1(json.Marshal(model.PollPayload{
		Repository: model.PollRepository{
			Owner:    "acme",
			Name:     "demo-repo",
			Language: "Go",
			Branch:   "main",
		},
		Commit: model.PollCommit{
			SHA:         "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Author:      "alice",
			AuthorEmail: "alice@example.com",
			Message:     "missed by webhook",
			CommittedAt: committedAt,
		},
	})).NoError(t)

	ev := &model.Event{
		ID:         types.NewEventID(),
		Source:     types.EventSourcePoll,
		RawPayload: payload,
		State:      types.EventStatePending,
	}

	envelopes := gt.R1(model.NormalizeEvent(ev)).NoError(t)
	gt.A(t, envelopes).Length(1)
	gt.V(t, envelopes[0].Repo.Owner).Equal("acme")
	gt.V(t, envelopes[0].Commit.SHA).Equal(types.CommitSHA("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	gt.V(t, envelopes[0].Commit.Branch).Equal(types.BranchName("main"))
	gt.V(t, envelopes[0].Commit.CommittedAt).Equal(committedAt)

	t.Run("poll payload without SHA is malformed", func(t *testing.T) {
		bad := &model.Event{
			ID:         types.NewEventID(),
			Source:     types.EventSourcePoll,
			RawPayload: []byte(`{"repository":{"owner":"acme","name":"demo-repo"},"commit":{}}`),
			State:      types.EventStatePending,
		}
		_, err := model.NormalizeEvent(bad)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, types.ErrMalformedPayload))
	})
}
