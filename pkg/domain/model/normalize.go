package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/google/go-github/v53/github"
	"github.com/m-mizutani/goerr/v2"
)

// CommitEnvelope is one normalized (repository, commit) pair extracted from an
// event payload. Envelopes keep payload order: later commits may amend files
// touched by earlier ones.
type CommitEnvelope struct {
	Repo   Repository
	Commit Commit
}

// NormalizeEvent converts an event's raw payload into ordered commit
// envelopes. It is a pure function of the payload: it never touches the store
// or the analyzer. Unsupported or unparseable payloads yield
// types.ErrMalformedPayload, which the dispatcher treats as permanent.
func NormalizeEvent(ev *Event) ([]CommitEnvelope, error) {
	switch ev.Source {
	case types.EventSourceWebhook:
		return normalizeWebhookEvent(ev)
	case types.EventSourcePoll:
		return normalizePollEvent(ev)
	default:
		return nil, goerr.Wrap(types.ErrMalformedPayload, "unknown event source", goerr.V("source", ev.Source))
	}
}

func normalizeWebhookEvent(ev *Event) ([]CommitEnvelope, error) {
	raw, err := github.ParseWebHook(ev.WebhookEvent, ev.RawPayload)
	if err != nil {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "parsing webhook payload", goerr.V("cause", err.Error()))
	}

	push, ok := raw.(*github.PushEvent)
	if !ok {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "unsupported webhook event", goerr.V("event", ev.WebhookEvent))
	}

	if push.GetRepo().GetOwner().GetLogin() == "" || push.GetRepo().GetName() == "" {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "push event without repository identity")
	}

	repo := Repository{
		Owner:       push.GetRepo().GetOwner().GetLogin(),
		Name:        push.GetRepo().GetName(),
		Description: push.GetRepo().GetDescription(),
		Language:    push.GetRepo().GetLanguage(),
		Private:     push.GetRepo().GetPrivate(),
	}

	branch := types.BranchName(refToBranch(push.GetRef()))

	envelopes := make([]CommitEnvelope, 0, len(push.Commits))
	for _, c := range push.Commits {
		if c.GetID() == "" {
			return nil, goerr.Wrap(types.ErrMalformedPayload, "push commit without ID")
		}

		commit := Commit{
			SHA:         types.CommitSHA(c.GetID()),
			Author:      c.GetAuthor().GetName(),
			AuthorEmail: c.GetAuthor().GetEmail(),
			Message:     c.GetMessage(),
			Branch:      branch,
			CommittedAt: c.GetTimestamp().Time.UTC(),
			Files:       pushCommitFiles(c),
			Metadata: map[string]string{
				"pusher":      push.GetPusher().GetName(),
				"head_commit": push.GetHeadCommit().GetID(),
			},
		}
		envelopes = append(envelopes, CommitEnvelope{Repo: repo, Commit: commit})
	}

	return envelopes, nil
}

// pushCommitFiles flattens the push payload's added/modified/removed lists
// into a single ordered file-change list.
func pushCommitFiles(c *github.HeadCommit) []FileChange {
	var files []FileChange
	for _, p := range c.Added {
		files = append(files, FileChange{Path: p, Kind: types.ChangeKindAdded})
	}
	for _, p := range c.Modified {
		files = append(files, FileChange{Path: p, Kind: types.ChangeKindModified})
	}
	for _, p := range c.Removed {
		files = append(files, FileChange{Path: p, Kind: types.ChangeKindRemoved})
	}
	return files
}

// PollPayload is the canonical payload of a poll-sourced event, synthesized by
// the reconciliation poller for one commit observed via the GitHub API.
type PollPayload struct {
	Repository PollRepository `json:"repository"`
	Commit     PollCommit     `json:"commit"`
}

type PollRepository struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Private     bool   `json:"private,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

type PollCommit struct {
	SHA         string    `json:"sha"`
	Author      string    `json:"author,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Message     string    `json:"message,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

func normalizePollEvent(ev *Event) ([]CommitEnvelope, error) {
	var payload PollPayload
	if err := json.Unmarshal(ev.RawPayload, &payload); err != nil {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "parsing poll payload", goerr.V("cause", err.Error()))
	}
	if payload.Repository.Owner == "" || payload.Repository.Name == "" {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "poll payload without repository identity")
	}
	if payload.Commit.SHA == "" {
		return nil, goerr.Wrap(types.ErrMalformedPayload, "poll payload without commit SHA")
	}

	envelope := CommitEnvelope{
		Repo: Repository{
			Owner:       payload.Repository.Owner,
			Name:        payload.Repository.Name,
			Description: payload.Repository.Description,
			Language:    payload.Repository.Language,
			Private:     payload.Repository.Private,
		},
		Commit: Commit{
			SHA:         types.CommitSHA(payload.Commit.SHA),
			Author:      payload.Commit.Author,
			AuthorEmail: payload.Commit.AuthorEmail,
			Message:     payload.Commit.Message,
			Branch:      types.BranchName(payload.Repository.Branch),
			CommittedAt: payload.Commit.CommittedAt.UTC(),
		},
	}

	return []CommitEnvelope{envelope}, nil
}

func refToBranch(v string) string {
	if ref := strings.SplitN(v, "/", 3); len(ref) == 3 && ref[0] == "refs" && ref[1] == "heads" {
		return ref[2]
	}
	return v
}
