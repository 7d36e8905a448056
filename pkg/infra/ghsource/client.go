package ghsource

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/go-github/v53/github"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// Client reads repository and commit data from the GitHub API. It implements
// interfaces.CodeHost for the reconciliation poller.
type Client struct {
	gh *github.Client
}

var _ interfaces.CodeHost = (*Client)(nil)

// New creates a GitHub API client. An empty token yields an unauthenticated
// client, which is sufficient for public repositories.
func New(token types.GitHubToken) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(token)})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh: github.NewClient(httpClient),
	}
}

// NewWithClient wraps a pre-configured HTTP client and API base URL. Used by
// tests to point at a local server.
func NewWithClient(httpClient *http.Client, baseURL string) (*Client, error) {
	gh := github.NewClient(httpClient)
	if baseURL != "" {
		u, err := url.Parse(baseURL + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid base URL", goerr.V("baseURL", baseURL))
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

func (x *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	repo, _, err := x.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get repository",
			goerr.V("owner", owner),
			goerr.V("name", name),
		)
	}

	return &model.Repository{
		Owner:       repo.GetOwner().GetLogin(),
		Name:        repo.GetName(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		Private:     repo.GetPrivate(),
	}, nil
}

// ListRecentCommits fetches up to limit of the most recent commits on the
// default branch, newest first.
func (x *Client) ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]*model.PollCommit, error) {
	if limit <= 0 {
		limit = 30
	}

	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: limit},
	}

	var all []*model.PollCommit
	for {
		commits, resp, err := x.gh.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list commits",
				goerr.V("owner", owner),
				goerr.V("name", name),
			)
		}

		for _, c := range commits {
			all = append(all, &model.PollCommit{
				SHA:         c.GetSHA(),
				Author:      c.GetCommit().GetAuthor().GetName(),
				AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
				Message:     c.GetCommit().GetMessage(),
				CommittedAt: c.GetCommit().GetAuthor().GetDate().Time.UTC(),
			})
			if len(all) >= limit {
				return all, nil
			}
		}

		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}
