package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

// Client is a thin wrapper around the GitHub REST API covering the two calls
// the tagger needs: listing owned repositories and replacing their topics.
type Client struct {
	gh       *gh.Client
	username string
	logger   *zap.Logger
}

// NewClient authenticates with a personal access token. baseURL may be empty
// to target api.github.com.
func NewClient(ctx context.Context, token, username, baseURL string, logger *zap.Logger) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClientWithHTTPClient(oauth2.NewClient(ctx, ts), baseURL, username, logger)
}

// NewClientWithHTTPClient uses httpClient as-is; tests point it at an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, username string, logger *zap.Logger) (*Client, error) {
	client := gh.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		client.BaseURL = u
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{gh: client, username: username, logger: logger}, nil
}

// ListRepos returns every non-fork repository owned by the configured user
// that passes opts, following pagination until the last page.
func (c *Client) ListRepos(ctx context.Context, opts ListOptions) ([]models.Repo, error) {
	listOpts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner",
		Sort:        "full_name",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	if opts.OnlyPublic {
		listOpts.Visibility = "public"
	}

	var all []models.Repo
	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, listOpts)
		if err != nil {
			return nil, wrapError(err, fmt.Sprintf("listing repositories (page %d)", listOpts.Page))
		}

		for _, r := range repos {
			all = append(all, mapRepo(r))
		}
		c.logger.Debug("listed repository page",
			zap.Int("page", listOpts.Page),
			zap.Int("count", len(repos)),
			zap.Int("rate_remaining", resp.Rate.Remaining),
		)

		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	selected := Filter(all, c.username, opts)
	c.logger.Info("listed repositories",
		zap.Int("total", len(all)),
		zap.Int("selected", len(selected)),
	)
	return selected, nil
}

// ReplaceTopics overwrites the repository's topic list with topics. Topics
// not in the list are removed, so repeating the call is a no-op.
func (c *Client) ReplaceTopics(ctx context.Context, repo models.Repo, topics models.TopicSuggestion) error {
	names := []string(topics)
	if names == nil {
		names = []string{}
	}

	got, _, err := c.gh.Repositories.ReplaceAllTopics(ctx, repo.Owner, repo.Name, names)
	if err != nil {
		return publishError(repo.FullName, wrapError(err, "replacing topics for "+repo.FullName))
	}

	c.logger.Info("updated topics",
		zap.String("repository", repo.FullName),
		zap.Strings("topics", got),
	)
	return nil
}

func mapRepo(r *gh.Repository) models.Repo {
	visibility := models.Visibility(r.GetVisibility())
	if visibility == "" {
		visibility = models.VisibilityPublic
		if r.GetPrivate() {
			visibility = models.VisibilityPrivate
		}
	}

	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}

	return models.Repo{
		Owner:      r.GetOwner().GetLogin(),
		Name:       r.GetName(),
		FullName:   r.GetFullName(),
		Visibility: visibility,
		Fork:       r.GetFork(),
		Topics:     topics,
		CloneURL:   r.GetCloneURL(),
	}
}

// publishError keeps authentication failures distinguishable so the caller
// can stop the run instead of moving on to the next repository.
func publishError(repo string, err error) error {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return err
	}
	pe := &PublishError{Repo: repo, Err: err}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		pe.StatusCode = ghErr.Response.StatusCode
	}
	return pe
}
