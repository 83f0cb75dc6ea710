package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"labelord/pkg/labels"
)

// DefaultTimeout bounds every HTTP call made by the client
const DefaultTimeout = 10 * time.Second

const perPage = 100

// Client implements labels.LabelStore using the GitHub REST API
type Client struct {
	client  *github.Client
	limiter *RateLimiter
	timeout time.Duration
}

var _ labels.LabelStore = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout of every call
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimiter replaces the default rate limiter
func WithRateLimiter(limiter *RateLimiter) ClientOption {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		limiter: NewRateLimiter(nil),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = c.timeout

	c.client = github.NewClient(tc)
	return c
}

// SetBaseURL points the client at another API root, such as a GitHub
// Enterprise instance or a test server.
func (c *Client) SetBaseURL(rawURL string) error {
	if !strings.HasSuffix(rawURL, "/") {
		rawURL += "/"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid GitHub API URL %q: %w", rawURL, err)
	}
	c.client.BaseURL = u
	return nil
}

// ListRepositories returns the full names of every repository the token
// can access.
func (c *Client) ListRepositories(ctx context.Context) ([]string, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var repos []string
	for {
		page, resp, err := do(ctx, c, func() ([]*github.Repository, *github.Response, error) {
			return c.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		})
		if err != nil {
			return nil, WrapGitHubError(err, "repositories of authenticated user")
		}
		for _, repo := range page {
			repos = append(repos, repo.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return repos, nil
}

// ListLabels returns the labels of a repository
func (c *Client) ListLabels(ctx context.Context, repo string) (labels.LabelSet, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: perPage}
	set := labels.LabelSet{}
	for {
		page, resp, err := do(ctx, c, func() ([]*github.Label, *github.Response, error) {
			return c.client.Issues.ListLabels(ctx, owner, name, opts)
		})
		if err != nil {
			return nil, WrapGitHubError(err, fmt.Sprintf("repository %s", repo))
		}
		for _, label := range page {
			set[label.GetName()] = label.GetColor()
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return set, nil
}

// CreateLabel creates a label in a repository
func (c *Client) CreateLabel(ctx context.Context, repo, label, color string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, _, err = do(ctx, c, func() (*github.Label, *github.Response, error) {
		return c.client.Issues.CreateLabel(ctx, owner, name, &github.Label{
			Name:  github.String(label),
			Color: github.String(color),
		})
	})
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("label %s in repository %s", label, repo))
	}
	return nil
}

// UpdateLabel renames and recolours the label currently called oldName
func (c *Client) UpdateLabel(ctx context.Context, repo, oldName, label, color string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, _, err = do(ctx, c, func() (*github.Label, *github.Response, error) {
		return c.client.Issues.EditLabel(ctx, owner, name, oldName, &github.Label{
			Name:  github.String(label),
			Color: github.String(color),
		})
	})
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("label %s in repository %s", oldName, repo))
	}
	return nil
}

// DeleteLabel removes a label from a repository
func (c *Client) DeleteLabel(ctx context.Context, repo, label string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, _, err = do(ctx, c, func() (struct{}, *github.Response, error) {
		resp, err := c.client.Issues.DeleteLabel(ctx, owner, name, label)
		return struct{}{}, resp, err
	})
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("label %s in repository %s", label, repo))
	}
	return nil
}

// do waits for the rate limiter, runs call and feeds the reported rate
// back to the limiter.
func do[T any](ctx context.Context, c *Client, call func() (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T
	if err := c.limiter.Wait(ctx); err != nil {
		return zero, nil, err
	}

	result, resp, err := call()
	if resp != nil {
		c.limiter.Observe(resp.Rate)
	}
	return result, resp, err
}

// RateStats reports what the client's rate limiter has observed so far
func (c *Client) RateStats() RateLimiterStats {
	return c.limiter.GetStats()
}

// splitRepo splits an "owner/name" slug
func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		err := NewError(ErrorTypeValidation, fmt.Sprintf("invalid repository %q: expected owner/name", repo), nil)
		err.Resource = repo
		return "", "", err
	}
	return owner, name, nil
}
