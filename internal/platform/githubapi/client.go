// Package githubapi wraps the GitHub REST API for profile reads and issue writes.
package githubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/platform"
)

// Client issues authenticated GitHub API calls. Tokens are per-session, so
// every call receives the token and builds a short-lived API client around it.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClient creates a GitHub API client from config.
func NewClient(log *slog.Logger, cfg config.GitHubConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout(),
		logger:    log.With(slog.String("client", "githubapi")),
	}
}

func (c *Client) api(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = c.timeout

	gh := github.NewClient(httpClient)
	if c.userAgent != "" {
		gh.UserAgent = c.userAgent
	}
	if c.baseURL != "" && c.baseURL != config.DefaultGitHubAPIURL {
		base, err := url.Parse(c.baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
		gh.BaseURL = base
	}
	return gh, nil
}

// classify maps a go-github call result onto the upstream error taxonomy.
func classify(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp != nil {
		if cerr := platform.ClassifyStatus(resp.StatusCode); cerr != nil {
			return cerr
		}
		return err
	}
	return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
}

// Viewer returns the authenticated viewer's profile ("who am I").
func (c *Client) Viewer(ctx context.Context, token string) (platform.GitHubProfile, error) {
	gh, err := c.api(ctx, token)
	if err != nil {
		return platform.GitHubProfile{}, err
	}
	user, resp, err := gh.Users.Get(ctx, "")
	if err := classify(resp, err); err != nil {
		return platform.GitHubProfile{}, fmt.Errorf("github viewer: %w", err)
	}
	return platform.GitHubProfile{
		ID:    user.GetID(),
		Login: user.GetLogin(),
		Email: user.GetEmail(),
	}, nil
}

// SplitRepo splits an "owner/name" reference.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repo reference %q (want owner/name)", repo)
	}
	return owner, name, nil
}

// CreateIssue opens an issue and returns its number.
func (c *Client) CreateIssue(ctx context.Context, token, repo, title, body string) (int, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return 0, err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return 0, err
	}
	issue, resp, err := gh.Issues.Create(ctx, owner, name, &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err := classify(resp, err); err != nil {
		return 0, fmt.Errorf("github create issue: %w", err)
	}
	c.logger.Info("created github issue",
		slog.String("repo", repo),
		slog.Int("number", issue.GetNumber()),
	)
	return issue.GetNumber(), nil
}

// CreateComment adds a comment to the given issue.
func (c *Client) CreateComment(ctx context.Context, token, repo string, issueNumber int, body string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}
	_, resp, err := gh.Issues.CreateComment(ctx, owner, name, issueNumber, &github.IssueComment{
		Body: github.String(body),
	})
	if err := classify(resp, err); err != nil {
		return fmt.Errorf("github create comment: %w", err)
	}
	return nil
}

// SetIssueState opens or closes an issue (state is "open" or "closed").
func (c *Client) SetIssueState(ctx context.Context, token, repo string, issueNumber int, state string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}
	_, resp, err := gh.Issues.Edit(ctx, owner, name, issueNumber, &github.IssueRequest{
		State: github.String(state),
	})
	if err := classify(resp, err); err != nil {
		return fmt.Errorf("github set issue state: %w", err)
	}
	return nil
}

// RegisterWebhook installs the repository webhook that delivers issue and
// issue_comment events to callbackURL. Registration is an admin API call;
// it is retryable independently of the rest of the link flow.
func (c *Client) RegisterWebhook(ctx context.Context, token, repo, callbackURL, secret string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	gh, err := c.api(ctx, token)
	if err != nil {
		return err
	}
	_, resp, err := gh.Repositories.CreateHook(ctx, owner, name, &github.Hook{
		Active: github.Bool(true),
		Events: []string{"issues", "issue_comment"},
		Config: map[string]interface{}{
			"url":          callbackURL,
			"content_type": "json",
			"secret":       secret,
		},
	})
	if err := classify(resp, err); err != nil {
		return fmt.Errorf("github register webhook: %w", err)
	}
	c.logger.Info("registered github webhook", slog.String("repo", repo))
	return nil
}
