package sync

import (
	"context"
	"strings"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/platform/githubapi"
	"github.com/synclinear/syncd/internal/platform/linearapi"
)

// WebhookRegistrar installs the inbound webhooks on both platforms when a
// session links. Registration failures are reported, never fatal: the link
// itself survives and registration can be retried.
type WebhookRegistrar struct {
	github        *githubapi.Client
	linear        *linearapi.Client
	publicBaseURL string
	githubSecret  string
	linearSecret  string
}

// NewWebhookRegistrar creates a registrar delivering to the configured
// public base URL.
func NewWebhookRegistrar(github *githubapi.Client, linear *linearapi.Client, cfg config.Config) *WebhookRegistrar {
	return &WebhookRegistrar{
		github:        github,
		linear:        linear,
		publicBaseURL: strings.TrimRight(cfg.Server.PublicBaseURL, "/"),
		githubSecret:  cfg.GitHub.WebhookSecret,
		linearSecret:  cfg.Linear.WebhookSecret,
	}
}

// RegisterGitHubWebhook installs the repository hook for issue events.
func (r *WebhookRegistrar) RegisterGitHubWebhook(ctx context.Context, token, repo string) error {
	return r.github.RegisterWebhook(ctx, token, repo, r.publicBaseURL+"/webhooks/github", r.githubSecret)
}

// RegisterLinearWebhook installs the team webhook for issue and comment events.
func (r *WebhookRegistrar) RegisterLinearWebhook(ctx context.Context, apiKey, teamID string) error {
	return r.linear.RegisterWebhook(ctx, apiKey, teamID, r.publicBaseURL+"/webhooks/linear", r.linearSecret)
}
