// Package linearapi wraps the Linear GraphQL API for profile reads and issue writes.
package linearapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/platform"
)

// Client calls the Linear GraphQL endpoint. API keys are per-session and
// passed on every call.
type Client struct {
	endpoint string
	logger   *slog.Logger
	http     *http.Client
}

// NewClient creates a Linear API client from config.
func NewClient(log *slog.Logger, cfg config.LinearConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	endpoint := strings.TrimSpace(cfg.APIBaseURL)
	if endpoint == "" {
		endpoint = config.DefaultLinearAPIURL
	}
	return &Client{
		endpoint: endpoint,
		logger:   log.With(slog.String("client", "linearapi")),
		http: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// authHeader formats the Authorization value. Personal API keys are sent
// verbatim; OAuth access tokens need the Bearer scheme.
func authHeader(apiKey string) string {
	key := strings.TrimSpace(apiKey)
	if strings.HasPrefix(key, "lin_api_") {
		return key
	}
	return "Bearer " + key
}

// do executes one GraphQL request and decodes data into out.
func (c *Client) do(ctx context.Context, apiKey, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if cerr := platform.ClassifyStatus(resp.StatusCode); cerr != nil {
		return fmt.Errorf("linear api: %w", cerr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", platform.ErrUpstreamUnavailable, err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, gqlErr := range envelope.Errors {
			if gqlErr.Extensions.Code == "AUTHENTICATION_ERROR" {
				return fmt.Errorf("%w: %s", platform.ErrUpstreamAuth, gqlErr.Message)
			}
			messages = append(messages, gqlErr.Message)
		}
		return fmt.Errorf("linear api: %s", strings.Join(messages, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}

// Viewer returns the authenticated viewer's profile ("who am I").
func (c *Client) Viewer(ctx context.Context, apiKey string) (platform.LinearProfile, error) {
	var data struct {
		Viewer platform.LinearProfile `json:"viewer"`
	}
	err := c.do(ctx, apiKey, `query { viewer { id displayName email } }`, nil, &data)
	if err != nil {
		return platform.LinearProfile{}, fmt.Errorf("linear viewer: %w", err)
	}
	return data.Viewer, nil
}

// CreateIssue creates a ticket on the given team and returns its id.
func (c *Client) CreateIssue(ctx context.Context, apiKey, teamID, title, description string) (string, error) {
	var data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
			} `json:"issue"`
		} `json:"issueCreate"`
	}
	err := c.do(ctx, apiKey, `
		mutation IssueCreate($input: IssueCreateInput!) {
			issueCreate(input: $input) { success issue { id identifier } }
		}`,
		map[string]any{"input": map[string]any{
			"teamId":      teamID,
			"title":       title,
			"description": description,
		}},
		&data,
	)
	if err != nil {
		return "", fmt.Errorf("linear create issue: %w", err)
	}
	if !data.IssueCreate.Success {
		return "", fmt.Errorf("linear create issue: not successful")
	}
	c.logger.Info("created linear issue",
		slog.String("team_id", teamID),
		slog.String("identifier", data.IssueCreate.Issue.Identifier),
	)
	return data.IssueCreate.Issue.ID, nil
}

// CreateComment adds a comment to the given issue.
func (c *Client) CreateComment(ctx context.Context, apiKey, issueID, body string) error {
	var data struct {
		CommentCreate struct {
			Success bool `json:"success"`
		} `json:"commentCreate"`
	}
	err := c.do(ctx, apiKey, `
		mutation CommentCreate($input: CommentCreateInput!) {
			commentCreate(input: $input) { success }
		}`,
		map[string]any{"input": map[string]any{
			"issueId": issueID,
			"body":    body,
		}},
		&data,
	)
	if err != nil {
		return fmt.Errorf("linear create comment: %w", err)
	}
	if !data.CommentCreate.Success {
		return fmt.Errorf("linear create comment: not successful")
	}
	return nil
}

// UpdateIssueState moves the issue to the given workflow state.
func (c *Client) UpdateIssueState(ctx context.Context, apiKey, issueID, stateID string) error {
	var data struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	err := c.do(ctx, apiKey, `
		mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
			issueUpdate(id: $id, input: $input) { success }
		}`,
		map[string]any{
			"id":    issueID,
			"input": map[string]any{"stateId": stateID},
		},
		&data,
	)
	if err != nil {
		return fmt.Errorf("linear update issue state: %w", err)
	}
	if !data.IssueUpdate.Success {
		return fmt.Errorf("linear update issue state: not successful")
	}
	return nil
}

// TeamStateID returns the id of the team's first workflow state of the
// given type ("completed", "canceled", "unstarted", ...). Workflow states
// are team-scoped, so the lookup needs the team, not just the issue.
func (c *Client) TeamStateID(ctx context.Context, apiKey, teamID, stateType string) (string, error) {
	var data struct {
		Team struct {
			States struct {
				Nodes []struct {
					ID   string `json:"id"`
					Type string `json:"type"`
				} `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	err := c.do(ctx, apiKey, `
		query TeamStates($teamId: String!) {
			team(id: $teamId) { states { nodes { id type } } }
		}`,
		map[string]any{"teamId": teamID},
		&data,
	)
	if err != nil {
		return "", fmt.Errorf("linear team states: %w", err)
	}
	for _, node := range data.Team.States.Nodes {
		if node.Type == stateType {
			return node.ID, nil
		}
	}
	return "", fmt.Errorf("linear team states: no %q state on team %s", stateType, teamID)
}

// RegisterWebhook installs a team webhook delivering Issue and Comment
// events to callbackURL. Retryable independently of the rest of the link flow.
func (c *Client) RegisterWebhook(ctx context.Context, apiKey, teamID, callbackURL, secret string) error {
	var data struct {
		WebhookCreate struct {
			Success bool `json:"success"`
		} `json:"webhookCreate"`
	}
	err := c.do(ctx, apiKey, `
		mutation WebhookCreate($input: WebhookCreateInput!) {
			webhookCreate(input: $input) { success }
		}`,
		map[string]any{"input": map[string]any{
			"teamId":        teamID,
			"url":           callbackURL,
			"secret":        secret,
			"resourceTypes": []string{"Issue", "Comment"},
		}},
		&data,
	)
	if err != nil {
		return fmt.Errorf("linear register webhook: %w", err)
	}
	if !data.WebhookCreate.Success {
		return fmt.Errorf("linear register webhook: not successful")
	}
	c.logger.Info("registered linear webhook", slog.String("team_id", teamID))
	return nil
}
