// Package handlers provides the HTTP surface: link saves and webhook receivers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/synclinear/syncd/internal/session"
	"github.com/synclinear/syncd/internal/sync"
)

// Orchestrator is the sync surface the handlers drive.
type Orchestrator interface {
	SaveLink(ctx context.Context, req sync.LinkRequest) (sync.LinkResult, error)
	HandleGitHubEvent(ctx context.Context, ev sync.GitHubEvent) error
	HandleLinearEvent(ctx context.Context, ev sync.LinearEvent) error
}

// SyncsHandler manages sync session pairing via REST API. The OAuth UI posts
// here once it holds an API key and a chosen team or repository.
type SyncsHandler struct {
	orch   Orchestrator
	logger *slog.Logger
}

// NewSyncsHandler creates a SyncsHandler.
func NewSyncsHandler(log *slog.Logger, orch Orchestrator) *SyncsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SyncsHandler{
		orch:   orch,
		logger: log.With(slog.String("handler", "syncs")),
	}
}

// Register registers sync session routes.
func (h *SyncsHandler) Register(e *echo.Echo) {
	e.POST("/api/syncs", h.Save)
}

type saveSyncRequest struct {
	SessionID string              `json:"session_id,omitempty"`
	GitHub    *session.GitHubSide `json:"github,omitempty"`
	Linear    *session.LinearSide `json:"linear,omitempty"`
}

type saveSyncResponse struct {
	SessionID    string        `json:"session_id"`
	State        session.State `json:"state"`
	WebhookError string        `json:"webhook_error,omitempty"`
}

// Save merges one or both sides of a pairing into a session. A webhook
// registration failure is reported in the response body, not as an HTTP
// failure: the link itself succeeded and registration can be retried.
func (h *SyncsHandler) Save(c echo.Context) error {
	if h.orch == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "sync service not available")
	}

	var req saveSyncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.GitHub == nil && req.Linear == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of github or linear is required")
	}

	res, err := h.orch.SaveLink(c.Request().Context(), sync.LinkRequest{
		SessionID: req.SessionID,
		GitHub:    req.GitHub,
		Linear:    req.Linear,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		h.logger.Error("save link failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := saveSyncResponse{
		SessionID: res.Session.ID,
		State:     res.State,
	}
	if res.WebhookErr != nil {
		resp.WebhookError = res.WebhookErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}
