package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/platform/linearapi"
	syncsvc "github.com/synclinear/syncd/internal/sync"
)

// LinearWebhookHandler receives Linear Issue and Comment deliveries.
type LinearWebhookHandler struct {
	orch   Orchestrator
	secret string
	logger *slog.Logger
}

// NewLinearWebhookHandler creates a Linear webhook receiver.
func NewLinearWebhookHandler(log *slog.Logger, orch Orchestrator, cfg config.LinearConfig) *LinearWebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LinearWebhookHandler{
		orch:   orch,
		secret: cfg.WebhookSecret,
		logger: log.With(slog.String("handler", "linear_webhook")),
	}
}

// Register registers the Linear webhook route.
func (h *LinearWebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/linear", h.Receive)
}

// Receive verifies the delivery HMAC, narrows the payload, and hands the
// event to the orchestrator.
func (h *LinearWebhookHandler) Receive(c echo.Context) error {
	r := c.Request()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if !linearapi.VerifySignature(h.secret, body, r.Header.Get(linearapi.SignatureHeader)) {
		h.logger.Warn("invalid linear webhook signature", slog.String("remote_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var payload linearapi.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("unparseable linear webhook", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ev, ok := mapLinearEvent(payload)
	if !ok {
		h.logger.Debug("ignoring linear event",
			slog.String("type", payload.Type),
			slog.String("action", payload.Action),
		)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	if err := h.orch.HandleLinearEvent(r.Context(), ev); err != nil {
		h.logger.Error("linear event sync failed",
			slog.String("team_id", ev.TeamID),
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapLinearEvent narrows a platform payload to the core event shape.
func mapLinearEvent(payload linearapi.WebhookPayload) (syncsvc.LinearEvent, bool) {
	actorID := payload.Actor.ID
	if actorID == "" {
		actorID = payload.Data.UserID
	}

	switch payload.Type {
	case "Issue":
		ev := syncsvc.LinearEvent{
			ActorID: actorID,
			TeamID:  payload.Data.TeamID,
			IssueID: payload.Data.ID,
			Title:   payload.Data.Title,
			Body:    payload.Data.Description,
		}
		switch payload.Action {
		case "create":
			ev.Kind = syncsvc.KindIssueCreated
		case "update":
			// Only workflow-state moves sync; title and description edits
			// stay platform-local.
			if payload.UpdatedFrom.StateID == "" {
				return syncsvc.LinearEvent{}, false
			}
			switch payload.Data.State.Type {
			case "completed", "canceled":
				ev.Kind = syncsvc.KindIssueClosed
			default:
				ev.Kind = syncsvc.KindIssueReopened
			}
			// The description is not written anywhere on a state move, and
			// on issues this service created it carries the sync footer,
			// which would read as an echo.
			ev.Title, ev.Body = "", ""
		default:
			return syncsvc.LinearEvent{}, false
		}
		return ev, true

	case "Comment":
		if payload.Action != "create" {
			return syncsvc.LinearEvent{}, false
		}
		return syncsvc.LinearEvent{
			Kind:    syncsvc.KindCommentCreated,
			ActorID: actorID,
			TeamID:  payload.Data.TeamID,
			IssueID: payload.Data.IssueID,
			Body:    payload.Data.Body,
		}, true

	default:
		return syncsvc.LinearEvent{}, false
	}
}
