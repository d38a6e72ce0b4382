package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/synclinear/syncd/internal/config"
	syncsvc "github.com/synclinear/syncd/internal/sync"
)

// maxWebhookBody caps inbound webhook payloads at 1MB.
const maxWebhookBody = 1 << 20

// GitHubWebhookHandler receives GitHub issue and issue_comment deliveries.
type GitHubWebhookHandler struct {
	orch     Orchestrator
	secret   string
	logger   *slog.Logger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGitHubWebhookHandler creates a GitHub webhook receiver.
func NewGitHubWebhookHandler(log *slog.Logger, orch Orchestrator, cfg config.GitHubConfig) *GitHubWebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GitHubWebhookHandler{
		orch:     orch,
		secret:   cfg.WebhookSecret,
		logger:   log.With(slog.String("handler", "github_webhook")),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Register registers the GitHub webhook route.
func (h *GitHubWebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/github", h.Receive)
}

// limiter returns the per-sender rate limiter, 10 deliveries/s with burst 30.
func (h *GitHubWebhookHandler) limiter(ip string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(10), 30)
		h.limiters[ip] = l
	}
	return l
}

// Receive validates the delivery signature, narrows the payload, and hands
// the event to the orchestrator.
func (h *GitHubWebhookHandler) Receive(c echo.Context) error {
	if !h.limiter(c.RealIP()).Allow() {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, maxWebhookBody)

	payload, err := github.ValidatePayload(r, []byte(h.secret))
	if err != nil {
		h.logger.Warn("invalid github webhook signature", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	event, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Warn("unparseable github webhook", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ev, ok := mapGitHubEvent(event)
	if !ok {
		h.logger.Debug("ignoring github event", slog.String("type", github.WebHookType(r)))
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	if err := h.orch.HandleGitHubEvent(r.Context(), ev); err != nil {
		h.logger.Error("github event sync failed",
			slog.Int64("repo_id", ev.RepoID),
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapGitHubEvent narrows a platform payload to the core event shape. The
// core never touches the raw delivery.
func mapGitHubEvent(event any) (syncsvc.GitHubEvent, bool) {
	switch e := event.(type) {
	case *github.IssuesEvent:
		ev := syncsvc.GitHubEvent{
			ActorID:     e.GetSender().GetID(),
			RepoID:      e.GetRepo().GetID(),
			IssueNumber: e.GetIssue().GetNumber(),
			Title:       e.GetIssue().GetTitle(),
			Body:        e.GetIssue().GetBody(),
		}
		switch e.GetAction() {
		case "opened":
			ev.Kind = syncsvc.KindIssueCreated
		case "closed":
			ev.Kind = syncsvc.KindIssueClosed
			// The body is not written anywhere on a state change, and on
			// issues this service created it carries the sync footer, which
			// would read as an echo.
			ev.Title, ev.Body = "", ""
		case "reopened":
			ev.Kind = syncsvc.KindIssueReopened
			ev.Title, ev.Body = "", ""
		default:
			return syncsvc.GitHubEvent{}, false
		}
		return ev, true

	case *github.IssueCommentEvent:
		if e.GetAction() != "created" {
			return syncsvc.GitHubEvent{}, false
		}
		return syncsvc.GitHubEvent{
			Kind:        syncsvc.KindCommentCreated,
			ActorID:     e.GetSender().GetID(),
			RepoID:      e.GetRepo().GetID(),
			IssueNumber: e.GetIssue().GetNumber(),
			Body:        e.GetComment().GetBody(),
		}, true

	default:
		return syncsvc.GitHubEvent{}, false
	}
}
