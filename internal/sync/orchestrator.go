// Package sync orchestrates cross-platform issue synchronization.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/synclinear/syncd/internal/identity"
	"github.com/synclinear/syncd/internal/platform"
	"github.com/synclinear/syncd/internal/session"
)

// SessionStore is the slice of session.Service the orchestrator needs.
type SessionStore interface {
	Create(ctx context.Context) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	SaveGitHubSide(ctx context.Context, id string, side session.GitHubSide) (session.Session, error)
	SaveLinearSide(ctx context.Context, id string, side session.LinearSide) (session.Session, error)
	FindByRepoID(ctx context.Context, repoID int64) (session.Session, bool, error)
	FindByTeamID(ctx context.Context, teamID string) (session.Session, bool, error)
}

// IdentityResolver ensures an identity record exists for an account pair.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds identity.Credentials, githubUserID int64, linearUserID string) error
}

// MentionRewriter translates @mentions toward the destination platform.
type MentionRewriter interface {
	Rewrite(ctx context.Context, text string, source platform.Platform) (string, error)
}

// GitHubWriter is the destination write surface on GitHub.
type GitHubWriter interface {
	CreateIssue(ctx context.Context, token, repo, title, body string) (int, error)
	CreateComment(ctx context.Context, token, repo string, issueNumber int, body string) error
	SetIssueState(ctx context.Context, token, repo string, issueNumber int, state string) error
}

// LinearWriter is the destination write surface on Linear.
type LinearWriter interface {
	CreateIssue(ctx context.Context, apiKey, teamID, title, description string) (string, error)
	CreateComment(ctx context.Context, apiKey, issueID, body string) error
	TeamStateID(ctx context.Context, apiKey, teamID, stateType string) (string, error)
	UpdateIssueState(ctx context.Context, apiKey, issueID, stateID string) error
}

// IssueLinks persists issue pairings across the two platforms.
type IssueLinks interface {
	Save(ctx context.Context, link IssueLink) error
	ByGitHubIssue(ctx context.Context, repoID int64, issueNumber int) (IssueLink, bool, error)
	ByLinearIssue(ctx context.Context, linearIssueID string) (IssueLink, bool, error)
}

// Registrar installs destination webhooks on the Linked transition.
type Registrar interface {
	RegisterGitHubWebhook(ctx context.Context, token, repo string) error
	RegisterLinearWebhook(ctx context.Context, apiKey, teamID string) error
}

// Orchestrator drives identity resolution, mention rewriting, and the
// destination write for every inbound event. It owns when to act but holds
// no state of its own; the stores are the only shared mutable resources.
type Orchestrator struct {
	sessions  SessionStore
	resolver  IdentityResolver
	rewriter  MentionRewriter
	github    GitHubWriter
	linear    LinearWriter
	links     IssueLinks
	registrar Registrar
	footer    string
	logger    *slog.Logger
}

// NewOrchestrator wires the sync orchestrator. footer, when non-empty, is
// appended to outbound bodies and used to drop echoed deliveries of our own
// writes.
func NewOrchestrator(
	log *slog.Logger,
	sessions SessionStore,
	resolver IdentityResolver,
	rewriter MentionRewriter,
	github GitHubWriter,
	linear LinearWriter,
	links IssueLinks,
	registrar Registrar,
	footer string,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		sessions:  sessions,
		resolver:  resolver,
		rewriter:  rewriter,
		github:    github,
		linear:    linear,
		links:     links,
		registrar: registrar,
		footer:    footer,
		logger:    log.With(slog.String("service", "sync")),
	}
}

func (o *Orchestrator) credentials(sess session.Session) identity.Credentials {
	return identity.Credentials{
		GitHubToken:  sess.GitHubAPIKey,
		LinearAPIKey: sess.LinearAPIKey,
	}
}

// SaveLink merges the supplied side(s) into the session. The first time both
// identifiers become known the session transitions to Linked: the owning
// identity pair is resolved (a failure here aborts and surfaces, nothing
// is lost since the identifiers are already persisted and the save can be
// replayed), then the destination webhooks are registered. Registration
// failure does not unlink; it is reported via LinkResult.WebhookErr so the
// caller can retry it on its own.
func (o *Orchestrator) SaveLink(ctx context.Context, req LinkRequest) (LinkResult, error) {
	var sess session.Session
	var err error
	if req.SessionID == "" {
		sess, err = o.sessions.Create(ctx)
	} else {
		sess, err = o.sessions.Get(ctx, req.SessionID)
	}
	if err != nil {
		return LinkResult{}, err
	}

	wasLinked := sess.State() == session.Linked

	if req.GitHub != nil {
		sess, err = o.sessions.SaveGitHubSide(ctx, sess.ID, *req.GitHub)
		if err != nil {
			return LinkResult{}, err
		}
	}
	if req.Linear != nil {
		sess, err = o.sessions.SaveLinearSide(ctx, sess.ID, *req.Linear)
		if err != nil {
			return LinkResult{}, err
		}
	}

	result := LinkResult{Session: sess, State: sess.State()}
	if result.State != session.Linked || wasLinked {
		return result, nil
	}

	// First transition to Linked.
	if err := o.resolver.Resolve(ctx, o.credentials(sess), sess.GitHubUserID, sess.LinearUserID); err != nil {
		return result, fmt.Errorf("resolve link owner identity: %w", err)
	}

	o.logger.Info("session linked",
		slog.String("session_id", sess.ID),
		slog.String("repo", sess.GitHubRepoName),
		slog.String("team_id", sess.LinearTeamID),
	)

	var webhookErrs []error
	if err := o.registrar.RegisterGitHubWebhook(ctx, sess.GitHubAPIKey, sess.GitHubRepoName); err != nil {
		webhookErrs = append(webhookErrs, fmt.Errorf("github webhook: %w", err))
	}
	if err := o.registrar.RegisterLinearWebhook(ctx, sess.LinearAPIKey, sess.LinearTeamID); err != nil {
		webhookErrs = append(webhookErrs, fmt.Errorf("linear webhook: %w", err))
	}
	result.WebhookErr = errors.Join(webhookErrs...)
	return result, nil
}

// isEcho reports whether body is one of our own outbound writes delivered
// back to us by the platform.
func (o *Orchestrator) isEcho(body string) bool {
	return o.footer != "" && strings.Contains(body, o.footer)
}

func (o *Orchestrator) withFooter(body string) string {
	if o.footer == "" {
		return body
	}
	if body == "" {
		return o.footer
	}
	return body + "\n\n" + o.footer
}

// rewriteBody translates mentions toward the destination. Rewriting never
// aborts a sync: on failure the authored text is kept.
func (o *Orchestrator) rewriteBody(ctx context.Context, body string, source platform.Platform) string {
	rewritten, err := o.rewriter.Rewrite(ctx, body, source)
	if err != nil {
		o.logger.Warn("mention rewrite failed, keeping authored text",
			slog.String("source", string(source)),
			slog.Any("error", err),
		)
		return body
	}
	return rewritten
}

// HandleGitHubEvent syncs one inbound GitHub event to Linear.
func (o *Orchestrator) HandleGitHubEvent(ctx context.Context, ev GitHubEvent) error {
	sess, ok, err := o.sessions.FindByRepoID(ctx, ev.RepoID)
	if err != nil {
		return err
	}
	if !ok || sess.State() != session.Linked {
		o.logger.Debug("ignoring github event for unlinked repo", slog.Int64("repo_id", ev.RepoID))
		return nil
	}
	if o.isEcho(ev.Body) {
		o.logger.Debug("dropping echoed github delivery", slog.Int64("repo_id", ev.RepoID))
		return nil
	}

	o.logger.Debug("syncing github event",
		slog.String("kind", string(ev.Kind)),
		slog.Int64("actor_id", ev.ActorID),
		slog.Int64("repo_id", ev.RepoID),
	)

	if err := o.resolver.Resolve(ctx, o.credentials(sess), sess.GitHubUserID, sess.LinearUserID); err != nil {
		return fmt.Errorf("resolve actor identity: %w", err)
	}

	body := o.rewriteBody(ctx, ev.Body, platform.GitHub)

	switch ev.Kind {
	case KindIssueCreated:
		linearIssueID, err := o.linear.CreateIssue(ctx, sess.LinearAPIKey, sess.LinearTeamID, ev.Title, o.withFooter(body))
		if err != nil {
			return fmt.Errorf("sync issue to linear: %w", err)
		}
		return o.links.Save(ctx, IssueLink{
			GitHubRepoID:      ev.RepoID,
			GitHubIssueNumber: ev.IssueNumber,
			LinearIssueID:     linearIssueID,
		})

	case KindCommentCreated:
		link, ok, err := o.links.ByGitHubIssue(ctx, ev.RepoID, ev.IssueNumber)
		if err != nil {
			return err
		}
		if !ok {
			o.logger.Debug("comment on unsynced github issue, skipping",
				slog.Int64("repo_id", ev.RepoID),
				slog.Int("issue_number", ev.IssueNumber),
			)
			return nil
		}
		if err := o.linear.CreateComment(ctx, sess.LinearAPIKey, link.LinearIssueID, o.withFooter(body)); err != nil {
			return fmt.Errorf("sync comment to linear: %w", err)
		}
		return nil

	case KindIssueClosed, KindIssueReopened:
		link, ok, err := o.links.ByGitHubIssue(ctx, ev.RepoID, ev.IssueNumber)
		if err != nil || !ok {
			return err
		}
		stateType, note := "unstarted", "Issue reopened on GitHub."
		if ev.Kind == KindIssueClosed {
			stateType, note = "completed", "Issue closed on GitHub."
		}
		stateID, err := o.linear.TeamStateID(ctx, sess.LinearAPIKey, sess.LinearTeamID, stateType)
		if err != nil {
			// The workflow lookup is the only part that can miss; leave a
			// note so the change is still visible on the Linear side.
			o.logger.Warn("team workflow state lookup failed, noting state change as comment",
				slog.String("team_id", sess.LinearTeamID),
				slog.Any("error", err),
			)
			if err := o.linear.CreateComment(ctx, sess.LinearAPIKey, link.LinearIssueID, o.withFooter(note)); err != nil {
				return fmt.Errorf("sync state note to linear: %w", err)
			}
			return nil
		}
		if err := o.linear.UpdateIssueState(ctx, sess.LinearAPIKey, link.LinearIssueID, stateID); err != nil {
			return fmt.Errorf("sync state to linear: %w", err)
		}
		return nil

	default:
		o.logger.Debug("ignoring github event kind", slog.String("kind", string(ev.Kind)))
		return nil
	}
}

// findLinearSession routes an event to its session, by team when the
// payload carries one, else through the issue link (comment deliveries).
func (o *Orchestrator) findLinearSession(ctx context.Context, ev LinearEvent) (session.Session, bool, error) {
	if ev.TeamID != "" {
		return o.sessions.FindByTeamID(ctx, ev.TeamID)
	}
	if ev.IssueID != "" {
		link, ok, err := o.links.ByLinearIssue(ctx, ev.IssueID)
		if err != nil || !ok {
			return session.Session{}, false, err
		}
		return o.sessions.FindByRepoID(ctx, link.GitHubRepoID)
	}
	return session.Session{}, false, nil
}

// HandleLinearEvent syncs one inbound Linear event to GitHub.
func (o *Orchestrator) HandleLinearEvent(ctx context.Context, ev LinearEvent) error {
	sess, ok, err := o.findLinearSession(ctx, ev)
	if err != nil {
		return err
	}
	if !ok || sess.State() != session.Linked {
		o.logger.Debug("ignoring linear event for unlinked team", slog.String("team_id", ev.TeamID))
		return nil
	}
	if o.isEcho(ev.Body) {
		o.logger.Debug("dropping echoed linear delivery", slog.String("team_id", ev.TeamID))
		return nil
	}

	o.logger.Debug("syncing linear event",
		slog.String("kind", string(ev.Kind)),
		slog.String("actor_id", ev.ActorID),
		slog.String("team_id", sess.LinearTeamID),
	)

	if err := o.resolver.Resolve(ctx, o.credentials(sess), sess.GitHubUserID, sess.LinearUserID); err != nil {
		return fmt.Errorf("resolve actor identity: %w", err)
	}

	body := o.rewriteBody(ctx, ev.Body, platform.Linear)

	switch ev.Kind {
	case KindIssueCreated:
		number, err := o.github.CreateIssue(ctx, sess.GitHubAPIKey, sess.GitHubRepoName, ev.Title, o.withFooter(body))
		if err != nil {
			return fmt.Errorf("sync issue to github: %w", err)
		}
		return o.links.Save(ctx, IssueLink{
			GitHubRepoID:      sess.GitHubRepoID,
			GitHubIssueNumber: number,
			LinearIssueID:     ev.IssueID,
		})

	case KindCommentCreated:
		link, ok, err := o.links.ByLinearIssue(ctx, ev.IssueID)
		if err != nil {
			return err
		}
		if !ok {
			o.logger.Debug("comment on unsynced linear issue, skipping",
				slog.String("issue_id", ev.IssueID),
			)
			return nil
		}
		if err := o.github.CreateComment(ctx, sess.GitHubAPIKey, sess.GitHubRepoName, link.GitHubIssueNumber, o.withFooter(body)); err != nil {
			return fmt.Errorf("sync comment to github: %w", err)
		}
		return nil

	case KindIssueClosed, KindIssueReopened:
		link, ok, err := o.links.ByLinearIssue(ctx, ev.IssueID)
		if err != nil || !ok {
			return err
		}
		state := "open"
		if ev.Kind == KindIssueClosed {
			state = "closed"
		}
		if err := o.github.SetIssueState(ctx, sess.GitHubAPIKey, sess.GitHubRepoName, link.GitHubIssueNumber, state); err != nil {
			return fmt.Errorf("sync state to github: %w", err)
		}
		return nil

	default:
		o.logger.Debug("ignoring linear event kind", slog.String("kind", string(ev.Kind)))
		return nil
	}
}
