package sync

import (
	"github.com/synclinear/syncd/internal/session"
)

// EventKind classifies an inbound webhook event after boundary narrowing.
type EventKind string

const (
	KindIssueCreated   EventKind = "issue_created"
	KindCommentCreated EventKind = "comment_created"
	KindIssueClosed    EventKind = "issue_closed"
	KindIssueReopened  EventKind = "issue_reopened"
)

// GitHubEvent is the narrow shape extracted from a GitHub webhook delivery.
// The core never sees the platform's raw payload.
type GitHubEvent struct {
	Kind        EventKind
	ActorID     int64
	RepoID      int64
	IssueNumber int
	Title       string
	Body        string
}

// LinearEvent is the narrow shape extracted from a Linear webhook delivery.
type LinearEvent struct {
	Kind    EventKind
	ActorID string
	TeamID  string
	IssueID string
	Title   string
	Body    string
}

// LinkRequest carries one or both sides of a pairing. An empty SessionID
// creates a new session.
type LinkRequest struct {
	SessionID string
	GitHub    *session.GitHubSide
	Linear    *session.LinearSide
}

// LinkResult reports the session after a save. WebhookErr is set when the
// Linked transition succeeded but destination webhook registration failed:
// the session stays Linked and registration can be retried independently.
type LinkResult struct {
	Session    session.Session
	State      session.State
	WebhookErr error
}

// IssueLink ties a GitHub issue to its Linear counterpart so comments and
// state changes route to the right artifact instead of creating orphans.
type IssueLink struct {
	GitHubRepoID      int64
	GitHubIssueNumber int
	LinearIssueID     string
}
