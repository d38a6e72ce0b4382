package session

import "time"

// State is the lifecycle position of one team/repo pairing.
type State string

const (
	// Unlinked means neither side has chosen a team or repository yet.
	Unlinked State = "unlinked"
	// PartiallyLinked means exactly one side is configured; no sync occurs.
	PartiallyLinked State = "partially_linked"
	// Linked means both identifiers are known and webhook events sync.
	// The state is re-enterable: later failures never unset it.
	Linked State = "linked"
)

// Session is one Linear team to GitHub repository pairing.
type Session struct {
	ID             string    `json:"id"`
	GitHubUserID   int64     `json:"github_user_id"`
	GitHubRepoID   int64     `json:"github_repo_id"`
	GitHubRepoName string    `json:"github_repo_name"`
	GitHubAPIKey   string    `json:"-"`
	LinearUserID   string    `json:"linear_user_id"`
	LinearTeamID   string    `json:"linear_team_id"`
	LinearAPIKey   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GitHubSide is the GitHub half of a pairing request.
type GitHubSide struct {
	UserID   int64  `json:"user_id"`
	RepoID   int64  `json:"repo_id"`
	RepoName string `json:"repo_name"`
	APIKey   string `json:"api_key"`
}

// LinearSide is the Linear half of a pairing request.
type LinearSide struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	APIKey string `json:"api_key"`
}

// Set reports whether this side carries a usable pairing.
func (g GitHubSide) Set() bool {
	return g.RepoID != 0 && g.APIKey != ""
}

// Set reports whether this side carries a usable pairing.
func (l LinearSide) Set() bool {
	return l.TeamID != "" && l.APIKey != ""
}

// State derives the lifecycle state from which identifiers are present.
func (s Session) State() State {
	githubSet := s.GitHubRepoID != 0 && s.GitHubAPIKey != ""
	linearSet := s.LinearTeamID != "" && s.LinearAPIKey != ""
	switch {
	case githubSet && linearSet:
		return Linked
	case githubSet || linearSet:
		return PartiallyLinked
	default:
		return Unlinked
	}
}
