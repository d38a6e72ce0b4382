package identity

import "time"

// Record links one human across both platforms. The natural key is the
// (GitHubUserID, LinearUserID) pair; the username and email fields are
// denormalized display identities refreshed on every upsert.
type Record struct {
	ID             string    `json:"id"`
	GitHubUserID   int64     `json:"github_user_id"`
	LinearUserID   string    `json:"linear_user_id"`
	GitHubUsername string    `json:"github_username"`
	GitHubEmail    string    `json:"github_email"`
	LinearUsername string    `json:"linear_username"`
	LinearEmail    string    `json:"linear_email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UsernamePair is one cross-platform username mapping.
type UsernamePair struct {
	GitHubUsername string `json:"github_username"`
	LinearUsername string `json:"linear_username"`
}

// Credentials carries per-session platform credentials for the viewer
// profile fetches. The service never refreshes them; they only need to be
// valid for the duration of one resolve call.
type Credentials struct {
	GitHubToken  string
	LinearAPIKey string
}
