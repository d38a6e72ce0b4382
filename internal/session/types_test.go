package session

import "testing"

func TestSessionState(t *testing.T) {
	github := GitHubSide{UserID: 1, RepoID: 99, RepoName: "acme/app", APIKey: "gh_token"}
	linear := LinearSide{UserID: "u_1", TeamID: "team_1", APIKey: "lin_api_key"}

	tests := []struct {
		name string
		sess Session
		want State
	}{
		{"empty", Session{}, Unlinked},
		{
			"github only",
			Session{GitHubRepoID: github.RepoID, GitHubAPIKey: github.APIKey},
			PartiallyLinked,
		},
		{
			"linear only",
			Session{LinearTeamID: linear.TeamID, LinearAPIKey: linear.APIKey},
			PartiallyLinked,
		},
		{
			"github repo without key",
			Session{GitHubRepoID: github.RepoID},
			Unlinked,
		},
		{
			"both",
			Session{
				GitHubRepoID: github.RepoID, GitHubAPIKey: github.APIKey,
				LinearTeamID: linear.TeamID, LinearAPIKey: linear.APIKey,
			},
			Linked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSideSet(t *testing.T) {
	if (GitHubSide{}).Set() {
		t.Error("empty github side should not be set")
	}
	if !(GitHubSide{RepoID: 1, APIKey: "k"}).Set() {
		t.Error("expected github side to be set")
	}
	if (LinearSide{TeamID: "t"}).Set() {
		t.Error("linear side without key should not be set")
	}
	if !(LinearSide{TeamID: "t", APIKey: "k"}).Set() {
		t.Error("expected linear side to be set")
	}
}
