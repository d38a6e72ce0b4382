package linearapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/platform"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(nil, config.LinearConfig{APIBaseURL: srv.URL, TimeoutSeconds: 2})
}

func TestViewer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "lin_api_abc" {
			t.Errorf("Authorization = %q, want raw api key", got)
		}
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"viewer": map[string]any{"id": "u_9", "displayName": "bob_l", "email": "bl@x.com"},
			},
		})
	})

	profile, err := client.Viewer(context.Background(), "lin_api_abc")
	if err != nil {
		t.Fatalf("Viewer() error = %v", err)
	}
	if profile.ID != "u_9" || profile.DisplayName != "bob_l" || profile.Email != "bl@x.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestViewerAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Viewer(context.Background(), "bad-key")
	if !errors.Is(err, platform.ErrUpstreamAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestViewerGraphQLAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{
				"message":    "authentication required",
				"extensions": map[string]any{"code": "AUTHENTICATION_ERROR"},
			}},
		})
	})

	_, err := client.Viewer(context.Background(), "bad-key")
	if !errors.Is(err, platform.ErrUpstreamAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestViewerServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Viewer(context.Background(), "lin_api_abc")
	if !errors.Is(err, platform.ErrUpstreamUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestViewerNetworkError(t *testing.T) {
	client := NewClient(nil, config.LinearConfig{APIBaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1})

	_, err := client.Viewer(context.Background(), "lin_api_abc")
	if !errors.Is(err, platform.ErrUpstreamUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestCreateIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		input, _ := req.Variables["input"].(map[string]any)
		if input["teamId"] != "team_1" || input["title"] != "bug" {
			t.Errorf("unexpected input: %v", input)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"issueCreate": map[string]any{
					"success": true,
					"issue":   map[string]any{"id": "iss_1", "identifier": "ENG-1"},
				},
			},
		})
	})

	id, err := client.CreateIssue(context.Background(), "lin_api_abc", "team_1", "bug", "details")
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if id != "iss_1" {
		t.Errorf("issue id = %q, want iss_1", id)
	}
}

func TestCreateCommentNotSuccessful(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"commentCreate": map[string]any{"success": false}},
		})
	})

	if err := client.CreateComment(context.Background(), "lin_api_abc", "iss_1", "hi"); err == nil {
		t.Error("expected error for unsuccessful mutation")
	}
}

func TestTeamStateID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"team": map[string]any{
					"states": map[string]any{
						"nodes": []map[string]any{
							{"id": "st_1", "type": "unstarted"},
							{"id": "st_2", "type": "started"},
							{"id": "st_3", "type": "completed"},
						},
					},
				},
			},
		})
	})

	id, err := client.TeamStateID(context.Background(), "lin_api_abc", "team_1", "completed")
	if err != nil {
		t.Fatalf("TeamStateID() error = %v", err)
	}
	if id != "st_3" {
		t.Errorf("TeamStateID() = %q, want st_3", id)
	}

	_, err = client.TeamStateID(context.Background(), "lin_api_abc", "team_1", "triage")
	if err == nil {
		t.Error("expected error for missing state type")
	}
}

func TestAuthHeader(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"lin_api_xyz", "lin_api_xyz"},
		{"  lin_api_xyz  ", "lin_api_xyz"},
		{"oauth-token", "Bearer oauth-token"},
	}
	for _, tt := range tests {
		if got := authHeader(tt.key); got != tt.want {
			t.Errorf("authHeader(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
