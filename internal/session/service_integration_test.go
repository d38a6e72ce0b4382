package session_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synclinear/syncd/internal/session"
)

func setupSessionIntegrationTest(t *testing.T) (*session.Service, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	svc := session.NewService(nil, pool)
	cleanup := func() {
		_, _ = pool.Exec(ctx, "DELETE FROM sync_sessions WHERE github_repo_id IN (9001, 9002) OR linear_team_id IN ('team_it_1', 'team_it_2') OR (github_repo_id = 0 AND linear_team_id = '')")
		pool.Close()
	}
	return svc, cleanup
}

func TestSessionLifecycle(t *testing.T) {
	svc, cleanup := setupSessionIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.State() != session.Unlinked {
		t.Errorf("new session state = %q, want unlinked", sess.State())
	}

	sess, err = svc.SaveGitHubSide(ctx, sess.ID, session.GitHubSide{
		UserID:   1,
		RepoID:   9001,
		RepoName: "acme/widgets",
		APIKey:   "ghp_x",
	})
	if err != nil {
		t.Fatalf("SaveGitHubSide() error = %v", err)
	}
	if sess.State() != session.PartiallyLinked {
		t.Errorf("state after one side = %q, want partially_linked", sess.State())
	}

	sess, err = svc.SaveLinearSide(ctx, sess.ID, session.LinearSide{
		UserID: "u_1",
		TeamID: "team_it_1",
		APIKey: "lin_api_x",
	})
	if err != nil {
		t.Fatalf("SaveLinearSide() error = %v", err)
	}
	if sess.State() != session.Linked {
		t.Errorf("state after both sides = %q, want linked", sess.State())
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.GitHubRepoName != "acme/widgets" || got.LinearTeamID != "team_it_1" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestSessionFindBySide(t *testing.T) {
	svc, cleanup := setupSessionIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveGitHubSide(ctx, sess.ID, session.GitHubSide{RepoID: 9002, RepoName: "acme/gears", APIKey: "ghp_y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveLinearSide(ctx, sess.ID, session.LinearSide{TeamID: "team_it_2", APIKey: "lin_api_y"}); err != nil {
		t.Fatal(err)
	}

	byRepo, ok, err := svc.FindByRepoID(ctx, 9002)
	if err != nil || !ok {
		t.Fatalf("FindByRepoID() = %v, %v", ok, err)
	}
	if byRepo.ID != sess.ID {
		t.Errorf("FindByRepoID() = %s, want %s", byRepo.ID, sess.ID)
	}

	byTeam, ok, err := svc.FindByTeamID(ctx, "team_it_2")
	if err != nil || !ok {
		t.Fatalf("FindByTeamID() = %v, %v", ok, err)
	}
	if byTeam.ID != sess.ID {
		t.Errorf("FindByTeamID() = %s, want %s", byTeam.ID, sess.ID)
	}

	_, ok, err = svc.FindByRepoID(ctx, 424242)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("FindByRepoID() matched an unknown repository")
	}
}

func TestSessionGetUnknownID(t *testing.T) {
	svc, cleanup := setupSessionIntegrationTest(t)
	defer cleanup()

	_, err := svc.Get(context.Background(), "2f9a64f0-0000-0000-0000-000000000000")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}
