// Package session persists sync sessions, the team/repo pairings being synced.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synclinear/syncd/internal/db"
)

var (
	ErrSessionNotFound = errors.New("sync session not found")
)

// Service provides sync session lifecycle operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a sync session service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "session")),
	}
}

const sessionColumns = `id, github_user_id, github_repo_id, github_repo_name, github_api_key,
	linear_user_id, linear_team_id, linear_api_key, created_at, updated_at`

// Create inserts an empty (Unlinked) session and returns it.
func (s *Service) Create(ctx context.Context) (Session, error) {
	if s.pool == nil {
		return Session{}, fmt.Errorf("session service not configured")
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO sync_sessions DEFAULT VALUES RETURNING `+sessionColumns)
	return scanSession(row)
}

// Get returns the session with the given id.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if s.pool == nil {
		return Session{}, fmt.Errorf("session service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Session{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sync_sessions WHERE id = $1`, pgID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// SaveGitHubSide merges the GitHub half into the session row.
func (s *Service) SaveGitHubSide(ctx context.Context, id string, side GitHubSide) (Session, error) {
	if s.pool == nil {
		return Session{}, fmt.Errorf("session service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Session{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE sync_sessions SET
			github_user_id   = $2,
			github_repo_id   = $3,
			github_repo_name = $4,
			github_api_key   = $5,
			updated_at       = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		pgID, side.UserID, side.RepoID, side.RepoName, side.APIKey,
	)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("save github side: %w", err)
	}
	return sess, nil
}

// SaveLinearSide merges the Linear half into the session row.
func (s *Service) SaveLinearSide(ctx context.Context, id string, side LinearSide) (Session, error) {
	if s.pool == nil {
		return Session{}, fmt.Errorf("session service not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Session{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE sync_sessions SET
			linear_user_id = $2,
			linear_team_id = $3,
			linear_api_key = $4,
			updated_at     = now()
		WHERE id = $1
		RETURNING `+sessionColumns,
		pgID, side.UserID, side.TeamID, side.APIKey,
	)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("save linear side: %w", err)
	}
	return sess, nil
}

// FindByRepoID returns the session linked to the given GitHub repository.
func (s *Service) FindByRepoID(ctx context.Context, repoID int64) (Session, bool, error) {
	if s.pool == nil {
		return Session{}, false, fmt.Errorf("session service not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sync_sessions WHERE github_repo_id = $1`, repoID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("find session by repo: %w", err)
	}
	return sess, true, nil
}

// FindByTeamID returns the session linked to the given Linear team.
func (s *Service) FindByTeamID(ctx context.Context, teamID string) (Session, bool, error) {
	if s.pool == nil {
		return Session{}, false, fmt.Errorf("session service not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sync_sessions WHERE linear_team_id = $1`, teamID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("find session by team: %w", err)
	}
	return sess, true, nil
}

func scanSession(row pgx.Row) (Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID,
		&sess.GitHubUserID,
		&sess.GitHubRepoID,
		&sess.GitHubRepoName,
		&sess.GitHubAPIKey,
		&sess.LinearUserID,
		&sess.LinearTeamID,
		&sess.LinearAPIKey,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	return sess, err
}
