package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LinkStore persists issue links between the two platforms.
type LinkStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLinkStore creates an issue link store.
func NewLinkStore(log *slog.Logger, pool *pgxpool.Pool) *LinkStore {
	if log == nil {
		log = slog.Default()
	}
	return &LinkStore{
		pool:   pool,
		logger: log.With(slog.String("service", "sync/links")),
	}
}

// Save records the pairing; replaying the same link is a no-op.
func (s *LinkStore) Save(ctx context.Context, link IssueLink) error {
	if s.pool == nil {
		return fmt.Errorf("link store not configured")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO issue_links (github_repo_id, github_issue_number, linear_issue_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT issue_links_github_key DO NOTHING`,
		link.GitHubRepoID, link.GitHubIssueNumber, link.LinearIssueID,
	)
	if err != nil {
		return fmt.Errorf("save issue link: %w", err)
	}
	return nil
}

// ByGitHubIssue returns the link for a GitHub issue, if one exists.
func (s *LinkStore) ByGitHubIssue(ctx context.Context, repoID int64, issueNumber int) (IssueLink, bool, error) {
	if s.pool == nil {
		return IssueLink{}, false, fmt.Errorf("link store not configured")
	}
	var link IssueLink
	err := s.pool.QueryRow(ctx, `
		SELECT github_repo_id, github_issue_number, linear_issue_id
		FROM issue_links
		WHERE github_repo_id = $1 AND github_issue_number = $2`,
		repoID, issueNumber,
	).Scan(&link.GitHubRepoID, &link.GitHubIssueNumber, &link.LinearIssueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IssueLink{}, false, nil
		}
		return IssueLink{}, false, fmt.Errorf("find issue link: %w", err)
	}
	return link, true, nil
}

// ByLinearIssue returns the link for a Linear issue, if one exists.
func (s *LinkStore) ByLinearIssue(ctx context.Context, linearIssueID string) (IssueLink, bool, error) {
	if s.pool == nil {
		return IssueLink{}, false, fmt.Errorf("link store not configured")
	}
	var link IssueLink
	err := s.pool.QueryRow(ctx, `
		SELECT github_repo_id, github_issue_number, linear_issue_id
		FROM issue_links
		WHERE linear_issue_id = $1`,
		linearIssueID,
	).Scan(&link.GitHubRepoID, &link.GitHubIssueNumber, &link.LinearIssueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IssueLink{}, false, nil
		}
		return IssueLink{}, false, fmt.Errorf("find issue link: %w", err)
	}
	return link, true, nil
}
