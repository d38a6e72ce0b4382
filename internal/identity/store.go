// Package identity persists and resolves cross-platform account mappings.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synclinear/syncd/internal/db"
	"github.com/synclinear/syncd/internal/platform"
)

var (
	// ErrStoreConflict is surfaced only if the atomic upsert ever reports a
	// unique-key conflict. Callers may retry.
	ErrStoreConflict = errors.New("identity store conflict")
)

// Store is the sole reader and writer of identity records.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates an identity store backed by the given pool.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("service", "identity/store")),
	}
}

const identityColumns = `id, github_user_id, linear_user_id,
	github_username, github_email, linear_username, linear_email,
	created_at, updated_at`

// Upsert inserts the record or, when the (github_user_id, linear_user_id)
// pair already exists, updates the denormalized display fields in place.
// The statement is a single atomic insert-or-update: concurrent upserts on
// the same pair converge to one row reflecting the last successful write.
func (s *Store) Upsert(ctx context.Context, rec Record) (Record, error) {
	if s.pool == nil {
		return Record{}, fmt.Errorf("identity store not configured")
	}
	if rec.GitHubUserID <= 0 || rec.LinearUserID == "" {
		return Record{}, fmt.Errorf("github_user_id and linear_user_id are required")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO identities (
			github_user_id, linear_user_id,
			github_username, github_email, linear_username, linear_email
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT identities_github_user_id_linear_user_id_key
		DO UPDATE SET
			github_username = EXCLUDED.github_username,
			github_email    = EXCLUDED.github_email,
			linear_username = EXCLUDED.linear_username,
			linear_email    = EXCLUDED.linear_email,
			updated_at      = now()
		RETURNING `+identityColumns,
		rec.GitHubUserID, rec.LinearUserID,
		rec.GitHubUsername, rec.GitHubEmail, rec.LinearUsername, rec.LinearEmail,
	)
	stored, err := scanRecord(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Record{}, fmt.Errorf("%w: %v", ErrStoreConflict, err)
		}
		return Record{}, fmt.Errorf("upsert identity: %w", err)
	}
	return stored, nil
}

// Get returns the record for the exact (githubUserID, linearUserID) pair.
// The second return reports whether the record exists.
func (s *Store) Get(ctx context.Context, githubUserID int64, linearUserID string) (Record, bool, error) {
	if s.pool == nil {
		return Record{}, false, fmt.Errorf("identity store not configured")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE github_user_id = $1 AND linear_user_id = $2`,
		githubUserID, linearUserID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get identity: %w", err)
	}
	return rec, true, nil
}

// MapUsernames returns the cross-platform username pairs for any stored
// record whose username on source matches an element of usernames. This is
// one set-membership query; usernames with no mapping are omitted. An empty
// input returns an empty result without touching the store.
func (s *Store) MapUsernames(ctx context.Context, usernames []string, source platform.Platform) ([]UsernamePair, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	if s.pool == nil {
		return nil, fmt.Errorf("identity store not configured")
	}
	if !source.Valid() {
		return nil, fmt.Errorf("unknown platform: %q", source)
	}

	column := "github_username"
	if source == platform.Linear {
		column = "linear_username"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT github_username, linear_username
		FROM identities
		WHERE `+column+` = ANY($1)
		ORDER BY `+column,
		usernames,
	)
	if err != nil {
		return nil, fmt.Errorf("map usernames: %w", err)
	}
	defer rows.Close()

	var pairs []UsernamePair
	for rows.Next() {
		var p UsernamePair
		if err := rows.Scan(&p.GitHubUsername, &p.LinearUsername); err != nil {
			return nil, fmt.Errorf("scan username pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("map usernames: %w", err)
	}
	return pairs, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.GitHubUserID,
		&rec.LinearUserID,
		&rec.GitHubUsername,
		&rec.GitHubEmail,
		&rec.LinearUsername,
		&rec.LinearEmail,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
