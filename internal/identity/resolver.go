package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/synclinear/syncd/internal/platform"
)

// GitHubProfileSource fetches the authenticated GitHub viewer for a token.
type GitHubProfileSource interface {
	Viewer(ctx context.Context, token string) (platform.GitHubProfile, error)
}

// LinearProfileSource fetches the authenticated Linear viewer for an API key.
type LinearProfileSource interface {
	Viewer(ctx context.Context, apiKey string) (platform.LinearProfile, error)
}

// recordStore is the slice of Store the resolver needs.
type recordStore interface {
	Get(ctx context.Context, githubUserID int64, linearUserID string) (Record, bool, error)
	Upsert(ctx context.Context, rec Record) (Record, error)
}

// Resolver looks up or creates the identity record for an account pair.
type Resolver struct {
	store   recordStore
	github  GitHubProfileSource
	linear  LinearProfileSource
	logger  *slog.Logger
	freshen bool
}

// NewResolver creates an identity resolver over the store and the two
// platform profile sources.
func NewResolver(log *slog.Logger, store *Store, github GitHubProfileSource, linear LinearProfileSource) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:  store,
		github: github,
		linear: linear,
		logger: log.With(slog.String("service", "identity/resolver")),
	}
}

// Resolve ensures an identity record exists for the (githubUserID,
// linearUserID) pair. When the record is absent it fetches the authenticated
// viewer's profile from each platform, one call per platform, and upserts.
// An existing record short-circuits with no outbound calls. Concurrent
// resolves racing on the same pair converge to a single record because the
// store upsert is atomic.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials, githubUserID int64, linearUserID string) error {
	if githubUserID <= 0 {
		return fmt.Errorf("github user id is required")
	}
	if linearUserID == "" {
		return fmt.Errorf("linear user id is required")
	}

	_, exists, err := r.store.Get(ctx, githubUserID, linearUserID)
	if err != nil {
		return err
	}
	if exists && !r.freshen {
		return nil
	}

	ghProfile, err := r.github.Viewer(ctx, creds.GitHubToken)
	if err != nil {
		return fmt.Errorf("github viewer: %w", err)
	}
	linProfile, err := r.linear.Viewer(ctx, creds.LinearAPIKey)
	if err != nil {
		return fmt.Errorf("linear viewer: %w", err)
	}

	r.logger.Info("resolving identity pair",
		slog.Int64("github_user_id", githubUserID),
		slog.String("linear_user_id", linearUserID),
	)

	_, err = r.store.Upsert(ctx, Record{
		GitHubUserID:   githubUserID,
		LinearUserID:   linearUserID,
		GitHubUsername: ghProfile.Login,
		GitHubEmail:    ghProfile.Email,
		LinearUsername: linProfile.DisplayName,
		LinearEmail:    linProfile.Email,
	})
	return err
}
