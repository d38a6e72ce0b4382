// Package platform defines the two synced platforms and the upstream error taxonomy.
package platform

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Platform identifies one side of the sync pair.
type Platform string

const (
	GitHub Platform = "github"
	Linear Platform = "linear"
)

var (
	// ErrUpstreamAuth marks a credential rejected by a platform (401/403).
	// Not retryable without re-authentication.
	ErrUpstreamAuth = errors.New("upstream rejected credential")
	// ErrUpstreamUnavailable marks a network failure or 5xx from a platform.
	// Retryable with backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Parse normalizes a raw platform name, or errors on anything unknown.
func Parse(raw string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(raw))) {
	case GitHub:
		return GitHub, nil
	case Linear:
		return Linear, nil
	default:
		return "", fmt.Errorf("unknown platform: %q", raw)
	}
}

// Opposite returns the destination platform for content authored on p.
func (p Platform) Opposite() Platform {
	if p == GitHub {
		return Linear
	}
	return GitHub
}

// Valid reports whether p is one of the two known platforms.
func (p Platform) Valid() bool {
	return p == GitHub || p == Linear
}

// ClassifyStatus maps an upstream HTTP status to the error taxonomy.
// Returns nil for 2xx and for client errors that are neither auth nor
// availability failures (those surface as plain errors at the call site).
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUpstreamAuth, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, status)
	default:
		return nil
	}
}
