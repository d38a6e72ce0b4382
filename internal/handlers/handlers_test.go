package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/synclinear/syncd/internal/session"
	"github.com/synclinear/syncd/internal/sync"
)

type fakeOrchestrator struct {
	linkResult   sync.LinkResult
	linkErr      error
	githubEvents []sync.GitHubEvent
	linearEvents []sync.LinearEvent
	handleErr    error
}

func (f *fakeOrchestrator) SaveLink(_ context.Context, req sync.LinkRequest) (sync.LinkResult, error) {
	if f.linkErr != nil {
		return sync.LinkResult{}, f.linkErr
	}
	res := f.linkResult
	if res.Session.ID == "" {
		res.Session = session.Session{ID: "sess-1"}
	}
	return res, nil
}

func (f *fakeOrchestrator) HandleGitHubEvent(_ context.Context, ev sync.GitHubEvent) error {
	if f.handleErr != nil {
		return f.handleErr
	}
	f.githubEvents = append(f.githubEvents, ev)
	return nil
}

func (f *fakeOrchestrator) HandleLinearEvent(_ context.Context, ev sync.LinearEvent) error {
	if f.handleErr != nil {
		return f.handleErr
	}
	f.linearEvents = append(f.linearEvents, ev)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
