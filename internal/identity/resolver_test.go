package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/synclinear/syncd/internal/platform"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]Record
	gets    int
	upserts int
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func storeKey(githubUserID int64, linearUserID string) string {
	return fmt.Sprintf("%d/%s", githubUserID, linearUserID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fakeStore) Get(_ context.Context, githubUserID int64, linearUserID string) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return Record{}, false, f.getErr
	}
	rec, ok := f.records[storeKey(githubUserID, linearUserID)]
	return rec, ok, nil
}

func (f *fakeStore) Upsert(_ context.Context, rec Record) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.records[storeKey(rec.GitHubUserID, rec.LinearUserID)] = rec
	return rec, nil
}

type fakeGitHubSource struct {
	profile platform.GitHubProfile
	err     error
	calls   int
}

func (f *fakeGitHubSource) Viewer(context.Context, string) (platform.GitHubProfile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeLinearSource struct {
	profile platform.LinearProfile
	err     error
	calls   int
}

func (f *fakeLinearSource) Viewer(context.Context, string) (platform.LinearProfile, error) {
	f.calls++
	return f.profile, f.err
}

func newTestResolver(store recordStore, gh GitHubProfileSource, lin LinearProfileSource) *Resolver {
	return &Resolver{store: store, github: gh, linear: lin, logger: testLogger()}
}

func TestResolveCreatesRecord(t *testing.T) {
	store := newFakeStore()
	gh := &fakeGitHubSource{profile: platform.GitHubProfile{ID: 42, Login: "bob", Email: "b@x.com"}}
	lin := &fakeLinearSource{profile: platform.LinearProfile{ID: "u_9", DisplayName: "bob_l", Email: "bl@x.com"}}
	r := newTestResolver(store, gh, lin)

	if err := r.Resolve(context.Background(), Credentials{}, 42, "u_9"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	rec, ok := store.records[storeKey(42, "u_9")]
	if !ok {
		t.Fatal("expected record to be stored")
	}
	if rec.GitHubUsername != "bob" || rec.GitHubEmail != "b@x.com" {
		t.Errorf("github fields = %q/%q", rec.GitHubUsername, rec.GitHubEmail)
	}
	if rec.LinearUsername != "bob_l" || rec.LinearEmail != "bl@x.com" {
		t.Errorf("linear fields = %q/%q", rec.LinearUsername, rec.LinearEmail)
	}
	if gh.calls != 1 || lin.calls != 1 {
		t.Errorf("expected one profile fetch per platform, got %d/%d", gh.calls, lin.calls)
	}
}

func TestResolveExistingRecordSkipsFetches(t *testing.T) {
	store := newFakeStore()
	store.records[storeKey(42, "u_9")] = Record{GitHubUserID: 42, LinearUserID: "u_9"}
	gh := &fakeGitHubSource{}
	lin := &fakeLinearSource{}
	r := newTestResolver(store, gh, lin)

	if err := r.Resolve(context.Background(), Credentials{}, 42, "u_9"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if gh.calls != 0 || lin.calls != 0 {
		t.Errorf("expected no profile fetches, got %d/%d", gh.calls, lin.calls)
	}
	if store.upserts != 0 {
		t.Errorf("expected no writes, got %d", store.upserts)
	}
}

func TestResolveValidatesKey(t *testing.T) {
	r := newTestResolver(newFakeStore(), &fakeGitHubSource{}, &fakeLinearSource{})

	if err := r.Resolve(context.Background(), Credentials{}, 0, "u_9"); err == nil {
		t.Error("expected error for zero github user id")
	}
	if err := r.Resolve(context.Background(), Credentials{}, 42, ""); err == nil {
		t.Error("expected error for empty linear user id")
	}
}

func TestResolveSurfacesUpstreamErrors(t *testing.T) {
	store := newFakeStore()
	gh := &fakeGitHubSource{err: platform.ErrUpstreamAuth}
	lin := &fakeLinearSource{}
	r := newTestResolver(store, gh, lin)

	err := r.Resolve(context.Background(), Credentials{}, 42, "u_9")
	if !errors.Is(err, platform.ErrUpstreamAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if store.upserts != 0 {
		t.Error("expected no write after failed fetch")
	}

	gh.err = nil
	lin.err = platform.ErrUpstreamUnavailable
	err = r.Resolve(context.Background(), Credentials{}, 42, "u_9")
	if !errors.Is(err, platform.ErrUpstreamUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestResolveConcurrentSamePair(t *testing.T) {
	store := newFakeStore()
	gh := &fakeGitHubSource{profile: platform.GitHubProfile{ID: 42, Login: "bob"}}
	lin := &fakeLinearSource{profile: platform.LinearProfile{ID: "u_9", DisplayName: "bob_l"}}
	r := newTestResolver(store, gh, lin)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Resolve(context.Background(), Credentials{}, 42, "u_9"); err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(store.records) != 1 {
		t.Errorf("expected exactly one record, got %d", len(store.records))
	}
}
