package api

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/view"
)

// --- mocks ---

// blockingProvider answers only after release is closed, or fails on ctx.
type blockingProvider struct {
	release chan struct{}
	record  profile.Profile
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{release: make(chan struct{}), record: profile.Sample()}
}

func (b *blockingProvider) FetchProfile(ctx context.Context) (profile.Profile, error) {
	select {
	case <-b.release:
		return profile.Clone(b.record), nil
	case <-ctx.Done():
		return profile.Profile{}, ctx.Err()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessions(t *testing.T, provider profile.Provider, opts SessionOptions) *Sessions {
	t.Helper()
	opts.Logger = quietLogger()
	s := NewSessions(func() *view.View {
		return view.New(provider, view.Options{Logger: quietLogger()})
	}, opts)
	t.Cleanup(s.CloseAll)
	return s
}

// --- tests ---

func TestSessions_OpenAndGet(t *testing.T) {
	s := newTestSessions(t, newBlockingProvider(), SessionOptions{})

	sess := s.Open(context.Background())
	if sess.ID == "" {
		t.Fatal("session has no id")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	got, ok := s.Get(sess.ID)
	if !ok || got != sess {
		t.Fatalf("Get(%q) = %v, %v", sess.ID, got, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) found a session")
	}
	if snap := sess.View.Snapshot(); snap.Attempt != 1 {
		t.Errorf("Attempt = %d, want load started on open", snap.Attempt)
	}
}

func TestSessions_EvictsLeastRecentlyUsed(t *testing.T) {
	s := newTestSessions(t, newBlockingProvider(), SessionOptions{MaxSessions: 2})
	ctx := context.Background()

	a := s.Open(ctx)
	b := s.Open(ctx)
	s.Get(a.ID) // a is now more recent than b
	c := s.Open(ctx)

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if _, ok := s.Get(b.ID); ok {
		t.Error("least recently used session survived")
	}
	if !b.View.Closed() {
		t.Error("evicted view was not closed")
	}
	for _, live := range []*Session{a, c} {
		if _, ok := s.Get(live.ID); !ok {
			t.Errorf("session %s evicted", live.ID)
		}
		if live.View.Closed() {
			t.Errorf("live view %s closed", live.ID)
		}
	}
}

func TestSessions_SweepClosesIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestSessions(t, newBlockingProvider(), SessionOptions{TTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	idle := s.Open(ctx)
	clock.Advance(45 * time.Second)
	active := s.Open(ctx)
	clock.Advance(30 * time.Second)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if !idle.View.Closed() {
		t.Error("idle view not closed")
	}
	if _, ok := s.Get(active.ID); !ok {
		t.Error("active session swept")
	}

	// Get refreshed active; nothing is due yet.
	clock.Advance(59 * time.Second)
	if n := s.Sweep(); n != 0 {
		t.Errorf("second Sweep = %d, want 0", n)
	}
}

func TestSessions_RemoveClosesView(t *testing.T) {
	p := newBlockingProvider()
	s := newTestSessions(t, p, SessionOptions{})

	sess := s.Open(context.Background())
	if !s.Remove(sess.ID) {
		t.Fatal("Remove reported missing session")
	}
	if s.Remove(sess.ID) {
		t.Error("second Remove reported success")
	}
	if !sess.View.Closed() {
		t.Fatal("removed view not closed")
	}

	close(p.release)
	select {
	case <-sess.View.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for load to settle")
	}
	if snap := sess.View.Snapshot(); snap.Status != view.StatusLoading {
		t.Errorf("removed view committed a result: %v", snap.Status)
	}
}

func TestSessions_RunClosesAllOnCancel(t *testing.T) {
	s := newTestSessions(t, newBlockingProvider(), SessionOptions{})
	a := s.Open(context.Background())
	b := s.Open(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after Run, want 0", s.Len())
	}
	if !a.View.Closed() || !b.View.Closed() {
		t.Error("views not closed on shutdown")
	}
}
