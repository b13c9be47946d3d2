// Package view holds the profile view: a single state cell populated once by
// an asynchronous load and rendered as a pure function of that state.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/folio/internal/profile"
)

var (
	// ErrLoadFailure marks a load that the provider rejected or that timed out.
	ErrLoadFailure = errors.New("profile load failed")
	// ErrStaleResult marks a load result that arrived after the view was
	// closed or after its attempt was superseded by a retry.
	ErrStaleResult = errors.New("stale profile result")
	// ErrClosed is returned by operations on a closed view.
	ErrClosed = errors.New("view is closed")
	// ErrNotFailed is returned by Retry when the view is not in the failed state.
	ErrNotFailed = errors.New("view has not failed")
)

// Status is the view's load state.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Snapshot is an immutable copy of the view state taken for one render.
type Snapshot struct {
	Status  Status
	Profile *profile.Profile // non-nil only when Status is StatusLoaded
	Err     error            // non-nil only when Status is StatusFailed
	Attempt int
}

// Options tunes a View.
type Options struct {
	// LoadTimeout bounds each load attempt. Zero means no bound: a source
	// that never answers keeps the view loading until it is closed.
	LoadTimeout time.Duration
	Logger      *slog.Logger
	// OnStale, when set, receives every suppressed result.
	OnStale func(error)
}

// View owns one profile state cell. It is written only by the completion of
// its current load attempt and read by any number of renders.
type View struct {
	provider profile.Provider
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	status  Status
	record  *profile.Profile
	err     error
	attempt int
	started bool
	closed  bool
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a view in the loading state. Nothing is fetched until Load.
func New(provider profile.Provider, opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		provider: provider,
		opts:     opts,
		logger:   logger,
		status:   StatusLoading,
		done:     make(chan struct{}),
	}
}

// Load starts the one-shot asynchronous fetch and returns immediately.
// Calls after the first, or after Close, are no-ops. The fetch keeps ctx's
// values but not its cancellation: only Close or the load timeout stop it.
func (v *View) Load(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.started || v.closed {
		return
	}
	v.started = true
	v.parent = context.WithoutCancel(ctx)
	v.startLocked()
}

// Retry starts a new attempt from the failed state.
func (v *View) Retry(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.status != StatusFailed {
		return ErrNotFailed
	}
	if v.parent == nil {
		v.parent = context.WithoutCancel(ctx)
	}
	v.status = StatusLoading
	v.err = nil
	v.done = make(chan struct{})
	v.startLocked()
	return nil
}

// Close tears the view down and cancels any outstanding fetch. A result
// arriving afterwards is dropped. Close is idempotent.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
	if !v.started {
		close(v.done)
	}
}

// Closed reports whether Close has been called.
func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Done returns a channel closed when the current attempt settles, whether
// its result was committed or suppressed.
func (v *View) Done() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// Snapshot copies the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{Status: v.status, Err: v.err, Attempt: v.attempt}
	if v.record != nil {
		p := profile.Clone(*v.record)
		s.Profile = &p
	}
	return s
}

// startLocked launches attempt v.attempt+1. Must be called with mu held.
func (v *View) startLocked() {
	v.attempt++
	gen := v.attempt

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if v.opts.LoadTimeout > 0 {
		ctx, cancel = context.WithTimeout(v.parent, v.opts.LoadTimeout)
	} else {
		ctx, cancel = context.WithCancel(v.parent)
	}
	v.cancel = cancel

	go v.run(ctx, cancel, gen, v.done)
}

type loadResult struct {
	record profile.Profile
	err    error
}

func (v *View) run(ctx context.Context, cancel context.CancelFunc, gen int, done chan struct{}) {
	defer close(done)
	defer cancel()

	resc := make(chan loadResult, 1)
	go func() {
		p, err := v.provider.FetchProfile(ctx)
		resc <- loadResult{record: p, err: err}
	}()

	var res loadResult
	select {
	case res = <-resc:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if stale := v.commit(gen, res); stale != nil {
		v.logger.Debug("suppressed stale profile result", "attempt", gen, "error", stale)
		if v.opts.OnStale != nil {
			v.opts.OnStale(stale)
		}
	}
}

// commit applies res if attempt gen is still current and the view is alive.
// It returns a non-nil ErrStaleResult error when the result was dropped.
func (v *View) commit(gen int, res loadResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("%w: attempt %d finished after close", ErrStaleResult, gen)
	}
	if gen != v.attempt {
		return fmt.Errorf("%w: attempt %d superseded by %d", ErrStaleResult, gen, v.attempt)
	}

	if res.err != nil {
		v.status = StatusFailed
		v.record = nil
		if errors.Is(res.err, context.DeadlineExceeded) && v.opts.LoadTimeout > 0 {
			v.err = fmt.Errorf("%w: timed out after %s: %w", ErrLoadFailure, v.opts.LoadTimeout, res.err)
		} else {
			v.err = fmt.Errorf("%w: %w", ErrLoadFailure, res.err)
		}
		v.logger.Warn("profile load failed", "attempt", gen, "error", res.err)
		return nil
	}

	p := profile.Clone(res.record)
	v.record = &p
	v.status = StatusLoaded
	v.err = nil
	v.logger.Debug("profile loaded", "attempt", gen)
	return nil
}
