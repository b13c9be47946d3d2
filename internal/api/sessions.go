package api

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/folio/internal/view"
)

const (
	DefaultSessionTTL  = 15 * time.Minute
	DefaultMaxSessions = 1024
	minSweepInterval   = time.Second
)

// Session is one browser visit: a view plus its bookkeeping.
type Session struct {
	ID   string
	View *view.View

	lastSeen time.Time
}

// SessionOptions tunes a Sessions registry.
type SessionOptions struct {
	TTL         time.Duration // idle sessions older than this are swept; <=0 uses the default
	MaxSessions int           // live session cap; <=0 uses the default
	Logger      *slog.Logger
	Now         func() time.Time
}

// Sessions owns the live views. Every view it drops, by eviction, sweep or
// removal, is closed so its pending load cannot commit.
type Sessions struct {
	newView func() *view.View
	ttl     time.Duration
	max     int
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	byID  map[string]*list.Element
	order *list.List // front is most recently used
}

// NewSessions creates a registry that builds views with newView.
func NewSessions(newView func() *view.View, opts SessionOptions) *Sessions {
	s := &Sessions{
		newView: newView,
		ttl:     opts.TTL,
		max:     opts.MaxSessions,
		logger:  opts.Logger,
		now:     opts.Now,
		byID:    make(map[string]*list.Element),
		order:   list.New(),
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	if s.max <= 0 {
		s.max = DefaultMaxSessions
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Open creates a session and starts its view's load.
func (s *Sessions) Open(ctx context.Context) *Session {
	sess := &Session{
		ID:   uuid.New().String(),
		View: s.newView(),
	}

	var evicted []*Session
	s.mu.Lock()
	sess.lastSeen = s.now()
	s.byID[sess.ID] = s.order.PushFront(sess)
	for s.order.Len() > s.max {
		evicted = append(evicted, s.removeLocked(s.order.Back()))
	}
	s.mu.Unlock()

	for _, old := range evicted {
		old.View.Close()
		s.logger.Debug("evicted view session", "session", old.ID, "reason", "capacity")
	}

	sess.View.Load(ctx)
	return sess
}

// Get returns the session and marks it used.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	sess := el.Value.(*Session)
	sess.lastSeen = s.now()
	s.order.MoveToFront(el)
	return sess, true
}

// Remove closes and forgets the session. It reports whether it existed.
func (s *Sessions) Remove(id string) bool {
	s.mu.Lock()
	el, ok := s.byID[id]
	var sess *Session
	if ok {
		sess = s.removeLocked(el)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.View.Close()
	return true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were dropped.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for el := s.order.Back(); el != nil; {
		sess := el.Value.(*Session)
		if !sess.lastSeen.Before(cutoff) {
			break
		}
		prev := el.Prev()
		expired = append(expired, s.removeLocked(el))
		el = prev
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.View.Close()
	}
	if len(expired) > 0 {
		s.logger.Debug("swept idle view sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (s *Sessions) Run(ctx context.Context) error {
	interval := max(s.ttl/2, minSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// CloseAll closes and forgets every session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := make([]*Session, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		all = append(all, el.Value.(*Session))
	}
	s.byID = make(map[string]*list.Element)
	s.order.Init()
	s.mu.Unlock()

	for _, sess := range all {
		sess.View.Close()
	}
}

func (s *Sessions) removeLocked(el *list.Element) *Session {
	sess := s.order.Remove(el).(*Session)
	delete(s.byID, sess.ID)
	return sess
}
