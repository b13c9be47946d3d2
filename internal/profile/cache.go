package profile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CachedProvider keeps the last fetched profile for a TTL and coalesces
// concurrent fetches into a single upstream call.
type CachedProvider struct {
	upstream Provider
	clock    Clock
	ttl      time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewCachedProvider creates a CachedProvider with the given TTL.
// A TTL <= 0 disables caching but still coalesces concurrent fetches.
func NewCachedProvider(upstream Provider, ttl time.Duration) *CachedProvider {
	return NewCachedProviderWithClock(upstream, realClock{}, ttl)
}

// NewCachedProviderWithClock creates a CachedProvider with a custom clock (for testing).
func NewCachedProviderWithClock(upstream Provider, clock Clock, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		clock:    clock,
		ttl:      ttl,
	}
}

// FetchProfile returns the cached profile while fresh, otherwise fetches
// from upstream. Errors are never cached.
func (c *CachedProvider) FetchProfile(ctx context.Context) (Profile, error) {
	c.mu.RLock()
	if c.fresh() {
		p := Clone(*c.cached)
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	// The shared fetch outlives any single caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("profile", func() (any, error) {
		p, err := c.upstream.FetchProfile(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		stored := Clone(p)
		c.cached = &stored
		c.cachedAt = c.clock.Now()
		c.mu.Unlock()
		return p, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Profile{}, res.Err
		}
		return Clone(res.Val.(Profile)), nil
	case <-ctx.Done():
		return Profile{}, ctx.Err()
	}
}

// Invalidate drops the cached profile.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// fresh must be called with mu held.
func (c *CachedProvider) fresh() bool {
	return c.ttl > 0 && c.cached != nil && c.clock.Now().Before(c.cachedAt.Add(c.ttl))
}
