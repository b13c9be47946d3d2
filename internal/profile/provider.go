package profile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider fetches the profile shown by a view. Implementations must return
// a fully populated record or an error; partial records are not supported.
type Provider interface {
	FetchProfile(ctx context.Context) (Profile, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Profile, error)

func (f ProviderFunc) FetchProfile(ctx context.Context) (Profile, error) {
	return f(ctx)
}

// DefaultMockDelay matches the latency the sample source simulates.
const DefaultMockDelay = time.Second

// MockProvider returns a fixed record after a fixed delay.
type MockProvider struct {
	record Profile
	delay  time.Duration
}

// NewMockProvider creates a MockProvider serving record after delay.
// A negative delay is treated as zero.
func NewMockProvider(record Profile, delay time.Duration) *MockProvider {
	if delay < 0 {
		delay = 0
	}
	return &MockProvider{record: Clone(record), delay: delay}
}

// FetchProfile waits for the configured delay, or until ctx is done.
func (m *MockProvider) FetchProfile(ctx context.Context) (Profile, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Profile{}, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	return Clone(m.record), nil
}

// ErrNotSeeded is returned by StoreProvider when the store holds no profile.
var ErrNotSeeded = errors.New("no profile has been seeded")

// ProfileStore defines the storage operations StoreProvider needs.
// Implemented by storage.Store.
type ProfileStore interface {
	LoadProfile(ctx context.Context) (Profile, error)
}

// StoreProvider serves the record persisted in a ProfileStore.
type StoreProvider struct {
	store    ProfileStore
	notFound error
}

// NewStoreProvider wraps store. notFound is the store's sentinel for a
// missing record; it is translated to ErrNotSeeded.
func NewStoreProvider(store ProfileStore, notFound error) *StoreProvider {
	return &StoreProvider{store: store, notFound: notFound}
}

func (s *StoreProvider) FetchProfile(ctx context.Context) (Profile, error) {
	p, err := s.store.LoadProfile(ctx)
	if s.notFound != nil && errors.Is(err, s.notFound) {
		return Profile{}, ErrNotSeeded
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile from store: %w", err)
	}
	return p, nil
}
