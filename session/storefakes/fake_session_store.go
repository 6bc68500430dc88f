// Package storefakes provides an in-memory session store for tests.
package storefakes

import (
	"sync"

	"github.com/jrsteele09/go-todo-client/session"
)

// FakeSessionStore is an in-memory implementation of session.Store.
type FakeSessionStore struct {
	mu    sync.Mutex
	state *session.PersistedSession

	// Error injection for failure-path tests.
	LoadErr  error
	SaveErr  error
	ClearErr error

	SaveCount  int
	ClearCount int
}

var _ session.Store = (*FakeSessionStore)(nil)

// NewFakeSessionStore creates an empty fake store.
func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{}
}

// Seed pre-populates the store, as if a previous process had persisted state.
func (f *FakeSessionStore) Seed(state *session.PersistedSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

func (f *FakeSessionStore) Load() (*session.PersistedSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	if f.state == nil {
		return nil, nil
	}
	copied := *f.state
	return &copied, nil
}

func (f *FakeSessionStore) Save(state *session.PersistedSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	copied := *state
	f.state = &copied
	f.SaveCount++
	return nil
}

func (f *FakeSessionStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.state = nil
	f.ClearCount++
	return nil
}

// Persisted returns the currently stored state (nil when cleared).
func (f *FakeSessionStore) Persisted() *session.PersistedSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return nil
	}
	copied := *f.state
	return &copied
}
