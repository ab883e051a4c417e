package store

import (
	"context"
	"sync"

	"github.com/solewatch/solewatch/internal/release"
)

// MemoryStore is an in-memory snapshot store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	snap  release.Snapshot
	saved bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the held snapshot.
func (s *MemoryStore) Save(_ context.Context, snap release.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	s.saved = true
	return nil
}

// Load returns the held snapshot, if any.
func (s *MemoryStore) Load(_ context.Context) (release.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return release.Snapshot{}, false, nil
	}
	return s.snap.Clone(), true, nil
}
