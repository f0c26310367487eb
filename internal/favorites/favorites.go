// Package favorites holds the set of event ids the user marked as favorite.
package favorites

import (
	"context"
	"slices"
	"sync"

	"uaoagenda/internal/storage"
)

// StorageKey is where the id list is persisted.
const StorageKey = "uao:favorites"

// Store is the favorites set. Membership order is insertion order so the
// persisted array matches what the user did.
type Store struct {
	backend storage.Store

	mu  sync.RWMutex
	ids []string
}

// New restores the set from backend. Missing or corrupt data yields an
// empty set.
func New(ctx context.Context, backend storage.Store) *Store {
	s := &Store{backend: backend}
	var ids []string
	if storage.LoadJSON(ctx, backend, StorageKey, &ids) {
		s.ids = dedup(ids)
	}
	return s
}

// Toggle flips membership of id and persists the new set.
func (s *Store) Toggle(ctx context.Context, id string) {
	s.mu.Lock()
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(slices.Clone(s.ids), i, i+1)
	} else {
		s.ids = append(slices.Clone(s.ids), id)
	}
	storage.SaveJSON(ctx, s.backend, StorageKey, s.ids)
	s.mu.Unlock()
}

func (s *Store) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, id)
}

// IDs returns a copy of the current set.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Reset empties the in-memory set without touching storage.
func (s *Store) Reset() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
