// Package calendar holds the events the user scheduled, as snapshots taken
// at add time.
package calendar

import (
	"context"
	"slices"
	"sync"
	"time"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
	"uaoagenda/internal/storage"
)

// StorageKey is where the entry list is persisted.
const StorageKey = "calendar-storage"

// envelopeVersion is bumped whenever the persisted state shape changes.
const envelopeVersion = 0

// envelope is the versioned wrapper the entry list is persisted in.
type envelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	Events []model.CalendarEntry `json:"events"`
}

// Store is the user's calendar. Entries are unique by id.
type Store struct {
	backend storage.Store

	mu      sync.RWMutex
	entries []model.CalendarEntry
}

// New restores the calendar from backend. Missing, corrupt or
// unknown-version data yields an empty calendar.
func New(ctx context.Context, backend storage.Store) *Store {
	s := &Store{backend: backend}
	var env envelope
	if !storage.LoadJSON(ctx, backend, StorageKey, &env) {
		return s
	}
	if env.Version != envelopeVersion {
		appLog.Warn("calendar storage version mismatch; starting empty", "version", env.Version, "want", envelopeVersion)
		return s
	}
	seen := make(map[string]struct{}, len(env.State.Events))
	for _, e := range env.State.Events {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		s.entries = append(s.entries, e)
	}
	return s
}

// AddEvent inserts entry unless an entry with the same id exists. It reports
// whether the calendar changed.
func (s *Store) AddEvent(ctx context.Context, entry model.CalendarEntry) bool {
	s.mu.Lock()
	if s.indexLocked(entry.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.entries = append(slices.Clone(s.entries), entry)
	s.persistLocked(ctx)
	s.mu.Unlock()
	return true
}

// RemoveEvent drops the entry with id. It reports whether the calendar
// changed. Every call persists, present or not.
func (s *Store) RemoveEvent(ctx context.Context, id string) bool {
	s.mu.Lock()
	removed := false
	if i := s.indexLocked(id); i >= 0 {
		s.entries = slices.Delete(slices.Clone(s.entries), i, i+1)
		removed = true
	}
	s.persistLocked(ctx)
	s.mu.Unlock()
	return removed
}

func (s *Store) IsInCalendar(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) >= 0
}

// Events returns a copy of the entries in insertion order.
func (s *Store) Events() []model.CalendarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Upcoming counts entries dated strictly after now. Entries whose fecha
// does not parse are skipped.
func (s *Store) Upcoming(now time.Time, loc *time.Location) int {
	n := 0
	for _, e := range s.Events() {
		t, err := e.Time(loc)
		if err != nil {
			continue
		}
		if t.After(now) {
			n++
		}
	}
	return n
}

// Reset empties the in-memory calendar without touching storage.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.entries, func(e model.CalendarEntry) bool { return e.ID == id })
}

// persistLocked writes the full list while the lock is held so writes land
// in mutation order.
func (s *Store) persistLocked(ctx context.Context) {
	entries := s.entries
	if entries == nil {
		entries = []model.CalendarEntry{}
	}
	storage.SaveJSON(ctx, s.backend, StorageKey, envelope{
		State:   persistedState{Events: entries},
		Version: envelopeVersion,
	})
}
