// Package filters holds the transient search state of the events listing.
// It is never persisted.
package filters

import (
	"slices"
	"sync"
)

// State is an immutable snapshot of the filters.
type State struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories"`
	Days       []string `json:"days"`
}

// Active reports whether any filter is set.
func (s State) Active() bool {
	return s.Query != "" || len(s.Categories) > 0 || len(s.Days) > 0
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func New() *Store {
	return &Store{state: empty()}
}

func (s *Store) SetQuery(q string) {
	s.mu.Lock()
	s.state.Query = q
	s.mu.Unlock()
}

// SetCategories replaces the category set, dropping duplicates.
func (s *Store) SetCategories(c []string) {
	next := make([]string, 0, len(c))
	for _, name := range c {
		if !slices.Contains(next, name) {
			next = append(next, name)
		}
	}
	s.mu.Lock()
	s.state.Categories = next
	s.mu.Unlock()
}

func (s *Store) ToggleCategory(name string) {
	s.mu.Lock()
	s.state.Categories = toggle(s.state.Categories, name)
	s.mu.Unlock()
}

func (s *Store) ToggleDay(name string) {
	s.mu.Lock()
	s.state.Days = toggle(s.state.Days, name)
	s.mu.Unlock()
}

// Reset clears the query and both sets.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = empty()
	s.mu.Unlock()
}

// Snapshot returns a copy safe to read without the lock.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Query:      s.state.Query,
		Categories: slices.Clone(s.state.Categories),
		Days:       slices.Clone(s.state.Days),
	}
}

func empty() State {
	return State{Categories: []string{}, Days: []string{}}
}

func toggle(set []string, v string) []string {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), v)
}
