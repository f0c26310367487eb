// Package session groups the per-user stores behind one explicitly
// constructed container.
package session

import (
	"context"
	"time"

	"uaoagenda/internal/calendar"
	"uaoagenda/internal/favorites"
	"uaoagenda/internal/filters"
	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/rewards"
	"uaoagenda/internal/storage"
)

// PersistedKeys lists every storage key owned by a session.
var PersistedKeys = []string{favorites.StorageKey, calendar.StorageKey, rewards.StorageKey}

type Session struct {
	backend storage.Store

	Favorites *favorites.Store
	Calendar  *calendar.Store
	Filters   *filters.Store
	Rewards   *rewards.Store
}

// New restores every persisted store from backend.
func New(ctx context.Context, backend storage.Store, seed rewards.Seed, opts ...rewards.Option) *Session {
	s := &Session{
		backend:   backend,
		Favorites: favorites.New(ctx, backend),
		Calendar:  calendar.New(ctx, backend),
		Filters:   filters.New(),
		Rewards:   rewards.New(ctx, backend, seed, opts...),
	}
	appLog.Info("session restored",
		"favorites", s.Favorites.Count(),
		"calendar", len(s.Calendar.Events()),
		"points", s.Rewards.Points(),
	)
	return s
}

// Reset is the navigate-home transition: only the filters are cleared.
func (s *Session) Reset() {
	s.Filters.Reset()
}

// ClearStorage wipes every persisted key and returns all stores to their
// initial state. Store pointers stay valid.
func (s *Session) ClearStorage(ctx context.Context) error {
	err := storage.Clear(ctx, s.backend, PersistedKeys...)
	s.Favorites.Reset()
	s.Calendar.Reset()
	s.Filters.Reset()
	s.Rewards.Reset()
	if err != nil {
		appLog.Error("session clear storage failed", err)
		return err
	}
	appLog.Info("session storage cleared")
	return nil
}

func (s *Session) FavoritesCount() int { return s.Favorites.Count() }

func (s *Session) Upcoming(now time.Time, loc *time.Location) int {
	return s.Calendar.Upcoming(now, loc)
}

func (s *Session) Points() int64 { return s.Rewards.Points() }
