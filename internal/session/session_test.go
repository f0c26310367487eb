package session

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
	"uaoagenda/internal/rewards"
	"uaoagenda/internal/storage"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var seed = rewards.Seed{Points: 255, Cash: 50000}

func TestResetClearsOnlyFilters(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, storage.NewMemoryStore(), seed)
	s.Favorites.Toggle(ctx, "1")
	s.Filters.SetQuery("jazz")

	s.Reset()
	if s.Filters.Snapshot().Active() {
		t.Fatal("filters survived reset")
	}
	if !s.Favorites.IsFavorite("1") {
		t.Fatal("reset dropped favorites")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := New(ctx, storage.NewMemoryStore(), seed)
	b := New(ctx, storage.NewMemoryStore(), seed)
	a.Favorites.Toggle(ctx, "1")
	if b.Favorites.IsFavorite("1") {
		t.Fatal("state leaked between sessions")
	}
}

func TestRestoreFromSharedBackend(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	a := New(ctx, backend, seed)
	a.Favorites.Toggle(ctx, "1")
	a.Calendar.AddEvent(ctx, model.CalendarEntry{ID: "1", Fecha: "2099-01-01T00:00:00Z"})
	a.Rewards.AddPoints(ctx, 10, "bono")

	b := New(ctx, backend, seed)
	if !b.Favorites.IsFavorite("1") || !b.Calendar.IsInCalendar("1") || b.Points() != 265 {
		t.Fatalf("restore lost state: points=%d", b.Points())
	}
	if b.Upcoming(time.Now(), time.UTC) != 1 || b.FavoritesCount() != 1 {
		t.Fatal("counters disagree with stores")
	}
}

func TestClearStorage(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := New(ctx, backend, seed)
	favs := s.Favorites
	s.Favorites.Toggle(ctx, "1")
	s.Rewards.PurchaseWithPoints(ctx, 100, "Concierto")

	if err := s.ClearStorage(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if favs != s.Favorites || s.Favorites.Count() != 0 || s.Points() != 255 {
		t.Fatalf("stores not reinitialized: favorites=%d points=%d", s.Favorites.Count(), s.Points())
	}
	for _, k := range PersistedKeys {
		if _, ok, _ := backend.Get(ctx, k); ok {
			t.Fatalf("key %s survived clear", k)
		}
	}
}
