package rewards

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"testing"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/storage"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newStore(t *testing.T, points int64) (*Store, *storage.MemoryStore) {
	t.Helper()
	backend := storage.NewMemoryStore()
	return New(context.Background(), backend, Seed{Points: points}), backend
}

func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	l := s.Snapshot()
	if got := PointsFromHistory(l.History); got != l.Points {
		t.Fatalf("points %d != history sum %d", l.Points, got)
	}
}

func TestDefaultSeedIsConsistent(t *testing.T) {
	s := New(context.Background(), storage.NewMemoryStore(), Seed{
		Points: 255,
		Cash:   50000,
		History: []SeedEntry{
			{Amount: 100, Label: "Asististe al festival de Cali 22"},
			{Amount: 5, Label: LabelShare},
		},
	})
	l := s.Snapshot()
	if l.Points != 255 || l.CashEarned != 50000 {
		t.Fatalf("unexpected seed balances %+v", l)
	}
	if l.History[0].Amount != 100 || l.History[1].Amount != 5 {
		t.Fatalf("seed order not preserved: %+v", l.History)
	}
	if l.History[2].Label != LabelOpeningBalance || l.History[2].Amount != 150 {
		t.Fatalf("expected opening balance of 150, got %+v", l.History[2])
	}
	assertConsistent(t, s)
}

func TestLedgerConsistencyAfterMixedOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	s.AddPoints(ctx, 40, "Asistencia")
	s.PurchaseWithPoints(ctx, 25, "Concierto")
	s.PurchaseWithPoints(ctx, 100, "Demasiado caro")
	s.AddPoints(ctx, 5, LabelShare)
	s.AddCash(ctx, 1000, "Reembolso")

	if s.Points() != 20 {
		t.Fatalf("expected 20 points, got %d", s.Points())
	}
	if s.CashEarned() != 1000 {
		t.Fatalf("cash must be independent of points, got %d", s.CashEarned())
	}
	assertConsistent(t, s)

	h := s.Snapshot().History
	if len(h) != 4 {
		t.Fatalf("expected 4 entries (declined purchase adds none), got %d", len(h))
	}
	if h[0].Kind != KindCashEarned || h[len(h)-1].Label != "Asistencia" {
		t.Fatalf("history not most-recent-first: %+v", h)
	}
	if h[2].Kind != KindPurchase || h[2].Amount != -25 || h[2].Label != "Entrada comprada: Concierto" {
		t.Fatalf("unexpected purchase entry %+v", h[2])
	}
}

func TestPurchaseDeclinedLeavesBalance(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 100)

	if s.PurchaseWithPoints(ctx, 150, "Festival") {
		t.Fatalf("purchase above balance must be declined")
	}
	if s.Points() != 100 {
		t.Fatalf("declined purchase changed points to %d", s.Points())
	}
	if !s.PurchaseWithPoints(ctx, 100, "Festival") {
		t.Fatalf("purchase of exact balance should succeed")
	}
	if s.Points() != 0 {
		t.Fatalf("expected 0 points, got %d", s.Points())
	}
	if s.PurchaseWithPoints(ctx, 0, "Gratis") {
		t.Fatalf("zero-cost purchase should be refused")
	}
}

func TestConcurrentPurchasesNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 100)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.PurchaseWithPoints(ctx, 30, "Entrada") {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 3 {
		t.Fatalf("expected exactly 3 successful purchases, got %d", ok)
	}
	if s.Points() != 10 {
		t.Fatalf("expected 10 points left, got %d", s.Points())
	}
	assertConsistent(t, s)
}

func TestShareGateClosesForever(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t, 0)

	if !s.CanEarnPointsForShare("E1") {
		t.Fatalf("fresh event must be eligible")
	}
	s.MarkEventAsShared(ctx, "E1")
	if s.CanEarnPointsForShare("E1") {
		t.Fatalf("gate must close after mark")
	}

	reloaded := New(ctx, backend, Seed{})
	if reloaded.CanEarnPointsForShare("E1") {
		t.Fatalf("gate must stay closed across reload")
	}
}

func TestAwardShareBonusOncePerEvent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	if !s.AwardShareBonus(ctx, "E1", 5, LabelShare) {
		t.Fatalf("first share should award")
	}
	if s.AwardShareBonus(ctx, "E1", 5, LabelShare) {
		t.Fatalf("second share of the same event must not award")
	}
	if !s.AwardShareBonus(ctx, "E2", 5, LabelShare) {
		t.Fatalf("other events stay eligible")
	}
	if s.Points() != 10 {
		t.Fatalf("expected 10 points, got %d", s.Points())
	}
	if s.CanEarnPointsForShare("E1") || s.CanEarnPointsForShare("E2") {
		t.Fatalf("awarded events must be marked shared")
	}
	assertConsistent(t, s)
}

func TestConcurrentShareBonusAwardsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AwardShareBonus(ctx, "E1", 5, LabelShare)
		}()
	}
	wg.Wait()

	if s.Points() != 5 {
		t.Fatalf("expected a single award of 5, got %d", s.Points())
	}
}

func TestPersistedShape(t *testing.T) {
	ctx := context.Background()
	s, backend := newStore(t, 0)
	s.AwardShareBonus(ctx, "b", 5, LabelShare)
	s.MarkEventAsShared(ctx, "a")

	raw, found, _ := backend.Get(ctx, StorageKey)
	if !found {
		t.Fatalf("expected ledger persisted")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("persisted ledger is not JSON: %v", err)
	}
	for _, k := range []string{"points", "cashEarned", "history", "sharedEventIds"} {
		if _, ok := doc[k]; !ok {
			t.Fatalf("persisted ledger missing %q: %s", k, raw)
		}
	}
	if string(doc["sharedEventIds"]) != `["a","b"]` {
		t.Fatalf("shared ids should persist as a sorted array, got %s", doc["sharedEventIds"])
	}
}

func TestRestoreRecomputesFromHistory(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	_ = backend.Set(ctx, StorageKey, []byte(`{"points":999,"cashEarned":0,"history":[{"id":"1","kind":"points-earned","amount":30,"label":"x"},{"id":"2","kind":"purchase","amount":-10,"label":"y"}],"sharedEventIds":["E1"]}`))

	s := New(ctx, backend, Seed{Points: 255})
	if s.Points() != 20 {
		t.Fatalf("expected points recomputed to 20, got %d", s.Points())
	}
	if s.CanEarnPointsForShare("E1") {
		t.Fatalf("shared ids must restore into the gate")
	}
}

func TestCorruptStorageUsesSeed(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	_ = backend.Set(ctx, StorageKey, []byte("not json"))

	s := New(ctx, backend, Seed{Points: 42})
	if s.Points() != 42 {
		t.Fatalf("expected seed balance, got %d", s.Points())
	}
	assertConsistent(t, s)
}

func TestNonPositiveAwardsIgnored(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10)
	s.AddPoints(ctx, -5, "hack")
	s.AddPoints(ctx, 0, "noop")
	s.AddCash(ctx, -1, "hack")
	if s.Points() != 10 || s.CashEarned() != 0 {
		t.Fatalf("non-positive awards must not move balances: %+v", s.Snapshot())
	}
}
