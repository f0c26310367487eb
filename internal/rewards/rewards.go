// Package rewards is the points and cash ledger plus the rules that move
// it: awarding, purchasing with points and the one-bonus-per-event share
// gate.
package rewards

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/storage"
)

// StorageKey is where the ledger is persisted.
const StorageKey = "uao:rewards"

// Labels used by the built-in rules.
const (
	LabelShare          = "Compartiste evento en redes sociales"
	LabelOpeningBalance = "Saldo inicial"
	purchaseLabelPrefix = "Entrada comprada: "
)

// ErrInsufficientPoints is what the HTTP layer reports for a declined
// purchase. The store itself only returns false.
var ErrInsufficientPoints = errors.New("insufficient points")

// SeedEntry is one history line of a fresh ledger.
type SeedEntry struct {
	Amount int64
	Label  string
}

// Seed describes the state of a ledger never persisted before.
type Seed struct {
	Points  int64
	Cash    int64
	History []SeedEntry
}

// Store owns the ledger. Every balance change and the entry describing it
// happen under one lock.
type Store struct {
	backend storage.Store
	seed    Seed
	now     func() time.Time

	mu     sync.RWMutex
	points int64
	cash   int64
	// history is most-recent-first.
	history []Entry
	shared  map[string]struct{}
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New restores the ledger from backend, or starts from seed when nothing
// usable is persisted.
func New(ctx context.Context, backend storage.Store, seed Seed, opts ...Option) *Store {
	s := &Store{backend: backend, seed: seed, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	var p persisted
	if storage.LoadJSON(ctx, backend, StorageKey, &p) {
		s.restore(p)
		return s
	}
	s.applySeed()
	return s
}

func (s *Store) restore(p persisted) {
	s.history = slices.Clone(p.History)
	s.shared = toSet(p.SharedEventIDs)
	s.points = PointsFromHistory(s.history)
	s.cash = CashFromHistory(s.history)
	if s.points != p.Points || s.cash != p.CashEarned {
		appLog.Warn("rewards balance disagrees with history; recomputed from history",
			"stored_points", p.Points, "points", s.points,
			"stored_cash", p.CashEarned, "cash", s.cash)
	}
}

// applySeed builds the opening ledger. Seed lines are kept in the order
// given (most-recent-first); any gap between their sum and the seed balance
// becomes an opening-balance entry at the bottom so points always equal
// the history sum.
func (s *Store) applySeed() {
	at := s.now()
	s.history = make([]Entry, 0, len(s.seed.History)+2)
	s.shared = map[string]struct{}{}

	for _, h := range s.seed.History {
		s.history = append(s.history, Entry{ID: uuid.NewString(), Kind: KindPointsEarned, Amount: h.Amount, Label: h.Label, At: at})
	}
	if gap := s.seed.Points - PointsFromHistory(s.history); gap != 0 {
		s.history = append(s.history, Entry{ID: uuid.NewString(), Kind: KindPointsEarned, Amount: gap, Label: LabelOpeningBalance, At: at})
	}
	if s.seed.Cash != 0 {
		s.history = append(s.history, Entry{ID: uuid.NewString(), Kind: KindCashEarned, Amount: s.seed.Cash, Label: LabelOpeningBalance, At: at})
	}
	s.points = PointsFromHistory(s.history)
	s.cash = CashFromHistory(s.history)
}

// AddPoints credits amount points. Non-positive amounts are ignored.
func (s *Store) AddPoints(ctx context.Context, amount int64, label string) {
	if amount <= 0 {
		appLog.Warn("ignoring non-positive points award", "amount", amount, "label", label)
		return
	}
	s.mu.Lock()
	s.appendLocked(KindPointsEarned, amount, label)
	s.points += amount
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// AddCash credits amount to the cash ledger. Non-positive amounts are ignored.
func (s *Store) AddCash(ctx context.Context, amount int64, label string) {
	if amount <= 0 {
		appLog.Warn("ignoring non-positive cash award", "amount", amount, "label", label)
		return
	}
	s.mu.Lock()
	s.appendLocked(KindCashEarned, amount, label)
	s.cash += amount
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// PurchaseWithPoints spends cost points on an entry for eventName. It
// returns false, changing nothing, when the balance is short or cost is not
// positive.
func (s *Store) PurchaseWithPoints(ctx context.Context, cost int64, eventName string) bool {
	if cost <= 0 {
		return false
	}
	s.mu.Lock()
	if s.points < cost {
		s.mu.Unlock()
		return false
	}
	s.appendLocked(KindPurchase, -cost, purchaseLabelPrefix+eventName)
	s.points -= cost
	s.persistLocked(ctx)
	s.mu.Unlock()
	return true
}

// CanEarnPointsForShare reports whether eventID has never been rewarded for
// a share.
func (s *Store) CanEarnPointsForShare(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, done := s.shared[eventID]
	return !done
}

// MarkEventAsShared closes the share gate for eventID for good.
func (s *Store) MarkEventAsShared(ctx context.Context, eventID string) {
	s.mu.Lock()
	if _, done := s.shared[eventID]; done {
		s.mu.Unlock()
		return
	}
	s.shared[eventID] = struct{}{}
	s.persistLocked(ctx)
	s.mu.Unlock()
}

// AwardShareBonus credits amount for sharing eventID and closes its gate in
// one step. It returns false, changing nothing, if the gate was already
// closed.
func (s *Store) AwardShareBonus(ctx context.Context, eventID string, amount int64, label string) bool {
	if amount <= 0 || eventID == "" {
		return false
	}
	s.mu.Lock()
	if _, done := s.shared[eventID]; done {
		s.mu.Unlock()
		return false
	}
	s.shared[eventID] = struct{}{}
	s.appendLocked(KindPointsEarned, amount, label)
	s.points += amount
	s.persistLocked(ctx)
	s.mu.Unlock()
	return true
}

func (s *Store) Points() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points
}

func (s *Store) CashEarned() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

// Snapshot returns a detached copy of the whole ledger.
func (s *Store) Snapshot() Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Ledger{
		Points:         s.points,
		CashEarned:     s.cash,
		History:        slices.Clone(s.history),
		SharedEventIDs: fromSet(s.shared),
	}
}

// Reset drops all in-memory state and starts again from the seed. Storage
// is not touched.
func (s *Store) Reset() {
	s.mu.Lock()
	s.applySeed()
	s.mu.Unlock()
}

// appendLocked prepends a new entry; history is most-recent-first.
func (s *Store) appendLocked(kind Kind, amount int64, label string) {
	e := Entry{ID: uuid.NewString(), Kind: kind, Amount: amount, Label: label, At: s.now()}
	s.history = append([]Entry{e}, s.history...)
}

// persistLocked writes the full ledger while the lock is held so writes
// land in mutation order.
func (s *Store) persistLocked(ctx context.Context) {
	storage.SaveJSON(ctx, s.backend, StorageKey, persisted{
		Points:         s.points,
		CashEarned:     s.cash,
		History:        s.history,
		SharedEventIDs: fromSet(s.shared),
	})
}
