package rewards

import (
	"slices"
	"time"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindPointsEarned Kind = "points-earned"
	KindCashEarned   Kind = "cash-earned"
	KindPurchase     Kind = "purchase"
)

// Entry is one line of the append-only audit trail. Amount is signed:
// purchases are negative.
type Entry struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"kind"`
	Amount int64     `json:"amount"`
	Label  string    `json:"label"`
	At     time.Time `json:"at,omitempty"`
}

// affectsPoints reports whether the entry moves the points balance.
func (e Entry) affectsPoints() bool {
	return e.Kind == KindPointsEarned || e.Kind == KindPurchase
}

// Ledger is a read-only snapshot of the rewards state. History is
// most-recent-first.
type Ledger struct {
	Points         int64    `json:"points"`
	CashEarned     int64    `json:"cashEarned"`
	History        []Entry  `json:"history"`
	SharedEventIDs []string `json:"sharedEventIds"`
}

// PointsFromHistory sums every points-earned and purchase amount.
func PointsFromHistory(history []Entry) int64 {
	var total int64
	for _, e := range history {
		if e.affectsPoints() {
			total += e.Amount
		}
	}
	return total
}

// CashFromHistory sums every cash-earned amount.
func CashFromHistory(history []Entry) int64 {
	var total int64
	for _, e := range history {
		if e.Kind == KindCashEarned {
			total += e.Amount
		}
	}
	return total
}

// persisted is the storage shape. The shared-event set travels as a sorted
// array; toSet/fromSet are the only conversions between the two.
type persisted struct {
	Points         int64    `json:"points"`
	CashEarned     int64    `json:"cashEarned"`
	History        []Entry  `json:"history"`
	SharedEventIDs []string `json:"sharedEventIds"`
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}

func fromSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
