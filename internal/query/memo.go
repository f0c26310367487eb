package query

import (
	"strconv"
	"strings"
	"sync"

	"uaoagenda/internal/filters"
	"uaoagenda/internal/model"
)

// Memo caches listing results for one catalog version. A version change
// drops every entry.
type Memo struct {
	mu      sync.Mutex
	version uint64
	lists   map[string][]model.EventRecord
	groups  map[model.Category][]model.EventRecord
}

func NewMemo() *Memo {
	return &Memo{lists: make(map[string][]model.EventRecord)}
}

// ApplyFilters is the cached form of the package-level ApplyFilters.
func (m *Memo) ApplyFilters(version uint64, events []model.EventRecord, f filters.State, urlCategory string, opts Options) []model.EventRecord {
	key := memoKey(f, urlCategory, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(version)
	if out, ok := m.lists[key]; ok {
		return append([]model.EventRecord{}, out...)
	}
	out := ApplyFilters(events, f, urlCategory, opts)
	m.lists[key] = out
	return append([]model.EventRecord{}, out...)
}

// GroupByCategory is the cached form of the package-level GroupByCategory.
func (m *Memo) GroupByCategory(version uint64, events []model.EventRecord) map[model.Category][]model.EventRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(version)
	if m.groups == nil {
		m.groups = GroupByCategory(events)
	}
	out := make(map[model.Category][]model.EventRecord, len(m.groups))
	for c, list := range m.groups {
		out[c] = append([]model.EventRecord{}, list...)
	}
	return out
}

func (m *Memo) resetLocked(version uint64) {
	if version == m.version {
		return
	}
	m.version = version
	m.lists = make(map[string][]model.EventRecord)
	m.groups = nil
}

func memoKey(f filters.State, urlCategory string, opts Options) string {
	var b strings.Builder
	b.WriteString(urlCategory)
	b.WriteByte(0)
	b.WriteString(f.Query)
	b.WriteByte(0)
	b.WriteString(strings.Join(f.Categories, "\x1f"))
	b.WriteByte(0)
	b.WriteString(strings.Join(f.Days, "\x1f"))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(opts.DisplayCap))
	b.WriteByte(0)
	b.WriteString(opts.loc().String())
	return b.String()
}
