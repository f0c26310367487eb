// Package query derives views over the catalog and the user stores. Every
// function here is pure: inputs are never mutated and results are fresh
// slices.
package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"uaoagenda/internal/filters"
	"uaoagenda/internal/model"
)

// Options carries the tunables of the listing and home views.
type Options struct {
	Location         *time.Location
	DisplayCap       int
	FeaturedWindow   time.Duration
	FeaturedCap      int
	RecommendedCount int
}

func DefaultOptions() Options {
	return Options{
		Location:         time.Local,
		DisplayCap:       12,
		FeaturedWindow:   7 * 24 * time.Hour,
		FeaturedCap:      3,
		RecommendedCount: 5,
	}
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// EventsOnDate keeps the items whose fecha falls on the calendar date of d in
// loc. Items whose fecha does not parse never match.
func EventsOnDate[T model.Dated](items []T, d time.Time, loc *time.Location) []T {
	if loc == nil {
		loc = time.Local
	}
	out := make([]T, 0)
	for _, it := range items {
		t, err := it.Time(loc)
		if err != nil {
			continue
		}
		if model.SameDate(t, d, loc) {
			out = append(out, it)
		}
	}
	return out
}

// ApplyFilters returns at most opts.DisplayCap events in catalog order.
//
// A non-empty urlCategory replaces the other filters entirely and matches the
// event category case-insensitively. Otherwise the query (a substring of
// titulo, lugar or descripcion), category and day filters are ANDed; an
// empty filter matches everything.
func ApplyFilters(events []model.EventRecord, f filters.State, urlCategory string, opts Options) []model.EventRecord {
	out := make([]model.EventRecord, 0)
	limit := opts.DisplayCap
	if limit <= 0 {
		limit = len(events)
	}

	match := func(e model.EventRecord) bool { return matches(e, f, opts.loc()) }
	if urlCategory != "" {
		want := strings.ToLower(urlCategory)
		match = func(e model.EventRecord) bool {
			return strings.ToLower(string(e.Categoria)) == want
		}
	}

	for _, e := range events {
		if len(out) >= limit {
			break
		}
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.EventRecord, f filters.State, loc *time.Location) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(e.Titulo), q) &&
			!strings.Contains(strings.ToLower(e.Lugar), q) &&
			!strings.Contains(strings.ToLower(e.Descripcion), q) {
			return false
		}
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, string(e.Categoria)) {
		return false
	}
	if len(f.Days) > 0 {
		t, err := e.Time(loc)
		if err != nil {
			return false
		}
		wd := t.Weekday()
		hit := false
		for _, name := range f.Days {
			if day, ok := model.Weekdays[name]; ok && day == wd {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// FeaturedEvents picks, in catalog order, up to opts.FeaturedCap events dated
// within [now, now+opts.FeaturedWindow] that are free or concerts.
func FeaturedEvents(events []model.EventRecord, now time.Time, opts Options) []model.EventRecord {
	out := make([]model.EventRecord, 0)
	end := now.Add(opts.FeaturedWindow)
	for _, e := range events {
		if len(out) >= opts.FeaturedCap {
			break
		}
		t, err := e.Time(opts.loc())
		if err != nil || t.Before(now) || t.After(end) {
			continue
		}
		if e.IsFree() || e.Categoria == model.CategoryConcierto {
			out = append(out, e)
		}
	}
	return out
}

// FindEvent looks an event up by id.
func FindEvent(events []model.EventRecord, id string) (model.EventRecord, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return model.EventRecord{}, false
}

// FavoriteChecker is satisfied by the favorites store.
type FavoriteChecker interface {
	IsFavorite(id string) bool
}

// FavoriteEvents resolves favorite ids against the catalog, in catalog order.
// Ids missing from the catalog are skipped.
func FavoriteEvents(events []model.EventRecord, favs FavoriteChecker) []model.EventRecord {
	out := make([]model.EventRecord, 0)
	for _, e := range events {
		if favs.IsFavorite(e.ID) {
			out = append(out, e)
		}
	}
	return out
}

// ListingTitle is the heading of the events listing.
func ListingTitle(f filters.State, urlCategory string, count int) string {
	switch {
	case urlCategory != "":
		return capitalize(urlCategory) + " (" + strconv.Itoa(count) + ")"
	case f.Active():
		return "Eventos filtrados (" + strconv.Itoa(count) + ")"
	default:
		return "Todos los eventos (" + strconv.Itoa(count) + ")"
	}
}

// CapReached reports whether the listing was truncated at the display cap.
func CapReached(shown, total, limit int) bool {
	return limit > 0 && shown == limit && total > limit
}

// CountMatches counts every event the listing would show without a cap.
func CountMatches(events []model.EventRecord, f filters.State, urlCategory string, opts Options) int {
	opts.DisplayCap = len(events) + 1
	return len(ApplyFilters(events, f, urlCategory, opts))
}

func capitalize(s string) string {
	for i, r := range s {
		if i == 0 {
			return strings.ToUpper(string(r)) + s[len(string(r)):]
		}
	}
	return s
}
