package query

import (
	"fmt"
	"time"

	"uaoagenda/internal/model"
)

// QuickFilter is one of the chips on the home screen.
type QuickFilter string

const (
	QuickTodo       QuickFilter = "todo"
	QuickConciertos QuickFilter = "conciertos"
	QuickCultura    QuickFilter = "cultura"
	QuickDeportes   QuickFilter = "deportes"
	QuickAcademico  QuickFilter = "academico"
)

// ParseQuickFilter maps a query parameter to a QuickFilter. Empty means todo.
func ParseQuickFilter(s string) (QuickFilter, error) {
	switch q := QuickFilter(Fold(s)); q {
	case "":
		return QuickTodo, nil
	case QuickTodo, QuickConciertos, QuickCultura, QuickDeportes, QuickAcademico:
		return q, nil
	}
	return "", fmt.Errorf("unknown quick filter %q", s)
}

type Section struct {
	Title    string              `json:"title"`
	Category model.Category      `json:"categoria"`
	Events   []model.EventRecord `json:"events"`
}

// Home is the home screen. Featured and Recommended are only filled for todo.
type Home struct {
	Filter      QuickFilter         `json:"filter"`
	Featured    []model.EventRecord `json:"featured,omitempty"`
	Recommended []model.EventRecord `json:"recommended,omitempty"`
	Sections    []Section           `json:"sections"`
}

var sectionOrder = []struct {
	filter   QuickFilter
	title    string
	category model.Category
}{
	{QuickConciertos, "Conciertos", model.CategoryConcierto},
	{QuickCultura, "Cultura", model.CategoryCultura},
	{QuickDeportes, "Deportes", model.CategoryDeportivo},
	{QuickAcademico, "Académico", model.CategoryAcademico},
}

// HomeSections builds the home screen for the given quick filter.
func HomeSections(events []model.EventRecord, filter QuickFilter, now time.Time, opts Options) Home {
	groups := GroupByCategory(events)
	h := Home{Filter: filter, Sections: make([]Section, 0, len(sectionOrder))}

	if filter == QuickTodo {
		h.Featured = FeaturedEvents(events, now, opts)
		n := min(opts.RecommendedCount, len(events))
		h.Recommended = append([]model.EventRecord{}, events[:max(n, 0)]...)
	}
	for _, s := range sectionOrder {
		if filter != QuickTodo && filter != s.filter {
			continue
		}
		h.Sections = append(h.Sections, Section{Title: s.title, Category: s.category, Events: groups[s.category]})
	}
	return h
}
