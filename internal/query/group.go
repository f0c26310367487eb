package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"uaoagenda/internal/model"
)

// Fold lowercases s and strips combining marks after NFD decomposition, so
// "Académico" and "ACADEMICO" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// GroupByCategory buckets events under each enumerated category, preserving
// catalog order inside a bucket. Every category has a bucket, possibly empty.
func GroupByCategory(events []model.EventRecord) map[model.Category][]model.EventRecord {
	out := make(map[model.Category][]model.EventRecord, len(model.Categories))
	keys := make(map[string]model.Category, len(model.Categories))
	for _, c := range model.Categories {
		out[c] = make([]model.EventRecord, 0)
		keys[Fold(string(c))] = c
	}
	for _, e := range events {
		if c, ok := keys[Fold(string(e.Categoria))]; ok {
			out[c] = append(out[c], e)
		}
	}
	return out
}
