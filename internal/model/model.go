package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the four catalog categories.
type Category string

const (
	CategoryConcierto Category = "CONCIERTO"
	CategoryCultura   Category = "CULTURA"
	CategoryDeportivo Category = "DEPORTIVO"
	CategoryAcademico Category = "ACADEMICO"
)

// Categories lists the enumerated categories in display order.
var Categories = []Category{CategoryConcierto, CategoryCultura, CategoryDeportivo, CategoryAcademico}

// Valid reports whether c is one of the enumerated values.
func (c Category) Valid() bool {
	switch c {
	case CategoryConcierto, CategoryCultura, CategoryDeportivo, CategoryAcademico:
		return true
	}
	return false
}

// MediaType tells presentation which media field of an event to show.
type MediaType string

const (
	MediaImagen MediaType = "imagen"
	MediaVideo  MediaType = "video"
	MediaAudio  MediaType = "audio"
)

// EventRecord is one catalog item. It is read-only to every store.
type EventRecord struct {
	ID        string   `json:"id"`
	Titulo    string   `json:"titulo"`
	Categoria Category `json:"categoria"`
	// Fecha is the ISO-8601 timestamp exactly as published by the catalog.
	Fecha string `json:"fecha"`
	Lugar string `json:"lugar"`

	Imagen         string    `json:"imagen,omitempty"`
	Video          string    `json:"video,omitempty"`
	Audio          string    `json:"audio,omitempty"`
	TipoMultimedia MediaType `json:"tipoMultimedia,omitempty"`
	Orientacion    string    `json:"orientacion,omitempty"`
	Duracion       string    `json:"duracion,omitempty"`
	Entrada        string    `json:"entrada,omitempty"`
	// PrecioCOP / PrecioPts are nil when the catalog omits them.
	PrecioCOP   *decimal.Decimal `json:"precioCOP,omitempty"`
	PrecioPts   *decimal.Decimal `json:"precioPts,omitempty"`
	Descripcion string           `json:"descripcion,omitempty"`
}

// Time parses Fecha. Records coming out of the catalog always parse.
func (e EventRecord) Time(loc *time.Location) (time.Time, error) {
	return ParseFecha(e.Fecha, loc)
}

// IsFree reports whether the event publishes precioCOP == 0.
func (e EventRecord) IsFree() bool {
	return e.PrecioCOP != nil && e.PrecioCOP.IsZero()
}

// PointsCost is the purchase price in points, or 0 if the event cannot be
// bought with points. Fractional prices round up.
func (e EventRecord) PointsCost() int64 {
	if e.PrecioPts == nil || !e.PrecioPts.IsPositive() {
		return 0
	}
	return e.PrecioPts.Ceil().IntPart()
}

// Snapshot copies the fields a calendar entry keeps.
func (e EventRecord) Snapshot() CalendarEntry {
	return CalendarEntry{
		ID:        e.ID,
		Titulo:    e.Titulo,
		Fecha:     e.Fecha,
		Lugar:     e.Lugar,
		Categoria: string(e.Categoria),
		Imagen:    e.Imagen,
	}
}

// CalendarEntry is a user-scheduled snapshot of an event taken at add time.
type CalendarEntry struct {
	ID        string `json:"id"`
	Titulo    string `json:"titulo"`
	Fecha     string `json:"fecha"`
	Lugar     string `json:"lugar"`
	Categoria string `json:"categoria"`
	Imagen    string `json:"imagen,omitempty"`
}

// Time parses Fecha of the snapshot.
func (c CalendarEntry) Time(loc *time.Location) (time.Time, error) {
	return ParseFecha(c.Fecha, loc)
}

// Dated is implemented by anything that carries a catalog fecha.
type Dated interface {
	Time(loc *time.Location) (time.Time, error)
}

// fechaLayouts are tried in order. Values without an offset are read in the
// display location, the way a browser reads them in local time.
var fechaLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseFecha parses an ISO-8601 timestamp. A nil loc means time.Local.
func ParseFecha(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty fecha")
	}
	if loc == nil {
		loc = time.Local
	}
	for i, layout := range fechaLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, errors.New("invalid fecha: " + s)
}

// Weekdays maps the Spanish weekday names used by the filters screen to
// time.Weekday (Sunday=0 .. Saturday=6).
var Weekdays = map[string]time.Weekday{
	"Domingo":   time.Sunday,
	"Lunes":     time.Monday,
	"Martes":    time.Tuesday,
	"Miércoles": time.Wednesday,
	"Jueves":    time.Thursday,
	"Viernes":   time.Friday,
	"Sábado":    time.Saturday,
}

// WeekdayNames lists the names in the order the filters screen shows them.
var WeekdayNames = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
