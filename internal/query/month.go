package query

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"uaoagenda/internal/model"
)

// gridDays is six weeks, enough for any month with any week start.
const gridDays = 42

type Day struct {
	Date    string                `json:"date"`
	Day     int                   `json:"day"`
	InMonth bool                  `json:"inMonth"`
	Today   bool                  `json:"today"`
	Weekend bool                  `json:"weekend"`
	Entries []model.CalendarEntry `json:"entries"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]Day    `json:"weeks"`
}

// ParseWeekStart accepts "sunday" or "monday" (case-insensitive); anything
// else means Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}

// MonthGrid lays out a six-week grid for year/month starting on weekStart,
// with the calendar entries of each day attached. Leading and trailing days
// from adjacent months have InMonth false.
func MonthGrid(year int, month time.Month, entries []model.CalendarEntry, weekStart time.Weekday, now time.Time, loc *time.Location) Month {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDate(0, 0, -lead)

	days := enumerateDays(start, gridDays)
	byDate := indexByDate(entries, loc)

	m := Month{Year: first.Year(), Month: first.Month(), Weeks: make([][]Day, 0, gridDays/7)}
	var week []Day
	for _, d := range days {
		key := d.Format(time.DateOnly)
		week = append(week, Day{
			Date:    key,
			Day:     d.Day(),
			InMonth: d.Month() == first.Month(),
			Today:   model.SameDate(d, now, loc),
			Weekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
			Entries: append([]model.CalendarEntry{}, byDate[key]...),
		})
		if len(week) == 7 {
			m.Weeks = append(m.Weeks, week)
			week = nil
		}
	}
	return m
}

// WeekWindow returns the seven local midnights of the week containing now.
func WeekWindow(now time.Time, weekStart time.Weekday, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	back := (int(today.Weekday()) - int(weekStart) + 7) % 7
	return enumerateDays(today.AddDate(0, 0, -back), 7)
}

// enumerateDays yields count consecutive days from start. rrule keeps the
// wall clock across DST transitions.
func enumerateDays(start time.Time, count int) []time.Time {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Count:   count,
	})
	if err != nil {
		out := make([]time.Time, 0, count)
		for i := 0; i < count; i++ {
			out = append(out, start.AddDate(0, 0, i))
		}
		return out
	}
	out := r.All()
	for i := range out {
		out[i] = out[i].In(start.Location())
	}
	return out
}

func indexByDate(entries []model.CalendarEntry, loc *time.Location) map[string][]model.CalendarEntry {
	out := make(map[string][]model.CalendarEntry)
	for _, e := range entries {
		t, err := e.Time(loc)
		if err != nil {
			continue
		}
		key := t.In(loc).Format(time.DateOnly)
		out[key] = append(out[key], e)
	}
	return out
}
