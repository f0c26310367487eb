package ics

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func bogota(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestExportParseRoundTrip(t *testing.T) {
	loc := bogota(t)
	entries := []model.CalendarEntry{
		{ID: "1", Titulo: "Concierto de Jazz", Fecha: "2026-03-10T19:00:00-05:00", Lugar: "Auditorio", Categoria: "CONCIERTO"},
		{ID: "2", Titulo: "Torneo", Fecha: "2026-03-12T08:30:00", Lugar: "Coliseo", Categoria: "DEPORTIVO"},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	body := Export(entries, now, loc)
	if !strings.Contains(string(body), "BEGIN:VCALENDAR") {
		t.Fatalf("missing VCALENDAR in %q", body)
	}

	got, err := Parse(body, loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for i, e := range got {
		want := entries[i]
		if e.ID != want.ID || e.Titulo != want.Titulo || e.Lugar != want.Lugar || e.Categoria != want.Categoria {
			t.Fatalf("entry %d: got %+v want %+v", i, e, want)
		}
		wt, _ := want.Time(loc)
		gt, err := e.Time(loc)
		if err != nil || !gt.Equal(wt) {
			t.Fatalf("entry %d: time %v (err %v), want %v", i, gt, err, wt)
		}
	}
}

func TestExportSkipsBadFecha(t *testing.T) {
	body := Export([]model.CalendarEntry{{ID: "x", Titulo: "Roto", Fecha: "pronto"}}, time.Now(), time.UTC)
	if strings.Contains(string(body), "BEGIN:VEVENT") {
		t.Fatalf("expected no VEVENT, got %q", body)
	}
}

func TestParseSkipsEventWithoutUID(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"SUMMARY:Sin UID",
		"DTSTART:20260310T190000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"SUMMARY:Con UID",
		"DTSTART:20260311T190000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	got, err := Parse([]byte(body), time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the UID event, got %+v", got)
	}
	if got[0].Fecha != "2026-03-11T19:00:00Z" {
		t.Fatalf("unexpected fecha %q", got[0].Fecha)
	}
}

func TestParseEmptyBody(t *testing.T) {
	if _, err := Parse(nil, time.UTC); err == nil {
		t.Fatal("expected error for empty body")
	}
}
