package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
)

// Parse reads the VEVENTs of an iCalendar document into calendar entries.
// A VEVENT without UID or DTSTART is logged and skipped; the rest are kept.
// Fecha is written as RFC 3339 in loc.
func Parse(body []byte, loc *time.Location) ([]model.CalendarEntry, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	entries := make([]model.CalendarEntry, 0)
	for _, ve := range cal.Events() {
		entry, perr := parseVEvent(ve, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "reason", perr.Error())
			continue
		}
		entries = append(entries, entry)
	}
	appLog.Debug("ics parse completed", "event_count", len(entries))
	return entries, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.CalendarEntry, error) {
	var out model.CalendarEntry

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || strings.TrimSpace(uid.Value) == "" {
		return out, errors.New("missing UID")
	}
	out.ID = strings.TrimSpace(uid.Value)

	if ve.GetProperty(ical.ComponentPropertyDtStart) == nil {
		return out, errors.New("missing DTSTART")
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Fecha = start.In(loc).Format(time.RFC3339)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Titulo = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Lugar = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		// Only the first category survives; entries carry a single one.
		out.Categoria = strings.TrimSpace(strings.Split(p.Value, ",")[0])
	}
	return out, nil
}
