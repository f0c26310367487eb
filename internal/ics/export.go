// Package ics converts calendar entries to and from iCalendar documents so a
// user's agenda can be subscribed to from an external calendar app.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
)

const productID = "-//UAO Agenda Cultural//ES"

// Export renders entries as a PUBLISH calendar. Each entry becomes one VEVENT
// whose UID is the event id. Entries with an unparseable fecha are skipped.
func Export(entries []model.CalendarEntry, now time.Time, loc *time.Location) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Mi calendario UAO")

	for _, e := range entries {
		start, err := e.Time(loc)
		if err != nil {
			appLog.Warn("ics export skipped entry", "id", e.ID, "fecha", e.Fecha)
			continue
		}
		ev := cal.AddEvent(e.ID)
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(start)
		ev.SetSummary(e.Titulo)
		if e.Lugar != "" {
			ev.SetLocation(e.Lugar)
		}
		if e.Categoria != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, e.Categoria)
		}
	}
	return []byte(cal.Serialize())
}
