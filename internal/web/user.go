package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"uaoagenda/internal/ics"
	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/model"
	"uaoagenda/internal/query"
	"uaoagenda/internal/rewards"
)

type favoritesResponse struct {
	IDs    []string            `json:"ids"`
	Events []model.EventRecord `json:"events"`
}

func (s *Server) handleFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, favoritesResponse{
		IDs:    s.sess.Favorites.IDs(),
		Events: query.FavoriteEvents(s.catalog.ListEvents(), s.sess.Favorites),
	})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.sess.Favorites.Toggle(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"isFavorite": s.sess.Favorites.IsFavorite(id),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"events":   s.sess.Calendar.Events(),
		"upcoming": s.sess.Calendar.Upcoming(s.now(), s.loc),
	})
}

type addCalendarRequest struct {
	EventID string `json:"eventId"`
}

// handleAddToCalendar snapshots a catalog event into the calendar. It
// answers 201 when the entry is new and 200 when it was already there.
func (s *Server) handleAddToCalendar(w http.ResponseWriter, r *http.Request) {
	var req addCalendarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := query.FindEvent(s.catalog.ListEvents(), req.EventID)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	entry := e.Snapshot()
	status := http.StatusOK
	added := s.sess.Calendar.AddEvent(r.Context(), entry)
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"added": added, "entry": entry})
}

func (s *Server) handleRemoveFromCalendar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"removed": s.sess.Calendar.RemoveEvent(r.Context(), id),
	})
}

type dayResponse struct {
	Date    string                `json:"date"`
	Entries []model.CalendarEntry `json:"entries"`
	Events  []model.EventRecord   `json:"events"`
}

// handleCalendarDay lists what happens on one local date.
//
// GET /api/calendar/day?date=2026-03-09
//   - date: defaults to today in the configured timezone
func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	day := s.now().In(s.loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Date:    day.Format(time.DateOnly),
		Entries: query.EventsOnDate(s.sess.Calendar.Events(), day, s.loc),
		Events:  query.EventsOnDate(s.catalog.ListEvents(), day, s.loc),
	})
}

// handleCalendarMonth lays out the month grid.
//
// GET /api/calendar/month?year=2026&month=3
//   - year, month: default to the current month
func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	if month < 1 || month > 12 || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}
	writeJSON(w, http.StatusOK, query.MonthGrid(year, time.Month(month), s.sess.Calendar.Events(), s.weekStart, now, s.loc))
}

func (s *Server) handleCalendarICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.sess.Calendar.Events(), s.now(), s.loc)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendario-uao.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleCalendarImport adds every VEVENT of an .ics body. Entries already in
// the calendar (same UID) are counted as skipped.
func (s *Server) handleCalendarImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	entries, err := ics.Parse(body, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS document")
		return
	}
	imported, skipped := 0, 0
	for _, e := range entries {
		if s.sess.Calendar.AddEvent(r.Context(), e) {
			imported++
		} else {
			skipped++
		}
	}
	appLog.Info("calendar import completed", "imported", imported, "skipped", skipped)
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported, "skipped": skipped})
}

func (s *Server) handleFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleResetFilters(w http.ResponseWriter, _ *http.Request) {
	s.sess.Filters.Reset()
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.sess.Filters.SetQuery(req.Query)
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleSetCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories []string `json:"categories"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.sess.Filters.SetCategories(req.Categories)
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	s.sess.Filters.ToggleCategory(mux.Vars(r)["name"])
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleToggleDay(w http.ResponseWriter, r *http.Request) {
	s.sess.Filters.ToggleDay(mux.Vars(r)["name"])
	writeJSON(w, http.StatusOK, s.sess.Filters.Snapshot())
}

func (s *Server) handleRewards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Rewards.Snapshot())
}

type purchaseRequest struct {
	EventID string `json:"eventId"`
}

var errNotForPoints = errors.New("event cannot be bought with points")

// handlePurchase spends points on an event ticket. A declined purchase
// answers 409 and leaves the ledger untouched.
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := query.FindEvent(s.catalog.ListEvents(), req.EventID)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	cost := e.PointsCost()
	if cost <= 0 {
		writeError(w, http.StatusUnprocessableEntity, errNotForPoints.Error())
		return
	}
	if !s.sess.Rewards.PurchaseWithPoints(r.Context(), cost, e.Titulo) {
		s.metrics.Purchase(false)
		writeError(w, http.StatusConflict, rewards.ErrInsufficientPoints.Error())
		return
	}
	s.metrics.Purchase(true)
	writeJSON(w, http.StatusOK, s.sess.Rewards.Snapshot())
}

// handleClearSession wipes persisted user state.
func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.ClearStorage(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear storage")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
