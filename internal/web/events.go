package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"uaoagenda/internal/filters"
	"uaoagenda/internal/model"
	"uaoagenda/internal/profile"
	"uaoagenda/internal/query"
	"uaoagenda/internal/share"
)

type eventsResponse struct {
	Title      string              `json:"title"`
	Events     []model.EventRecord `json:"events"`
	Total      int                 `json:"total"`
	CapReached bool                `json:"capReached"`
	Filters    filters.State       `json:"filters"`
	Categoria  string              `json:"categoria,omitempty"`
}

// handleEvents serves the listing.
//
// GET /api/events?categoria=CULTURA
//   - categoria: overrides the stored filters entirely when present
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	urlCategory := r.URL.Query().Get("categoria")
	f := s.sess.Filters.Snapshot()
	events, version := s.catalog.Snapshot()

	list := s.memo.ApplyFilters(version, events, f, urlCategory, s.opts)
	total := query.CountMatches(events, f, urlCategory, s.opts)

	writeJSON(w, http.StatusOK, eventsResponse{
		Title:      query.ListingTitle(f, urlCategory, len(list)),
		Events:     list,
		Total:      total,
		CapReached: query.CapReached(len(list), total, s.opts.DisplayCap),
		Filters:    f,
		Categoria:  urlCategory,
	})
}

type detailResponse struct {
	Event        model.EventRecord `json:"event"`
	IsFavorite   bool              `json:"isFavorite"`
	IsInCalendar bool              `json:"isInCalendar"`
	CanEarnShare bool              `json:"canEarnShare"`
	PointsCost   int64             `json:"pointsCost"`
	CanAfford    bool              `json:"canAfford"`
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	e, ok := s.findEvent(w, r)
	if !ok {
		return
	}
	cost := e.PointsCost()
	writeJSON(w, http.StatusOK, detailResponse{
		Event:        e,
		IsFavorite:   s.sess.Favorites.IsFavorite(e.ID),
		IsInCalendar: s.sess.Calendar.IsInCalendar(e.ID),
		CanEarnShare: s.sess.Rewards.CanEarnPointsForShare(e.ID),
		PointsCost:   cost,
		CanAfford:    cost > 0 && s.sess.Rewards.Points() >= cost,
	})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	e, ok := s.findEvent(w, r)
	if !ok {
		return
	}
	if s.share == nil {
		writeError(w, http.StatusServiceUnavailable, "sharing not configured")
		return
	}
	out := s.share.Share(r.Context(), share.BuildPayload(e, s.cfg.Share.BaseURL, s.loc))
	s.metrics.Share(string(out.Status))

	status := http.StatusOK
	if out.Status == share.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

// handleHome serves the home screen.
//
// GET /api/home?filter=conciertos&reset_filters=1
//   - filter:        quick filter chip (todo by default)
//   - reset_filters: clears the listing filters, as navigating home does
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qf, err := query.ParseQuickFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Get("reset_filters") == "1" {
		s.sess.Reset()
	}
	writeJSON(w, http.StatusOK, query.HomeSections(s.catalog.ListEvents(), qf, s.now(), s.opts))
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	favs := query.FavoriteEvents(s.catalog.ListEvents(), s.sess.Favorites)
	writeJSON(w, http.StatusOK, profile.Build(s.cfg.Profile, s.sess, favs, s.now(), s.loc))
}

// findEvent resolves {id} against the catalog, writing 404 when absent.
func (s *Server) findEvent(w http.ResponseWriter, r *http.Request) (model.EventRecord, bool) {
	id := mux.Vars(r)["id"]
	e, ok := query.FindEvent(s.catalog.ListEvents(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
	}
	return e, ok
}
