package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"uaoagenda/internal/config"
	appLog "uaoagenda/internal/log"
	"uaoagenda/internal/metrics"
	"uaoagenda/internal/model"
	"uaoagenda/internal/query"
	"uaoagenda/internal/session"
	"uaoagenda/internal/share"
)

// Catalog is the read side of catalog.Catalog used by the handlers.
type Catalog interface {
	ListEvents() []model.EventRecord
	Snapshot() ([]model.EventRecord, uint64)
}

// Deps are the collaborators of a Server. Metrics and AccessLog may be nil.
type Deps struct {
	Config    *config.Config
	Catalog   Catalog
	Session   *session.Session
	Share     *share.Service
	Metrics   *metrics.Metrics
	AccessLog io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server exposes the agenda over a JSON HTTP API.
type Server struct {
	cfg       *config.Config
	catalog   Catalog
	sess      *session.Session
	share     *share.Service
	metrics   *metrics.Metrics
	accessLog io.Writer
	now       func() time.Time

	loc       *time.Location
	opts      query.Options
	weekStart time.Weekday
	memo      *query.Memo
	router    *mux.Router
}

// NewServer constructs a new Server.
func NewServer(d Deps) *Server {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location()
	s := &Server{
		cfg:       cfg,
		catalog:   d.Catalog,
		sess:      d.Session,
		share:     d.Share,
		metrics:   d.Metrics,
		accessLog: d.AccessLog,
		now:       now,
		loc:       loc,
		opts: query.Options{
			Location:         loc,
			DisplayCap:       cfg.Query.DisplayCap,
			FeaturedWindow:   cfg.Query.FeaturedWindow(),
			FeaturedCap:      cfg.Query.FeaturedCap,
			RecommendedCount: cfg.Query.RecommendedCount,
		},
		weekStart: query.ParseWeekStart(cfg.WeekStart),
		memo:      query.NewMemo(),
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	if s.accessLog != nil {
		h = handlers.LoggingHandler(s.accessLog, h)
	}
	return h
}

func (s *Server) registerRoutes() {
	r := s.router
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.handleEventDetail).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/share", s.handleShare).Methods(http.MethodPost)
	api.HandleFunc("/home", s.handleHome).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)

	api.HandleFunc("/favorites", s.handleFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{id}/toggle", s.handleToggleFavorite).Methods(http.MethodPost)

	api.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet)
	api.HandleFunc("/calendar", s.handleAddToCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendar/day", s.handleCalendarDay).Methods(http.MethodGet)
	api.HandleFunc("/calendar/month", s.handleCalendarMonth).Methods(http.MethodGet)
	api.HandleFunc("/calendar.ics", s.handleCalendarICS).Methods(http.MethodGet)
	api.HandleFunc("/calendar/import", s.handleCalendarImport).Methods(http.MethodPost)
	api.HandleFunc("/calendar/{id}", s.handleRemoveFromCalendar).Methods(http.MethodDelete)

	api.HandleFunc("/filters", s.handleFilters).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handleResetFilters).Methods(http.MethodDelete)
	api.HandleFunc("/filters/query", s.handleSetQuery).Methods(http.MethodPut)
	api.HandleFunc("/filters/categories", s.handleSetCategories).Methods(http.MethodPut)
	api.HandleFunc("/filters/categories/{name}/toggle", s.handleToggleCategory).Methods(http.MethodPost)
	api.HandleFunc("/filters/days/{name}/toggle", s.handleToggleDay).Methods(http.MethodPost)

	api.HandleFunc("/rewards", s.handleRewards).Methods(http.MethodGet)
	api.HandleFunc("/rewards/purchase", s.handlePurchase).Methods(http.MethodPost)

	api.HandleFunc("/session", s.handleClearSession).Methods(http.MethodDelete)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health and /metrics.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="UAO Agenda", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs an http.Server on cfg.Listen until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// maxBodyBytes bounds JSON and ICS request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
