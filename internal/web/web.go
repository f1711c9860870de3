package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dircal/internal/cal"
	"dircal/internal/config"
	applog "dircal/internal/log"
)

// daysCacheTTL bounds how long a computed /api/days response is reused.
// The view is cheap but not free, and dashboards tend to poll.
const daysCacheTTL = 30 * time.Second

// daysCacheKey identifies one cached /api/days response by its window
// parameters.
type daysCacheKey struct {
	days     int
	backfill int
}

// daysCacheEntry holds a cached /api/days response and its timestamp.
type daysCacheEntry struct {
	resp      daysResponse
	updatedAt time.Time
}

// Server exposes the day view over HTTP. It keeps an in-memory snapshot of
// the loaded calendars; Refresh reloads the snapshot and is driven by the
// cron schedule in cmd/dircal.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	mu        sync.RWMutex
	calendars []cal.Calendar
	loadedAt  time.Time

	// In-memory cache for /api/days responses to avoid rebuilding the
	// day view on every HTTP request. Cleared by Refresh.
	cacheMu   sync.RWMutex
	daysCache map[daysCacheKey]daysCacheEntry
}

// NewServer constructs a Server and performs the initial calendar load.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		daysCache: make(map[daysCacheKey]daysCacheEntry),
	}
	s.registerRoutes()
	s.Refresh()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/days", s.handleDays)
}

// Handler returns the http.Handler for this server, wrapped with basic
// auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		applog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh reloads every configured calendar directory into the snapshot.
func (s *Server) Refresh() {
	sources := make([]cal.SourceDir, 0, len(s.cfg.Calendars))
	for _, cc := range s.cfg.Calendars {
		if cc.Path == "" {
			continue
		}
		sources = append(sources, cal.SourceDir{Dir: cc.Path, Name: cc.Name})
	}

	calendars := cal.LoadCalendars(sources)

	s.mu.Lock()
	s.calendars = calendars
	s.loadedAt = time.Now()
	s.mu.Unlock()

	// Cached responses were built from the previous snapshot.
	s.cacheMu.Lock()
	s.daysCache = make(map[daysCacheKey]daysCacheEntry)
	s.cacheMu.Unlock()

	applog.Info("calendar snapshot refreshed", "calendar_count", len(calendars))
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dircal", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// daysResponse is the JSON response shape for /api/days.
type daysResponse struct {
	Days        []dayDTO  `json:"days"`
	TodayIndex  int       `json:"today_index"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	LoadedAt    time.Time `json:"loaded_at"`
}

type dayDTO struct {
	Date  time.Time      `json:"date"`
	Items []placementDTO `json:"items"`
}

// placementDTO is a JSON-friendly view of one day placement.
type placementDTO struct {
	Summary  string    `json:"summary"`
	Calendar string    `json:"calendar"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitzero"`
	Span     string    `json:"span,omitempty"`
}

// handleDays returns the day-bucketed view for a query window around now.
//
// GET /api/days?days=7&backfill=1
//   - days:     future days to cover (default from config)
//   - backfill: past days to include (default from config)
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := parseIntParam(q.Get("days"), s.cfg.HorizonDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill, err := parseIntParam(q.Get("backfill"), s.cfg.BackfillDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid backfill parameter")
		return
	}
	if backfill < 0 {
		backfill = 0
	}

	// Fast path: reuse a recent response for the same window parameters.
	key := daysCacheKey{days: days, backfill: backfill}
	cacheNow := time.Now()
	s.cacheMu.RLock()
	cached, ok := s.daysCache[key]
	s.cacheMu.RUnlock()
	if ok && cacheNow.Sub(cached.updatedAt) < daysCacheTTL {
		writeJSON(w, http.StatusOK, cached.resp)
		return
	}

	now := time.Now()
	windowStart := cal.StartOfDay(now.AddDate(0, 0, -backfill))
	windowEnd := cal.StartOfDay(now.AddDate(0, 0, days)).Add(24*time.Hour - time.Second)

	s.mu.RLock()
	calendars := s.calendars
	loadedAt := s.loadedAt
	s.mu.RUnlock()

	dayView, todayIndex := cal.BuildDayView(cal.AllEntries(calendars), windowStart, windowEnd, now)

	resp := daysResponse{
		Days:        make([]dayDTO, 0, len(dayView)),
		TodayIndex:  todayIndex,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		LoadedAt:    loadedAt,
	}
	for _, d := range dayView {
		dto := dayDTO{Date: d.Date, Items: make([]placementDTO, 0, len(d.Items))}
		for _, item := range d.Items {
			p := placementDTO{
				Summary:  item.Occurrence.Summary,
				Calendar: item.Occurrence.Calendar,
				AllDay:   item.Occurrence.AllDay,
				Start:    item.Occurrence.Start,
				Span:     item.Span.String(),
			}
			if item.Occurrence.HasEnd {
				p.End = item.Occurrence.End
			}
			dto.Items = append(dto.Items, p)
		}
		resp.Days = append(resp.Days, dto)
	}

	s.cacheMu.Lock()
	s.daysCache[key] = daysCacheEntry{resp: resp, updatedAt: time.Now()}
	s.cacheMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// StartServer runs the HTTP server bound to cfg.Listen until ctx is
// canceled, then shuts down gracefully.
func StartServer(ctx context.Context, srv *Server) error {
	httpServer := &http.Server{
		Addr:    srv.cfg.Listen,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info("starting HTTP server", "listen", "http://"+srv.cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// parseIntParam returns def for an absent parameter and an error for a
// present but non-integer one.
func parseIntParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
