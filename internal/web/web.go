// Package web is the HTTP glue over the availability engine. It owns no
// state of its own beyond the compiled room filter; every request reads the
// current catalog snapshot.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JLsquare/free-room-api/internal/config"
	"github.com/JLsquare/free-room-api/internal/feed"
	applog "github.com/JLsquare/free-room-api/internal/log"
	"github.com/JLsquare/free-room-api/internal/rooms"
)

// Server serves the read API: /health, /api/all and /api/lite/{offset}.
type Server struct {
	cfg     *config.Config
	catalog *rooms.Catalog
	filter  *regexp.Regexp
	loc     *time.Location
	mux     *http.ServeMux
}

// NewServer constructs a Server. The room filter pattern and timezone come
// from config; either being invalid is a construction error since every
// query depends on them.
func NewServer(cfg *config.Config, catalog *rooms.Catalog) (*Server, error) {
	filter, err := regexp.Compile(cfg.RoomPattern)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		catalog: catalog,
		filter:  filter,
		loc:     loc,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/all", s.handleAll)
	s.mux.HandleFunc("/api/lite/", s.handleLite)
	return s, nil
}

// Handler returns the routed handler wrapped with permissive CORS.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info("http server listening", "listen", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAll returns, for every matching room with observed data, its free
// intervals from now to the end of the ingest window.
func (s *Server) handleAll(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	window := feed.WindowAround(now, s.cfg.PastWeeks, s.cfg.FutureWeeks)

	free := s.catalog.ListFree(s.filter, now.Unix(), window.Horizon())
	writeJSON(w, http.StatusOK, free)
}

// handleLite returns the per-room status rows for a reference time shifted
// by a whole number of hours from now.
//
// GET /api/lite/{offset}
func (s *Server) handleLite(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/lite/")
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hour offset")
		return
	}

	now := time.Now().In(s.loc)
	ref := now.Unix() + offset*3600

	statuses := s.catalog.StatusAt(s.filter, ref, now)
	writeJSON(w, http.StatusOK, statuses)
}

// corsMiddleware mirrors the permissive CORS policy of the public API:
// the data is read-only and anonymous.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
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
