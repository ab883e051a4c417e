// Package api exposes the HTTP interface for the release cache service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solewatch/solewatch/internal/metrics"
	"github.com/solewatch/solewatch/internal/release"
)

// ReleaseCache is the read surface the handlers consume; there is no write
// path into the cache from the API.
type ReleaseCache interface {
	Get(ctx context.Context, forceRefresh bool) release.Snapshot
	Upcoming(ctx context.Context, days int, forceRefresh bool) []release.Item
}

// Config controls API behavior.
type Config struct {
	// DefaultUpcomingDays is the window used when ?days= is absent.
	DefaultUpcomingDays int
}

// Server wires HTTP handlers to the release cache.
type Server struct {
	router chi.Router
	cache  ReleaseCache
	cfg    Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cache ReleaseCache, cfg Config, logger *zap.Logger) *Server {
	if cfg.DefaultUpcomingDays <= 0 {
		cfg.DefaultUpcomingDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/releases", func(r chi.Router) {
			r.Get("/", s.getReleases)
			r.Get("/upcoming", s.getUpcoming)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getReleases serves the full held snapshot. Responses are immediate even
// when a refresh gets scheduled: staleness is traded for latency by design.
func (s *Server) getReleases(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Get(r.Context(), boolParam(r, "refresh"))
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getUpcoming(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.DefaultUpcomingDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	items := s.cache.Upcoming(r.Context(), days, boolParam(r, "refresh"))
	if items == nil {
		items = []release.Item{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"days":     days,
		"count":    len(items),
		"releases": items,
	})
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
