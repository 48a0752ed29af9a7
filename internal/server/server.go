// Package server exposes the engine's operation surface over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/boundary"
	"github.com/sells-group/territory-engine/internal/coverage"
	"github.com/sells-group/territory-engine/internal/store"
)

// Server holds the wired engine components behind the HTTP handlers.
type Server struct {
	store      store.Store
	calculator *coverage.Calculator
	cache      *coverage.Cache
	boundaries *boundary.Store
	datasetDir string
	log        *zap.Logger
}

func New(s store.Store, calc *coverage.Calculator, cache *coverage.Cache, boundaries *boundary.Store, datasetDir string) *Server {
	return &Server{
		store:      s,
		calculator: calc,
		cache:      cache,
		boundaries: boundaries,
		datasetDir: datasetDir,
		log:        zap.L().With(zap.String("service", "server")),
	}
}

// Handler builds the chi router for the full operation surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/coverage", s.handleCoverage)

		r.Route("/territories", func(r chi.Router) {
			r.Get("/", s.handleListTerritories)
			r.Post("/", s.handleCreateTerritory)
			r.Put("/", s.handleReplaceTerritories)
			r.Patch("/{id}", s.handleUpdateTerritory)
			r.Delete("/{id}", s.handleDeleteTerritory)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", s.handleGetAssignments)
			r.Put("/", s.handleReplaceAssignments)
			r.Put("/{zoneID}", s.handleSetAssignment)
			r.Get("/export", s.handleExportAssignments)
			r.Post("/prune", s.handlePruneAssignments)
		})

		r.Get("/metrics/{metric}", s.handleMetricSeries)
		r.Post("/cache/clear", s.handleCacheClear)
	})

	return r
}

// requestLogger logs each request with its status and elapsed time.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
