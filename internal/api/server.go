// Package api serves the prediction API over the local record store. It is
// the development counterpart of the remote backend the controllers talk to.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rcourtman/energy-reports/internal/backend"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/rcourtman/energy-reports/internal/store"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Config holds server configuration.
type Config struct {
	Addr     string
	Store    *store.Store
	Registry *resources.Registry
}

// Server is the development prediction API.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	store     *store.Store
	endpoints map[string]string // last endpoint segment -> resource key
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	registry := cfg.Registry
	if registry == nil {
		registry = resources.Default()
	}

	s := &Server{
		router:    chi.NewRouter(),
		store:     cfg.Store,
		endpoints: make(map[string]string),
	}
	for _, key := range registry.Keys() {
		rc, err := registry.Get(key)
		if err != nil {
			continue
		}
		segment := rc.Endpoint[strings.LastIndex(rc.Endpoint, "/")+1:]
		s.endpoints[segment] = rc.Key
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, backend.StatusResponse{Status: backend.StatusSuccess})
	})

	s.router.Get("/api/{type}", s.handleList)
	s.router.Post("/api/{type}", s.handleCreate)
	s.router.Put("/api/{type}/{year}", s.handleUpdate)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting development API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down development API")
	return s.server.Shutdown(ctx)
}

func (s *Server) resource(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, ok := s.endpoints[chi.URLParam(r, "type")]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown resource type %q", chi.URLParam(r, "type")))
	}
	return key, ok
}

// handleList returns the records of a type, soft-deleted ones included.
// GET /api/{type}?start_year=N&end_year=M
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key, ok := s.resource(w, r)
	if !ok {
		return
	}

	yr := models.NewYearRange(models.MinYear, models.MaxYear)
	for param, dst := range map[string]*int{"start_year": &yr.Start, "end_year": &yr.End} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", param, raw))
			return
		}
		*dst = v
	}
	if problems := yr.Validate(); len(problems) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	records, err := s.store.List(r.Context(), key, yr, true)
	if err != nil {
		log.Error().Err(err).Str("resource", key).Msg("Failed to list records")
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	resp := backend.ListResponse{Status: backend.StatusSuccess, Predictions: make([]backend.Prediction, 0, len(records))}
	for _, rec := range records {
		resp.Predictions = append(resp.Predictions, backend.PredictionFromRecord(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreate upserts the record for the body's year.
// POST /api/{type}
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	key, ok := s.resource(w, r)
	if !ok {
		return
	}

	req, ok := decodeWrite(w, r)
	if !ok {
		return
	}
	if req.Year == nil || req.PredictedProduction == nil {
		writeError(w, http.StatusBadRequest, "Year and Predicted Production are required")
		return
	}
	d := draftOf(*req.Year, req)
	if msg := validateDraft(d); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rec := models.GenerationRecord{
		ResourceType:    key,
		Year:            d.Year,
		GenerationValue: d.GenerationValue,
		IsPredicted:     true,
		NonRenewable:    d.NonRenewable,
		Population:      d.Population,
		GDP:             d.GDP,
	}
	if _, err := s.store.Upsert(r.Context(), rec); err != nil {
		log.Error().Err(err).Str("resource", key).Int("year", d.Year).Msg("Failed to create record")
		writeError(w, http.StatusInternalServerError, "failed to create record")
		return
	}
	writeJSON(w, http.StatusOK, backend.StatusResponse{Status: backend.StatusSuccess})
}

// handleUpdate rewrites a record, or flips its delete flag when the body
// carries only isDeleted.
// PUT /api/{type}/{year}
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	key, ok := s.resource(w, r)
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	req, ok := decodeWrite(w, r)
	if !ok {
		return
	}

	if req.IsDeleted != nil && req.PredictedProduction == nil {
		err = s.store.SetDeleted(r.Context(), key, year, *req.IsDeleted)
	} else {
		if req.PredictedProduction == nil {
			writeError(w, http.StatusBadRequest, "Predicted Production is required")
			return
		}
		target := year
		if req.Year != nil {
			target = *req.Year
		}
		d := draftOf(target, req)
		if msg := validateDraft(d); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		err = s.store.Update(r.Context(), key, year, d)
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s record for %d", key, year))
	case err != nil:
		log.Error().Err(err).Str("resource", key).Int("year", year).Msg("Failed to update record")
		writeError(w, http.StatusInternalServerError, "failed to update record")
	default:
		writeJSON(w, http.StatusOK, backend.StatusResponse{Status: backend.StatusSuccess})
	}
}

func decodeWrite(w http.ResponseWriter, r *http.Request) (backend.WriteRequest, bool) {
	var req backend.WriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func draftOf(year int, req backend.WriteRequest) models.Draft {
	return models.Draft{
		Year:            year,
		GenerationValue: *req.PredictedProduction,
		NonRenewable:    req.NonRenewable,
		Population:      req.Population,
		GDP:             req.GDP,
	}
}

func validateDraft(d models.Draft) string {
	if d.Year < models.MinYear || d.Year > models.MaxYear {
		return fmt.Sprintf("Year must be between %d and %d", models.MinYear, models.MaxYear)
	}
	if d.GenerationValue < 0 || math.IsNaN(d.GenerationValue) || math.IsInf(d.GenerationValue, 0) {
		return "Predicted Production must be a non-negative number"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, backend.StatusResponse{Status: "error", Message: message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
