// Package server exposes an analysis session over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/internal/logger"
	"github.com/geochange/landchange/internal/metrics"
	"github.com/geochange/landchange/schema"
)

// Session is the subset of core.Session served over HTTP.
type Session interface {
	Initialize(ctx context.Context) (schema.InitSummary, error)
	Initialized() bool
	Summary() (schema.InitSummary, error)
	CacheStats() (core.CacheStats, error)
	Areas(year schema.AnalysisYear) (schema.AreaSummary, error)
	ChangeMatrix(ctx context.Context, from, to schema.AnalysisYear) (schema.ChangeMatrix, error)
	Indices(year schema.AnalysisYear) (schema.IndexResult, error)
	Climate(year schema.AnalysisYear) (schema.ClimateSummary, error)
	Layers(year schema.AnalysisYear) ([]schema.MapLayer, error)
	Report(ctx context.Context) (schema.Report, error)
}

var _ Session = (*core.Session)(nil) // Compile-time check

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server routes API requests to a session.
type Server struct {
	session Session
	log     *slog.Logger
	router  chi.Router
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Initialized bool                `json:"initialized"`
	Summary     *schema.InitSummary `json:"summary,omitempty"`
	Cache       *core.CacheStats    `json:"cache,omitempty"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// New builds the router for session.
func New(session Session, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{session: session, log: log}

	r := chi.NewRouter()
	r.Use(logger.AccessMiddleware(log))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/initialize", s.handleInitialize)
		r.Get("/areas/{year}", s.handleAreas)
		r.Get("/change/{from}/{to}", s.handleChange)
		r.Get("/indices/{year}", s.handleIndices)
		r.Get("/climate/{year}", s.handleClimate)
		r.Get("/layers/{year}", s.handleLayers)
		r.Get("/report", s.handleReport)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Initialized: s.session.Initialized()}
	if resp.Initialized {
		if summary, err := s.session.Summary(); err == nil {
			resp.Summary = &summary
		}
		if stats, err := s.session.CacheStats(); err == nil {
			resp.Cache = &stats
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	summary, err := s.session.Initialize(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	areas, err := s.session.Areas(year)
	s.respond(w, areas, err)
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	from, ok := s.yearParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := s.yearParam(w, r, "to")
	if !ok {
		return
	}
	m, err := s.session.ChangeMatrix(r.Context(), from, to)
	s.respond(w, m, err)
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	indices, err := s.session.Indices(year)
	s.respond(w, indices, err)
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	climate, err := s.session.Climate(year)
	s.respond(w, climate, err)
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r, "year")
	if !ok {
		return
	}
	layers, err := s.session.Layers(year)
	s.respond(w, layers, err)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.session.Report(r.Context())
	s.respond(w, report, err)
}

// yearParam parses a path parameter, answering 400 when it is not an analysis year.
func (s *Server) yearParam(w http.ResponseWriter, r *http.Request, name string) (schema.AnalysisYear, bool) {
	year, err := schema.ParseAnalysisYear(chi.URLParam(r, name))
	if err != nil {
		s.writeError(w, err)
		return 0, false
	}
	return year, true
}

func (s *Server) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		invalidYear  *schema.InvalidYearError
		invalidPair  *schema.InvalidYearPairError
		notReady     *schema.YearNotReadyError
		incomplete   *schema.IncompleteClassificationError
		remote       *schema.RemoteComputeError
		gridMismatch *schema.GridMismatchError
	)
	switch {
	case errors.As(err, &invalidYear), errors.As(err, &invalidPair):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrNotInitialized):
		return http.StatusConflict
	case errors.As(err, &notReady), errors.As(err, &incomplete), errors.As(err, &gridMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, schema.ErrNoYearSucceeded), errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
