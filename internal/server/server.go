// Package server exposes health, metrics and analysis results over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/store"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

const defaultListLimit = 100

// Results reads recorded analysis results
type Results interface {
	List(ctx context.Context, limit int) ([]types.AnalysisResult, error)
	Get(ctx context.Context, ts time.Time) (types.AnalysisResult, error)
}

// Analyzer runs an unrecorded analysis for a timestamp
type Analyzer interface {
	Analyze(ctx context.Context, ts time.Time) (types.AnalysisResult, error)
}

// Config holds HTTP settings
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the HTTP API
type Server struct {
	httpServer *http.Server
	results    Results
	analyzer   Analyzer
	ready      func() bool
	logger     *zap.Logger
}

// New creates a server. ready may be nil, in which case /readyz always succeeds.
func New(config Config, results Results, analyzer Analyzer, ready func() bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ready == nil {
		ready = func() bool { return true }
	}

	s := &Server{
		results:  results,
		analyzer: analyzer,
		ready:    ready,
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/results", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/results/{timestamp}", s.handleGet).Methods(http.MethodGet)
	if s.analyzer != nil {
		api.HandleFunc("/debug/analyze/{timestamp}", s.handleAnalyze).Methods(http.MethodPost)
	}
	return router
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := s.results.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ts, err := ParseTimestamp(mux.Vars(r)["timestamp"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.results.Get(r.Context(), ts)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no result for timestamp")
		return
	}
	if err != nil {
		s.logger.Error("failed to get result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ts, err := ParseTimestamp(mux.Vars(r)["timestamp"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), ts)
	if err != nil {
		s.logger.Warn("debug analysis failed", zap.Error(err), zap.Time("timestamp", ts))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ParseTimestamp accepts unix seconds or RFC 3339
func ParseTimestamp(v string) (time.Time, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("timestamp must be unix seconds or RFC 3339")
	}
	return ts.UTC(), nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
