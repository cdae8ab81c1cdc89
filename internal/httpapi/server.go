// Package httpapi exposes the engine's read-only HTTP surface: health,
// Prometheus metrics, recent decisions, and performance reports.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/alphagate/alphagate/internal/engine"
	"github.com/alphagate/alphagate/internal/metrics"
	"github.com/alphagate/alphagate/internal/perf"
	"github.com/alphagate/alphagate/internal/persistence"
)

// Config tunes the HTTP server.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the engine's HTTP API.
type Server struct {
	config    Config
	engine    *engine.Engine
	decisions persistence.DecisionRepo
	httpSrv   *http.Server
}

// NewServer builds the server and its routes.
func NewServer(config Config, eng *engine.Engine, decisions persistence.DecisionRepo, m *metrics.Metrics) *Server {
	s := &Server{config: config, engine: eng, decisions: decisions}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/decisions", s.handleRecentDecisions).Methods(http.MethodGet)
	api.HandleFunc("/decisions/{id}", s.handleDecision).Methods(http.MethodGet)
	api.HandleFunc("/performance", s.handlePerformance).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.ListenAddr).Msg("http server listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return
		}
		limit = n
	}

	ds, err := s.decisions.ListRecent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list recent decisions failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := s.decisions.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		writeError(w, http.StatusNotFound, "decision not found")
	case err != nil:
		log.Error().Err(err).Str("id", id).Msg("get decision failed")
		writeError(w, http.StatusInternalServerError, "query failed")
	default:
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := perf.Filter{
		Instrument: q.Get("instrument"),
		Sector:     q.Get("sector"),
	}

	windowDays := 90
	if raw := q.Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window_days must be a positive integer")
			return
		}
		windowDays = n
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	rep, err := s.engine.BuildReport(r.Context(), f, since)
	if err != nil {
		log.Error().Err(err).Msg("build performance report failed")
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
