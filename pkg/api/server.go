// Package api exposes the sync, balances and progress operations over
// HTTP, plus health, status and metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	gosync "sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ledgersync/pkg/catalog"
	"ledgersync/pkg/ledger"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/progress"
	"ledgersync/pkg/sync"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Address to listen on (e.g. ":8080").
	Address string

	// ReadTimeout for HTTP requests.
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. Sync runs are bounded by this, so
	// it must accommodate a full run's retries.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
}

// Server wires the synchronizer and reader into HTTP handlers.
type Server struct {
	syncer *sync.Synchronizer
	reader *progress.Reader
	cat    catalog.Catalog
	logger *logging.Logger
	server *http.Server
	config ServerConfig

	// metricsHandler serves /metrics when the collector exports one
	// (the Prometheus collector does).
	metricsHandler http.Handler

	// snapshot serves /metrics/json when the collector supports
	// snapshots (the in-memory collector does).
	snapshot func() any

	// runMu serializes sync runs triggered over HTTP.
	runMu gosync.Mutex

	startTime time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithMetricsHandler serves the given handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithSnapshot serves JSON snapshots of the collector at /metrics/json.
func WithSnapshot(snapshot func() any) Option {
	return func(s *Server) { s.snapshot = snapshot }
}

// NewServer creates the HTTP server. logger may be nil.
func NewServer(syncer *sync.Synchronizer, reader *progress.Reader, cat catalog.Catalog, logger *logging.Logger, config ServerConfig, opts ...Option) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		syncer:    syncer,
		reader:    reader,
		cat:       cat,
		logger:    logger.Named("api"),
		config:    config,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	r.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/metrics/json", s.handleMetricsJSON).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "running",
		"uptime":   time.Since(s.startTime).String(),
		"accounts": len(s.cat),
	}
	if lastRun, ok := s.syncer.LastRun(); ok {
		response["last_run"] = lastRun
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSync runs a full synchronization. Runs are serialized: a request
// arriving while another run is in flight is rejected rather than queued.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.runMu.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "a sync run is already in progress",
		})
		return
	}
	defer s.runMu.Unlock()

	if err := s.syncer.SyncAccounts(r.Context(), s.cat); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ledger.ErrVerifyMismatch) {
			// Mismatch is a data-integrity condition on our side of the
			// fence, not a gateway fault.
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "synchronized",
		"accounts": len(s.cat),
	})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.reader.VerifiedBalances(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	debts, err := s.reader.DebtProgress(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metricsHandler == nil {
		http.Error(w, "metrics collector does not export prometheus format", http.StatusNotFound)
		return
	}
	s.metricsHandler.ServeHTTP(w, r)
}

func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		http.Error(w, "metrics collector does not support snapshots", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
