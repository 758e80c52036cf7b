// internal/server/server.go

// Package server exposes the session controller over a small HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/ActivityScrapexter/internal/config"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
	"github.com/valpere/ActivityScrapexter/internal/session"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Sessions is the part of session.Controller the API drives.
type Sessions interface {
	Start(ctx context.Context, rng record.DateRange) (<-chan *session.Result, bool)
	Stop()
	State() scroll.State
	Clear()
	PoolSize() int
	LastResult() *session.Result
}

// Options configures a Server.
type Options struct {
	Config   config.ServerConfig
	Range    record.DateRange
	Location *time.Location
	Metrics  *monitoring.MetricsManager
	Health   *monitoring.HealthManager
	Logger   utils.Logger
	Version  string
	// Context bounds sessions started over HTTP. Request contexts end with
	// the response, so sessions never use them.
	Context context.Context
}

// Server is the control API.
type Server struct {
	sessions Sessions
	cfg      config.ServerConfig
	loc      *time.Location
	metrics  *monitoring.MetricsManager
	health   *monitoring.HealthManager
	logger   utils.Logger
	baseCtx  context.Context
	router   *mux.Router

	mu  sync.RWMutex
	rng record.DateRange
}

// New builds the server and its routes.
func New(sessions Sessions, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthManager(opts.Version)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	s := &Server{
		sessions: sessions,
		cfg:      opts.Config,
		loc:      opts.Location,
		metrics:  opts.Metrics,
		health:   opts.Health,
		logger:   opts.Logger.WithField("component", "server"),
		baseCtx:  opts.Context,
		rng:      opts.Range,
	}

	s.health.RegisterCheck(monitoring.HealthCheck{
		Name: "session",
		Check: func(context.Context) monitoring.HealthCheckResult {
			return monitoring.HealthCheckResult{
				Status: monitoring.HealthStatusHealthy,
				Metadata: map[string]interface{}{
					"state":     sessions.State().String(),
					"pool_size": sessions.PoolSize(),
				},
			}
		},
	})

	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverMiddleware(s.logger), loggingMiddleware(s.logger))
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)))
	}

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.startSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/current", s.stopSession).Methods(http.MethodDelete)
	api.HandleFunc("/status", s.status).Methods(http.MethodGet)
	api.HandleFunc("/records", s.records).Methods(http.MethodGet)
	api.HandleFunc("/records", s.clearRecords).Methods(http.MethodDelete)
	api.HandleFunc("/report", s.report).Methods(http.MethodGet)
	api.HandleFunc("/export", s.export).Methods(http.MethodGet)

	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetRange changes the default range used when a start request names none.
func (s *Server) SetRange(rng record.DateRange) {
	s.mu.Lock()
	s.rng = rng
	s.mu.Unlock()
}

func (s *Server) defaultRange() record.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rng
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("listen", s.cfg.Listen).Info("control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("control API stopped")
	return nil
}
