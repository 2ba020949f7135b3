// Package server provides the HTTP server that wires the search engine,
// its backends and the HTTP middleware together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/equipfind/equipfind/internal/analyzer"
	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/metrics"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/pkg/middleware"
	"github.com/equipfind/equipfind/internal/search"
)

// Server is the HTTP server.
type Server struct {
	cfg        Config
	appCfg     *config.Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	bus     bus.Bus
	engine  *search.Engine
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter

	// Handlers
	searchHandler *search.Handler
	healthHandler *search.HealthHandler

	inFlight atomic.Int64

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown, in-flight draining included.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates the server and its search engine over b. The backends stay
// owned by the caller.
func New(cfg Config, appCfg *config.Config, b *Backends, log *logger.Logger) (*Server, error) {
	def := DefaultConfig()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
		bus:    b.Bus,
	}

	a, err := analyzer.New(appCfg.Search.Analyzer, appCfg.Search.Language)
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	opts := []search.Option{search.WithAnalyzer(a)}
	if appCfg.Metrics.Enabled {
		s.metrics = metrics.New()
		opts = append(opts, search.WithMetrics(s.metrics))
		if s.bus != nil {
			s.bus = bus.NewInstrumentedBus(s.bus, s.metrics)
		}
	}
	if s.bus != nil {
		opts = append(opts, search.WithPublisher(s.bus))
	}

	s.engine = search.NewEngine(b.Catalog, b.Stats, log, search.Config{
		CandidateLimit: appCfg.Search.CandidateLimit,
		FallbackLimit:  appCfg.Search.FallbackLimit,
		VocabularyTTL:  appCfg.Search.VocabularyTTL,
		SuggestLimit:   appCfg.Search.SuggestLimit,
	}, opts...)

	if appCfg.Security.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: appCfg.Security.RateLimit,
			Burst:             appCfg.Security.RateBurst,
			CleanupInterval:   time.Minute,
		})
		log.Info("Rate limiting enabled",
			"requests_per_second", appCfg.Security.RateLimit,
			"burst", appCfg.Security.RateBurst,
		)
	}

	s.searchHandler = search.NewHandler(s.engine)
	s.healthHandler = search.NewHealthHandler(search.NewHealthChecker(b.Checks...), cfg.Version)

	return s, nil
}

// Engine returns the search engine, for the gRPC server to share.
func (s *Server) Engine() *search.Engine {
	return s.engine
}

// Subscribe wires the engine and the metrics to bus events. It must run
// before Start so no catalog change is missed.
func (s *Server) Subscribe(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	if err := s.engine.WatchCatalog(ctx, s.bus); err != nil {
		return fmt.Errorf("watching catalog changes: %w", err)
	}
	if s.metrics != nil {
		if err := metrics.NewEventSubscriber(s.metrics, s.bus).SubscribeToEvents(ctx); err != nil {
			return fmt.Errorf("subscribing metrics: %w", err)
		}
	}
	return nil
}

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.healthHandler.RegisterRoutes(mux)
	s.searchHandler.Register(mux)
	if s.metrics != nil {
		mux.Handle("GET "+s.appCfg.Metrics.Path, s.metrics.Handler())
	}

	var observe middleware.ObserveFunc
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}

	mws := []func(http.Handler) http.Handler{
		middleware.Recover(s.log),
		middleware.RequestID,
		middleware.Logging(s.log, observe),
		middleware.CORSWithOrigins(splitOrigins(s.appCfg.Security.CORSOrigins)),
	}
	if s.limiter != nil {
		mws = append(mws, s.limiter.Middleware)
	}
	mws = append(mws, s.trackInFlight)

	return middleware.Chain(mux, mws...)
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true

	addr := s.appCfg.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Starting HTTP server", "addr", addr, "version", s.cfg.Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server and waits for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP shutdown error", "error", err)
	}
	if !s.drainInFlight(shutdownCtx) {
		s.log.Warn("Shutdown timeout reached with pending requests", "remaining", s.inFlight.Load())
	}

	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.started = false
	s.log.Info("HTTP server stopped")
	return nil
}

// Health reports whether the server is running.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Server) trackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// drainInFlight waits until no request is running or ctx is done.
func (s *Server) drainInFlight(ctx context.Context) bool {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for s.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return true
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
