// Package httpapi exposes the session broker over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	SessionPath      = "/session"
	SessionAliasPath = "/api/chatkit/session"

	DefaultAddr            = "127.0.0.1:8787"
	defaultMaxBodyBytes    = 64 << 10
	defaultShutdownTimeout = 15 * time.Second
)

type Config struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For.
	TrustProxyHeaders bool
	MaxBodyBytes      int64
	ShutdownTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return c
}

type Server struct {
	cfg      Config
	broker   ports.SessionCreator
	limiter  *clientLimiter
	metrics  *Metrics
	registry *prometheus.Registry
	health   *health
	logger   zerolog.Logger
	httpSrv  *http.Server
}

// NewServer wires the session endpoint, health probes and metrics. A nil
// registry gets a fresh one.
func NewServer(broker ports.SessionCreator, cfg Config, registry *prometheus.Registry, logger zerolog.Logger) *Server {
	cfg = cfg.withDefaults()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:      cfg,
		broker:   broker,
		limiter:  newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		metrics:  NewMetrics(registry),
		registry: registry,
		health:   &health{},
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SessionPath, s.handleSession)
	mux.HandleFunc(SessionAliasPath, s.handleSession)
	mux.HandleFunc("GET /healthz", s.health.handleHealth)
	mux.HandleFunc("GET /readyz", s.health.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return otelhttp.NewHandler(withRequestLogging(s.logger, mux), "chatkit-broker")
}

func (s *Server) SetReady(ready bool) {
	s.health.ready.Store(ready)
}

func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("starting session broker")
		s.SetReady(true)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		s.SetReady(false)
		s.logger.Info().Msg("shutting down session broker")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
			return err
		}
		s.logger.Info().Msg("server shutdown complete")
		return nil
	})

	return eg.Wait()
}
