package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/formfill/internal/api/http"
	"github.com/GriffinCanCode/formfill/internal/api/middleware"
	"github.com/GriffinCanCode/formfill/internal/domain/generation"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/config"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/providers/identity"
	"github.com/GriffinCanCode/formfill/internal/providers/keystore"
	"github.com/GriffinCanCode/formfill/internal/providers/vendors/openai"
)

// identityTimeout bounds token validation and key lookups.
const identityTimeout = 10 * time.Second

// Dependencies are the upstreams of the generation proxy. A nil field means
// that part is not configured.
type Dependencies struct {
	Identity generation.Identity
	Keys     generation.KeyStore
	Vendor   generation.Completer
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	service *generation.Service
	tracer  *tracing.Tracer
	closers []io.Closer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates the proxy from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing generation proxy",
		zap.String("port", cfg.Server.Port),
		zap.String("keystore", cfg.KeyStore.Backend),
		zap.String("model", cfg.Vendor.Model),
	)

	deps, closers, err := Build(cfg, logger)
	if err != nil {
		return nil, err
	}

	srv := New(cfg, deps, logger)
	srv.closers = append(srv.closers, closers...)
	return srv, nil
}

// Build creates the upstream clients named by cfg. Missing settings leave the
// matching dependency nil so requests fail with a configuration error instead
// of the process refusing to start.
func Build(cfg *config.Config, logger *logging.Logger) (Dependencies, []io.Closer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var (
		deps    Dependencies
		closers []io.Closer
	)

	if cfg.Supabase.URL != "" && cfg.Supabase.AnonKey != "" {
		deps.Identity = identity.NewSupabase(cfg.Supabase.URL, cfg.Supabase.AnonKey, identityTimeout)
	} else {
		logger.Warn("identity provider not configured; requests will fail",
			zap.Bool("url_set", cfg.Supabase.URL != ""))
	}

	sealer := keystore.NewSealer(cfg.KeyStore.Secret)
	switch cfg.KeyStore.Backend {
	case config.KeyStoreSQLite:
		store, err := keystore.OpenSQLite(cfg.KeyStore.SQLitePath, sealer)
		if err != nil {
			return Dependencies{}, nil, fmt.Errorf("failed to open key store: %w", err)
		}
		deps.Keys = store
		closers = append(closers, store)
	default:
		if cfg.Supabase.URL != "" && cfg.Supabase.ServiceRoleKey != "" {
			deps.Keys = keystore.NewPostgREST(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, sealer, identityTimeout)
		} else {
			logger.Warn("service role key not configured; key lookups will fail")
		}
	}

	deps.Vendor = openai.NewClient(cfg.Vendor.URL, cfg.Vendor.Model, cfg.Vendor.Timeout.Std())

	return deps, closers, nil
}

// New assembles the proxy around deps.
func New(cfg *config.Config, deps Dependencies, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	metrics := monitoring.NewMetrics("llm_proxy")
	tracer := tracing.New("llm-proxy", logger.Logger)

	service := generation.NewService(deps.Identity, deps.Keys, deps.Vendor, logger).WithMetrics(metrics).WithTracer(tracer)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.ProxyCORS())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled && cfg.RateLimit.GlobalRequestsPerSecond > 0 {
		logger.Info("Global rate limit enabled", zap.Int("rps", cfg.RateLimit.GlobalRequestsPerSecond))
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.GlobalRequestsPerSecond,
			Burst:             cfg.RateLimit.GlobalRequestsPerSecond,
		}))
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(service, logger)
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		handler: gzhttp.GzipHandler(router),
		service: service,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Handler returns the root handler, with response compression.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Close releases the server's resources.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.tracer.Close()
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
