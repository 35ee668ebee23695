package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/api/middleware"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/config"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/shared/errs"
)

// TriggerRequest is the body of POST /trigger.
type TriggerRequest struct {
	TabID           int    `json:"tabId"`
	FrameID         int    `json:"frameId"`
	TargetElementID string `json:"targetElementId" binding:"required"`
}

// Server is the relay daemon: trigger endpoint, page websockets and the
// coordinator between them.
type Server struct {
	router      *gin.Engine
	http        *http.Server
	coordinator *Coordinator
	hub         *Hub
	proxy       GenerationClient
	tracer      *tracing.Tracer
	metrics     *monitoring.Metrics
	logger      *logging.Logger
	config      *config.Config
}

// NewServer assembles a relay around sessions and proxy.
func NewServer(cfg *config.Config, sessions SessionSource, proxy GenerationClient, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	metrics := monitoring.NewMetrics("relay")
	tracer := tracing.New("relay", logger.Logger)

	hub := NewHub(nil, logger).WithMetrics(metrics)
	coordinator := NewCoordinator(hub, sessions, proxy, logger).WithMetrics(metrics).WithTracer(tracer)
	hub.SetHandler(coordinator.HandlePageMessage)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		router:      router,
		coordinator: coordinator,
		hub:         hub,
		proxy:       proxy,
		tracer:      tracer,
		metrics:     metrics,
		logger:      logger.Named("relay"),
		config:      cfg,
	}

	router.POST("/trigger", s.Trigger)
	router.GET("/pages", s.ListPages)
	router.GET("/pages/ws", hub.HandleConnection)
	router.GET("/health", s.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Coordinator returns the server's coordinator.
func (s *Server) Coordinator() *Coordinator {
	return s.coordinator
}

// Hub returns the page connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Trigger starts a fill for the named field.
func (s *Server) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	target := Target{
		Origin:    Origin{TabID: req.TabID, FrameID: req.FrameID},
		ElementID: req.TargetElementID,
	}
	if err := s.coordinator.OnTrigger(c.Request.Context(), target); err != nil {
		status := http.StatusBadGateway
		switch {
		case errs.Is(err, errs.KindValidation):
			status = http.StatusBadRequest
		case errors.Is(err, ErrNoPage):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "target": target})
}

// ListPages lists connected pages.
func (s *Server) ListPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": s.hub.Pages()})
}

type breakerReporter interface {
	BreakerState() resilience.State
}

// Health handles health check. When the proxy client reports a circuit
// breaker, its state is included as "proxy".
func (s *Server) Health(c *gin.Context) {
	pending, ok := s.coordinator.Pending()
	body := gin.H{
		"status": "healthy",
		"pages":  len(s.hub.Pages()),
	}
	if ok {
		body["pending"] = pending
	}
	if b, ok := s.proxy.(breakerReporter); ok {
		body["proxy"] = b.BreakerState().String()
	}
	c.JSON(http.StatusOK, body)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Relay.Host, s.config.Relay.Port)
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting relay", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and disconnects pages.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.hub.Close()
	return err
}

// Close releases the server's resources.
func (s *Server) Close() error {
	s.hub.Close()
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
