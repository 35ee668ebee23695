package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/domain/generation"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// MaxBodySize bounds a generation request body.
const MaxBodySize = 1 << 20

// Handlers contains the proxy HTTP handlers
type Handlers struct {
	service *generation.Service
	logger  *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(service *generation.Service, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		service: service,
		logger:  logger.Named("http"),
	}
}

// Register mounts the proxy on the router. The generation endpoint answers
// every method so that non-POST requests get the JSON 405. Unknown paths are
// served by the generation endpoint too, and methods gin has no tree for
// (PROPFIND, ...) get the same JSON 405.
func (h *Handlers) Register(router *gin.Engine) {
	router.HandleMethodNotAllowed = true
	router.Any("/", h.Generate)
	router.Any("/functions/v1/llm-proxy", h.Generate)
	router.GET("/health", h.Health)
	router.NoRoute(h.Generate)
	router.NoMethod(h.MethodNotAllowed)
}

// MethodNotAllowed answers the JSON 405.
func (h *Handlers) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, types.Failed(generation.MsgMethodNotAllowed))
}

// Generate handles a generation request
func (h *Handlers) Generate(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodPost:
	default:
		h.MethodNotAllowed(c)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize))
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Warn("failed to read request body", zap.Error(err))
		body = nil
	}

	out := h.service.Handle(c.Request.Context(), c.GetHeader("Authorization"), body)
	c.JSON(out.Status, out.Body)
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "llm-proxy",
		"configured": h.service.Readiness(),
	})
}
