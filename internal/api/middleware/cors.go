package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Headers the generation proxy sends on every response.
const (
	ProxyAllowOrigin  = "*"
	ProxyAllowHeaders = "authorization, x-client-info, apikey, content-type"
	ProxyAllowMethods = "POST, OPTIONS"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the relay's CORS configuration. Pages on any
// origin may post triggers to the loopback relay.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Accept",
			"Origin",
			"X-Requested-With",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

// ProxyCORS sets the proxy's fixed CORS headers on every response, whatever
// the request origin. It does not answer preflights itself; the proxy
// handler replies to OPTIONS with an empty 200.
func ProxyCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", ProxyAllowOrigin)
		h.Set("Access-Control-Allow-Headers", ProxyAllowHeaders)
		h.Set("Access-Control-Allow-Methods", ProxyAllowMethods)
		c.Next()
	}
}

// IsPreflight reports whether the request is a CORS preflight.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}
