// Package middleware provides the gin middleware shared by the generation
// proxy and the relay.
//
// Middleware stack includes:
//   - ProxyCORS: the proxy's fixed CORS headers on every response
//   - CORS: configurable cross-origin policy for the relay (gin-contrib/cors)
//   - RateLimit: per-IP token bucket with idle client cleanup
//   - Recovery: panic recovery with a generic JSON 500
//
// Rejections use the proxy's response shape, {"success":false,"error":"..."},
// so callers parse a single body format.
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.ProxyCORS())
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
