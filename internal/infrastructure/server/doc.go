// Package server assembles the generation proxy: upstream clients, the
// generation service, the gin middleware stack and the HTTP listener.
//
// Middleware order is recovery, CORS, tracing, metrics, rate limiting, so a
// panic or a rejection still carries the CORS headers. Responses are gzip
// compressed for clients that accept it.
package server
