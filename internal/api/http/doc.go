// Package http exposes the generation proxy over HTTP.
//
// Endpoints:
//   - Generate: / and /functions/v1/llm-proxy (POST; OPTIONS answers preflights)
//   - Health: /health
//
// Every generation response is JSON of the form
// {"success":true,"generatedText":"..."} or {"success":false,"error":"..."}.
// Status codes and messages come from the generation service; this package
// only adapts the transport.
package http
