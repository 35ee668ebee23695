// Package main runs the generation proxy.
//
// The proxy validates a caller's bearer token with the identity provider,
// looks up the caller's own completion API key, asks the vendor for a field
// suggestion and answers {success, generatedText} or {success:false, error}.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - An optional TOML file given with -config
//   - CLI flags (override both)
//
// Usage:
//
//	# Hosted key store
//	SUPABASE_URL=https://xyz.supabase.co SUPABASE_ANON_KEY=... \
//	SUPABASE_SERVICE_ROLE_KEY=... ./server -port 8000
//
//	# Self-hosted key store, colored logs
//	KEYSTORE_BACKEND=sqlite KEYSTORE_SECRET=... ./server -dev
//
// Endpoints:
//   - POST /functions/v1/llm-proxy (also /)
//   - GET /health
//   - GET /metrics
package main
