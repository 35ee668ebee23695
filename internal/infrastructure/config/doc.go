// Package config provides 12-factor configuration for the generation proxy
// and the relay.
//
// Configuration is loaded from environment variables with defaults. The CLI
// may layer a TOML file on top; values present in the file win.
//
// Configuration Sections:
//   - Server: proxy HTTP listener
//   - Supabase: identity provider and hosted key store
//   - Vendor: completion API endpoint, model and timeout
//   - KeyStore: key store backend selection and sealing secret
//   - Relay: relay listener, proxy endpoint and session file
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting on the proxy
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	if path != "" {
//		if err := cfg.Overlay(path); err != nil { ... }
//	}
//
// Environment Variables:
//   - PORT, HOST
//   - SUPABASE_URL, SUPABASE_ANON_KEY, SUPABASE_SERVICE_ROLE_KEY
//   - OPENAI_URL, OPENAI_MODEL, OPENAI_TIMEOUT
//   - KEYSTORE_BACKEND, KEYSTORE_SQLITE_PATH, KEYSTORE_SECRET
//   - RELAY_HOST, RELAY_PORT, PROXY_URL, PROXY_TIMEOUT, SESSION_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL_RPS
package config
