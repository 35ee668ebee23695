// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// The proxy logs full error detail here while callers only ever see the
// generic response text.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.WithContext(ctx).Error("vendor call failed", zap.Error(err))
package logging
