// Package logger provides structured logging for ptb-migrate.
//
// The package wraps log/slog:
//
//   - logger.go: Logger interface, handler and level selection
//   - context.go: logger and run ID propagation through context.Context
//   - redact.go: masking of bot tokens and sensitive attributes
//
// Log lines go to stderr so that stdout carries only progress output and
// reports. Every line written through L(ctx) carries the run_id of the
// conversion it belongs to.
package logger
