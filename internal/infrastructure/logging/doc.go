// Package logging provides structured logging for Latchwork Core.
//
// It wraps log/slog with level filtering, JSON or text output, and default
// service/version fields. Components derive sub-loggers via With().
package logging
