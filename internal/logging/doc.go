// Package logging builds the slog loggers used across subflow.
//
// It provides a compact console handler for interactive use, a JSON handler
// for machine-readable logs, typed attribute aliases so call sites do not
// import log/slog directly, and a no-op logger for tests.
package logging
