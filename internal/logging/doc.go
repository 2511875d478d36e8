// Package logging assembles structured slog loggers used across buildbench.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// and exposes context helpers so the build orchestrator can tag log lines
// with batch IDs and program names. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
