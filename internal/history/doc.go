// Package history records finished build batches in a SQLite database so the
// CLI can show what was built, when, and with which outcome.
//
// The store implements build.Recorder. A batch row holds the mode, preset,
// output directory, timestamps and skipped programs; one result row per
// program holds the command line, status, exit code and duration.
package history
