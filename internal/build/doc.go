// Package build turns a program snapshot into a serialized batch of external
// build tool invocations and streams ordered progress for each one.
//
// A batch runs one program at a time in snapshot order. For every program the
// orchestrator sends, in this order: the composed command line, captured
// stdout (if any), captured stderr (if any), and exactly one status line.
// Once all programs are handled it sends a single completion line, even for
// an empty batch. A failing program never stops the batch.
//
// Start is fire-and-forget: the batch runs on its own goroutine and the caller
// only sees progress messages. Only one batch may be in flight per
// Orchestrator; a second Start is rejected with ErrBatchInFlight. If the
// consumer closes the progress channel the batch stops quietly before the next
// program.
package build
