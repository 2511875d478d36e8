// Package workspace discovers buildable programs and their feature tables.
//
// A Scanner runs the workspace metadata query (cargo metadata by default),
// keeps the packages that depend directly on the configured marker package
// and live under the workspace root, and turns each package's feature table
// into an ordered list of Features. Nothing is cached: every Scan re-runs the
// query.
//
// Program values carry a selection vector parallel to their features. The
// vector may be stale or short right after a rescan, so every accessor
// repairs it first with EnsureSelection.
package workspace
