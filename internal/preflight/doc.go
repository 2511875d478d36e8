// Package preflight provides readiness checks for the workspace and the
// tools buildbench drives.
//
// The CLI "buildbench doctor" command runs RunAll for directory checks,
// CheckSystemDeps for binaries, and ToolVersions for the version column.
package preflight
