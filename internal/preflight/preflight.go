package preflight

import (
	"context"
	"path/filepath"

	"buildbench/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks applicable to cfg.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Workspace root", cfg.Workspace.Root),
		CheckWritableLocation("Preset file", filepath.Dir(cfg.PresetsPath())),
	}
	if cfg.Build.OutputDir != "" {
		results = append(results, CheckWritableLocation("Output directory", cfg.Build.OutputDir))
	}
	if cfg.History.Enabled {
		results = append(results, CheckWritableLocation("History database", filepath.Dir(cfg.History.Path)))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckWritableLocation("Log directory", cfg.Logging.Dir))
	}
	return results
}
