package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"buildbench/internal/config"
	"buildbench/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableLocation passes when path is a writable directory or does not
// exist yet but its nearest existing ancestor is writable.
func CheckWritableLocation(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := path
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		ancestor = parent
		info, err := os.Stat(ancestor)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
		}
		if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
}

// CheckSystemDeps evaluates the binaries buildbench invokes for cfg.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Metadata",
			Command:     cfg.Workspace.MetadataBinary,
			Description: "Required for workspace discovery",
		},
		{
			Name:        "Build tool",
			Command:     cfg.Build.ToolBinary,
			Description: "Required for building programs",
		},
	}
	if cfg.Tools.VersionBinary != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Toolchain",
			Command:     cfg.Tools.VersionBinary,
			Description: "Shown for reference",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

// ToolVersions reports the version of each configured binary that is installed.
func ToolVersions(ctx context.Context, cfg *config.Config) []Result {
	binaries := []string{cfg.Workspace.MetadataBinary, cfg.Build.ToolBinary}
	if cfg.Tools.VersionBinary != "" {
		binaries = append(binaries, cfg.Tools.VersionBinary)
	}
	results := make([]Result, 0, len(binaries))
	for _, bin := range binaries {
		version, err := deps.ToolVersion(ctx, bin)
		if err != nil {
			results = append(results, Result{Name: bin, Detail: "unavailable"})
			continue
		}
		results = append(results, Result{Name: bin, Passed: true, Detail: version})
	}
	return results
}
