package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	info, err := os.Stat(c.Workspace.Root)
	if err != nil {
		return fmt.Errorf("workspace.root %q: %w", c.Workspace.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace.root %q is not a directory", c.Workspace.Root)
	}
	if strings.ContainsAny(c.Workspace.MarkerPackage, " \t") {
		return errors.New("workspace.marker_package must not contain whitespace")
	}
	return nil
}

func (c *Config) validateBuild() error {
	if strings.ContainsAny(c.Build.ForcedFeature, ", \t") {
		return errors.New("build.forced_feature must be a single feature name")
	}
	for name, flag := range map[string]string{
		"build.program_flag":    c.Build.ProgramFlag,
		"build.output_dir_flag": c.Build.OutputDirFlag,
		"build.features_flag":   c.Build.FeaturesFlag,
	} {
		if !strings.HasPrefix(flag, "-") {
			return fmt.Errorf("%s must start with '-' (got %q)", name, flag)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
