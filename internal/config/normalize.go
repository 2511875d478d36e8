package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeWorkspace(); err != nil {
		return err
	}
	if err := c.normalizeBuild(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Tools.VersionBinary = strings.TrimSpace(c.Tools.VersionBinary)
	return nil
}

func (c *Config) normalizeWorkspace() error {
	root := strings.TrimSpace(c.Workspace.Root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("workspace.root: resolve working directory: %w", err)
		}
		root = wd
	}
	var err error
	if c.Workspace.Root, err = expandPath(root); err != nil {
		return fmt.Errorf("workspace.root: %w", err)
	}
	c.Workspace.MarkerPackage = strings.TrimSpace(c.Workspace.MarkerPackage)
	if c.Workspace.MarkerPackage == "" {
		c.Workspace.MarkerPackage = defaultMarkerPackage
	}
	c.Workspace.MetadataBinary = strings.TrimSpace(c.Workspace.MetadataBinary)
	if c.Workspace.MetadataBinary == "" {
		c.Workspace.MetadataBinary = defaultMetadataBinary
	}
	return nil
}

func (c *Config) normalizeBuild() error {
	c.Build.ToolBinary = strings.TrimSpace(c.Build.ToolBinary)
	if c.Build.ToolBinary == "" {
		c.Build.ToolBinary = defaultToolBinary
	}
	c.Build.Subcommand = strings.TrimSpace(c.Build.Subcommand)
	if c.Build.Subcommand == "" {
		c.Build.Subcommand = defaultSubcommand
	}
	c.Build.ProgramFlag = strings.TrimSpace(c.Build.ProgramFlag)
	if c.Build.ProgramFlag == "" {
		c.Build.ProgramFlag = defaultProgramFlag
	}
	c.Build.OutputDirFlag = strings.TrimSpace(c.Build.OutputDirFlag)
	if c.Build.OutputDirFlag == "" {
		c.Build.OutputDirFlag = defaultOutputDirFlag
	}
	c.Build.FeaturesFlag = strings.TrimSpace(c.Build.FeaturesFlag)
	if c.Build.FeaturesFlag == "" {
		c.Build.FeaturesFlag = defaultFeaturesFlag
	}
	c.Build.ForcedFeature = strings.TrimSpace(c.Build.ForcedFeature)
	if c.Build.ForcedFeature == "" {
		c.Build.ForcedFeature = defaultForcedFeature
	}

	if c.Build.OutputDir == "" {
		if value, ok := os.LookupEnv("BUILDBENCH_OUTPUT_DIR"); ok {
			c.Build.OutputDir = value
		}
	}
	if dir := strings.TrimSpace(c.Build.OutputDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("build.output_dir: %w", err)
		}
		c.Build.OutputDir = expanded
	} else {
		c.Build.OutputDir = ""
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Presets.File = strings.TrimSpace(c.Presets.File)
	if c.Presets.File == "" {
		c.Presets.File = defaultPresetsFile
	}
	if strings.HasPrefix(c.Presets.File, "~") {
		expanded, err := expandPath(c.Presets.File)
		if err != nil {
			return fmt.Errorf("presets.file: %w", err)
		}
		c.Presets.File = expanded
	}

	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if dir := strings.TrimSpace(c.Logging.Dir); dir != "" {
		if c.Logging.Dir, err = expandPath(dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("BUILDBENCH_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
