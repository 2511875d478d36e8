package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Workspace describes where programs are discovered and how.
type Workspace struct {
	Root           string `toml:"root"`
	MarkerPackage  string `toml:"marker_package"`
	MetadataBinary string `toml:"metadata_binary"`
}

// Build describes how the external build tool is invoked for each program.
type Build struct {
	ToolBinary    string `toml:"tool_binary"`
	Subcommand    string `toml:"subcommand"`
	ProgramFlag   string `toml:"program_flag"`
	OutputDirFlag string `toml:"output_dir_flag"`
	FeaturesFlag  string `toml:"features_flag"`
	ForcedFeature string `toml:"forced_feature"`
	OutputDir     string `toml:"output_dir"`
}

// Presets contains preset persistence settings.
type Presets struct {
	// File is resolved relative to the workspace root unless absolute.
	File string `toml:"file"`
}

// History contains build history settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Tools lists auxiliary binaries that are only queried for display.
type Tools struct {
	VersionBinary string `toml:"version_binary"`
}

// Config encapsulates all configuration values for buildbench.
//
// Configuration sections by subsystem:
//   - Workspace: discovery root, marker dependency, metadata binary
//   - Build: external build tool invocation
//   - Presets: preset file location
//   - History: build history database
//   - Logging: log format, level, and directory
//   - Tools: auxiliary binaries shown by doctor
type Config struct {
	Workspace Workspace `toml:"workspace"`
	Build     Build     `toml:"build"`
	Presets   Presets   `toml:"presets"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
	Tools     Tools     `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/buildbench/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("buildbench.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories buildbench writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir, filepath.Dir(c.PresetsPath())}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PresetsPath returns the absolute location of the preset file.
func (c *Config) PresetsPath() string {
	if filepath.IsAbs(c.Presets.File) {
		return c.Presets.File
	}
	return filepath.Join(c.Workspace.Root, c.Presets.File)
}

// LogPath returns the log file location, or "" when file logging is off.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return ""
	}
	return filepath.Join(c.Logging.Dir, "buildbench.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
