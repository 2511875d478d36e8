package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"buildbench/internal/config"
)

func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BUILDBENCH_OUTPUT_DIR", "")
	t.Setenv("BUILDBENCH_LOG_LEVEL", "")
	t.Chdir(work)
	return home, work
}

func TestLoadDefaultsUseWorkingDirectory(t *testing.T) {
	home, work := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "buildbench", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	wantRoot, _ := filepath.EvalSymlinks(work)
	gotRoot, _ := filepath.EvalSymlinks(cfg.Workspace.Root)
	if gotRoot != wantRoot {
		t.Fatalf("unexpected workspace root: got %q want %q", gotRoot, wantRoot)
	}
	if cfg.Workspace.MarkerPackage != "anchor-lang" {
		t.Fatalf("unexpected marker package: %q", cfg.Workspace.MarkerPackage)
	}
	if cfg.Build.ToolBinary != "anchor" || cfg.Build.Subcommand != "build" {
		t.Fatalf("unexpected build tool: %q %q", cfg.Build.ToolBinary, cfg.Build.Subcommand)
	}
	if cfg.Build.ForcedFeature != "prod" {
		t.Fatalf("unexpected forced feature: %q", cfg.Build.ForcedFeature)
	}
	if cfg.Build.OutputDir != "" {
		t.Fatalf("expected no output dir by default, got %q", cfg.Build.OutputDir)
	}
	if want := filepath.Join(cfg.Workspace.Root, ".buildbench", "presets.toml"); cfg.PresetsPath() != want {
		t.Fatalf("unexpected presets path: got %q want %q", cfg.PresetsPath(), want)
	}
	if want := filepath.Join(home, ".local", "share", "buildbench", "history.db"); cfg.History.Path != want {
		t.Fatalf("unexpected history path: got %q want %q", cfg.History.Path, want)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Logging.Dir, filepath.Dir(cfg.PresetsPath()), filepath.Dir(cfg.History.Path)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	_, work := isolate(t)
	configPath := filepath.Join(work, "custom.toml")
	ws := t.TempDir()

	type payload struct {
		Workspace struct {
			Root          string `toml:"root"`
			MarkerPackage string `toml:"marker_package"`
		} `toml:"workspace"`
		Build struct {
			ToolBinary    string `toml:"tool_binary"`
			ForcedFeature string `toml:"forced_feature"`
			OutputDir     string `toml:"output_dir"`
		} `toml:"build"`
		Presets struct {
			File string `toml:"file"`
		} `toml:"presets"`
	}
	custom := payload{}
	custom.Workspace.Root = ws
	custom.Workspace.MarkerPackage = "pinocchio"
	custom.Build.ToolBinary = "/opt/anchor/bin/anchor"
	custom.Build.ForcedFeature = "mainnet"
	custom.Build.OutputDir = "~/idl"
	custom.Presets.File = "presets/team.toml"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Workspace.Root != ws {
		t.Fatalf("unexpected workspace root: got %q want %q", cfg.Workspace.Root, ws)
	}
	if cfg.Workspace.MarkerPackage != "pinocchio" {
		t.Fatalf("expected marker override, got %q", cfg.Workspace.MarkerPackage)
	}
	if cfg.Build.ToolBinary != "/opt/anchor/bin/anchor" {
		t.Fatalf("expected tool override, got %q", cfg.Build.ToolBinary)
	}
	if cfg.Build.ForcedFeature != "mainnet" {
		t.Fatalf("expected forced feature override, got %q", cfg.Build.ForcedFeature)
	}
	if cfg.Build.ProgramFlag != "-p" {
		t.Fatalf("expected default program flag to survive partial config, got %q", cfg.Build.ProgramFlag)
	}
	if !filepath.IsAbs(cfg.Build.OutputDir) || !strings.HasSuffix(cfg.Build.OutputDir, "idl") {
		t.Fatalf("expected expanded output dir, got %q", cfg.Build.OutputDir)
	}
	if want := filepath.Join(ws, "presets", "team.toml"); cfg.PresetsPath() != want {
		t.Fatalf("unexpected presets path: got %q want %q", cfg.PresetsPath(), want)
	}
}

func TestEnvOverridesOutputDirAndLogLevel(t *testing.T) {
	_, work := isolate(t)
	t.Setenv("BUILDBENCH_OUTPUT_DIR", filepath.Join(work, "idl"))
	t.Setenv("BUILDBENCH_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Build.OutputDir != filepath.Join(work, "idl") {
		t.Fatalf("expected output dir from env, got %q", cfg.Build.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"forced feature list", func(c *config.Config) { c.Build.ForcedFeature = "prod,devnet" }, "forced_feature"},
		{"program flag", func(c *config.Config) { c.Build.ProgramFlag = "p" }, "build.program_flag"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"missing root", func(c *config.Config) { c.Workspace.Root = filepath.Join(os.TempDir(), "buildbench-missing-root") }, "workspace.root"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Workspace.Root = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolate(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Build.FeaturesFlag != "--features" {
		t.Fatalf("unexpected features flag: %q", cfg.Build.FeaturesFlag)
	}
}
