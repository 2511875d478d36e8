package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"buildbench/internal/build"
	"buildbench/internal/config"
	"buildbench/internal/history"
	"buildbench/internal/logging"
	"buildbench/internal/presets"
	"buildbench/internal/session"
	"buildbench/internal/workspace"
)

type commandContext struct {
	configFlag *string
	rootFlag   *string
	outputFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, rootFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		rootFlag:   rootFlag,
		outputFlag: outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := applyOverrides(cfg, flagValue(c.rootFlag), flagValue(c.outputFlag)); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func applyOverrides(cfg *config.Config, root, outputDir string) error {
	if root != "" {
		expanded, err := config.ExpandPath(root)
		if err != nil {
			return fmt.Errorf("--root: %w", err)
		}
		cfg.Workspace.Root = expanded
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if outputDir != "" {
		expanded, err := config.ExpandPath(outputDir)
		if err != nil {
			return fmt.Errorf("--output-dir: %w", err)
		}
		cfg.Build.OutputDir = expanded
	}
	return nil
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) presetStore() (*presets.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return presets.Load(cfg.PresetsPath(), c.loggerFor(cfg)), nil
}

// withHistory opens the history database for the duration of fn.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("build history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// environment is a scanned session plus the resources it owns.
type environment struct {
	cfg     *config.Config
	scanner *workspace.Scanner
	session *session.Session
	builder *build.Orchestrator
	presets *presets.Store
	history *history.Store
}

// openEnvironment scans the workspace and wires a session around it. A scan
// failure is fatal: nothing is returned and nothing is left open.
func (c *commandContext) openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.loggerFor(cfg)

	scanner, err := workspace.NewScanner(cfg.Workspace, workspace.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, scanner: scanner}
	opts := []build.Option{build.WithLogger(logger)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(logger, "build history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path or disable history"),
			)
		} else {
			env.history = store
			opts = append(opts, build.WithRecorder(store))
		}
	}
	env.builder = build.New(cfg.Build, opts...)

	env.presets = presets.Load(cfg.PresetsPath(), logger)
	env.session = session.New(scanner, env.builder, env.presets,
		session.WithLogger(logger),
		session.WithOutputDir(cfg.Build.OutputDir),
	)
	if err := env.session.Rescan(ctx); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// Close releases the session. A running batch stops after its current program.
func (e *environment) Close() {
	e.session.Close()
	e.builder.Wait()
	if e.history != nil {
		_ = e.history.Close()
	}
}

func (c *commandContext) withEnvironment(cmd *cobra.Command, fn func(*environment) error) error {
	env, err := c.openEnvironment(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
