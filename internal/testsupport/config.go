package testsupport

import (
	"path/filepath"
	"testing"

	"buildbench/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The workspace root is an empty temp directory; history and logs live beside it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Workspace.Root = filepath.Join(base, "workspace")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkspaceRoot points the workspace at an existing directory.
func WithWorkspaceRoot(root string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workspace.Root = root
	}
}

// WithToolBinary overrides the build tool binary.
func WithToolBinary(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Build.ToolBinary = binary
	}
}

// WithoutHistory disables the history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}
