package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"buildbench/internal/config"
	"buildbench/internal/logging"
)

// ErrScanFailed marks a workspace query that could not run or be decoded.
// Callers treat it as fatal.
var ErrScanFailed = errors.New("workspace scan failed")

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, dir, binary string, args []string) ([]byte, error)
}

// Option configures the scanner.
type Option func(*Scanner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(s *Scanner) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logging.NewComponentLogger(logger, "workspace")
	}
}

// Scanner discovers programs under a workspace root.
type Scanner struct {
	root   string
	marker string
	binary string
	exec   Executor
	logger *slog.Logger
}

// NewScanner constructs a scanner from configuration.
func NewScanner(cfg config.Workspace, opts ...Option) (*Scanner, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("workspace root required")
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("workspace root must be absolute: %q", root)
	}
	s := &Scanner{
		root:   filepath.Clean(root),
		marker: cfg.MarkerPackage,
		binary: cfg.MetadataBinary,
		exec:   commandExecutor{},
		logger: logging.NewComponentLogger(nil, "workspace"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the workspace root the scanner filters against.
func (s *Scanner) Root() string {
	return s.root
}

// Scan queries the workspace and returns matching programs in discovery
// order with every feature unselected.
func (s *Scanner) Scan(ctx context.Context) ([]Program, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	out, err := s.exec.Output(ctx, s.root, s.binary, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s metadata: %w", ErrScanFailed, s.binary, err)
	}
	md, err := decodeMetadata(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanFailed, err)
	}

	root := resolveRoot(s.root)
	var programs []Program
	for _, pkg := range md.Packages {
		if !pkg.dependsOn(s.marker) {
			continue
		}
		manifest := filepath.Clean(pkg.ManifestPath)
		if !within(root, manifest) && !within(s.root, manifest) {
			s.logger.Debug("skipping package outside workspace root",
				logging.String("package", pkg.Name),
				logging.String("manifest", manifest),
			)
			continue
		}
		features := make([]Feature, len(pkg.Features))
		copy(features, pkg.Features)
		programs = append(programs, Program{
			Name:     pkg.Name,
			Path:     filepath.Dir(manifest),
			Features: features,
			Selected: make([]bool, len(features)),
		})
	}

	s.logger.Info("workspace scanned",
		logging.String("root", s.root),
		logging.Int("packages", len(md.Packages)),
		logging.Int("programs", len(programs)),
	)
	return programs, nil
}

// within reports whether path lies inside root by path containment.
// "/ws-other/Cargo.toml" is not within "/ws".
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func resolveRoot(root string) string {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		return resolved
	}
	return root
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, dir, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return out, nil
}
