package workspace_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"buildbench/internal/config"
	"buildbench/internal/workspace"
)

type stubExecutor struct {
	out   string
	err   error
	calls int
	dir   string
	bin   string
	args  []string
}

func (s *stubExecutor) Output(ctx context.Context, dir, binary string, args []string) ([]byte, error) {
	s.calls++
	s.dir = dir
	s.bin = binary
	s.args = append([]string(nil), args...)
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.out), nil
}

func newScanner(t *testing.T, root string, exec workspace.Executor) *workspace.Scanner {
	t.Helper()
	scanner, err := workspace.NewScanner(config.Workspace{
		Root:           root,
		MarkerPackage:  "anchor-lang",
		MetadataBinary: "cargo",
	}, workspace.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewScanner returned error: %v", err)
	}
	return scanner
}

func metadataJSON(root string) string {
	return fmt.Sprintf(`{
  "packages": [
    {
      "name": "vault",
      "manifest_path": %q,
      "dependencies": [{"name": "anchor-lang", "rename": null, "kind": null}],
      "features": {"staking": ["dep:spl-stake"], "prod": [], "default": ["staking"]}
    },
    {
      "name": "shared-utils",
      "manifest_path": %q,
      "dependencies": [{"name": "borsh", "rename": null, "kind": null}],
      "features": {}
    },
    {
      "name": "outsider",
      "manifest_path": %q,
      "dependencies": [{"name": "anchor-lang", "rename": null, "kind": null}],
      "features": {"prod": []}
    },
    {
      "name": "oracle",
      "manifest_path": %q,
      "dependencies": [{"name": "anchor-spl"}, {"name": "anchor-lang"}],
      "features": null
    }
  ],
  "workspace_root": %q
}`,
		filepath.Join(root, "programs", "vault", "Cargo.toml"),
		filepath.Join(root, "crates", "shared-utils", "Cargo.toml"),
		filepath.Join(root+"-other", "programs", "outsider", "Cargo.toml"),
		filepath.Join(root, "programs", "oracle", "Cargo.toml"),
		root,
	)
}

func TestScanFiltersByMarkerAndContainment(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	exec := &stubExecutor{out: metadataJSON(root)}
	scanner := newScanner(t, root, exec)

	programs, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	var names []string
	for _, p := range programs {
		names = append(names, p.Name)
	}
	if want := []string{"vault", "oracle"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected programs: got %v want %v", names, want)
	}
	if programs[0].Path != filepath.Join(root, "programs", "vault") {
		t.Fatalf("unexpected program path: %q", programs[0].Path)
	}
	if exec.dir != root || exec.bin != "cargo" {
		t.Fatalf("unexpected invocation: dir=%q bin=%q", exec.dir, exec.bin)
	}
	if want := []string{"metadata", "--format-version", "1", "--no-deps"}; !reflect.DeepEqual(exec.args, want) {
		t.Fatalf("unexpected args: got %v want %v", exec.args, want)
	}
}

func TestScanPreservesFeatureDeclarationOrder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	scanner := newScanner(t, root, &stubExecutor{out: metadataJSON(root)})

	programs, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	vault := programs[0]
	want := []workspace.Feature{
		{Name: "staking", SubFeatures: []string{"dep:spl-stake"}},
		{Name: "prod", SubFeatures: []string{}},
		{Name: "default", SubFeatures: []string{"staking"}},
	}
	if !reflect.DeepEqual(vault.Features, want) {
		t.Fatalf("unexpected features: got %#v want %#v", vault.Features, want)
	}
	if want := []bool{false, false, false}; !reflect.DeepEqual(vault.Selected, want) {
		t.Fatalf("expected all-false selection, got %v", vault.Selected)
	}
	if oracle := programs[1]; len(oracle.Features) != 0 || len(oracle.Selected) != 0 {
		t.Fatalf("expected no features for null table, got %#v", oracle)
	}
}

func TestScanRequeriesEveryCall(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	exec := &stubExecutor{out: metadataJSON(root)}
	scanner := newScanner(t, root, exec)

	for i := 0; i < 2; i++ {
		if _, err := scanner.Scan(context.Background()); err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}
	}
	if exec.calls != 2 {
		t.Fatalf("expected 2 metadata queries, got %d", exec.calls)
	}
}

func TestScanFailures(t *testing.T) {
	tests := []struct {
		name string
		exec *stubExecutor
		want string
	}{
		{"executor error", &stubExecutor{err: errors.New("cargo: not found")}, "cargo: not found"},
		{"invalid json", &stubExecutor{out: `{"packages": [`}, "decode metadata"},
		{"empty output", &stubExecutor{out: "  "}, "empty metadata output"},
		{"bad features", &stubExecutor{out: `{"packages":[{"name":"x","features":[1]}]}`}, "features"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scanner := newScanner(t, t.TempDir(), tc.exec)
			_, err := scanner.Scan(context.Background())
			if !errors.Is(err, workspace.ErrScanFailed) {
				t.Fatalf("expected ErrScanFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestNewScannerRequiresAbsoluteRoot(t *testing.T) {
	if _, err := workspace.NewScanner(config.Workspace{Root: "relative/ws"}); err == nil {
		t.Fatal("expected error for relative root")
	}
	if _, err := workspace.NewScanner(config.Workspace{}); err == nil {
		t.Fatal("expected error for empty root")
	}
}
