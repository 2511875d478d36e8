package testsupport

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
)

// Package describes one workspace member for MetadataJSON.
type Package struct {
	Name string
	// Dir is relative to the workspace root.
	Dir      string
	Features []string
	// NoMarker omits the anchor-lang dependency.
	NoMarker bool
}

// MetadataJSON renders a `cargo metadata` document for pkgs under root,
// keeping feature order.
func MetadataJSON(root string, pkgs ...Package) string {
	var b strings.Builder
	b.WriteString(`{"packages":[`)
	for i, p := range pkgs {
		if i > 0 {
			b.WriteByte(',')
		}
		dep := "anchor-lang"
		if p.NoMarker {
			dep = "borsh"
		}
		b.WriteString(`{"name":`)
		b.WriteString(quote(p.Name))
		b.WriteString(`,"manifest_path":`)
		b.WriteString(quote(filepath.Join(root, p.Dir, "Cargo.toml")))
		b.WriteString(`,"dependencies":[{"name":`)
		b.WriteString(quote(dep))
		b.WriteString(`}],"features":{`)
		for j, f := range p.Features {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(f))
			b.WriteString(":[]")
		}
		b.WriteString("}}")
	}
	b.WriteString(`],"workspace_root":`)
	b.WriteString(quote(root))
	b.WriteString("}")
	return b.String()
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// MetadataExecutor is a workspace.Executor returning canned metadata.
type MetadataExecutor struct {
	mu    sync.Mutex
	out   string
	err   error
	calls int
}

// NewMetadataExecutor returns an executor that answers with out.
func NewMetadataExecutor(out string) *MetadataExecutor {
	return &MetadataExecutor{out: out}
}

// Set replaces the canned answer.
func (e *MetadataExecutor) Set(out string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out, e.err = out, err
}

// Calls returns how many times Output ran.
func (e *MetadataExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Output implements workspace.Executor.
func (e *MetadataExecutor) Output(_ context.Context, _, _ string, _ []string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []byte(e.out), nil
}
