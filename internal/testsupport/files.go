package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ProgramDir creates <root>/programs/<name> with a minimal manifest and
// returns the directory.
func ProgramDir(t testing.TB, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, "programs", name)
	WriteFile(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname = \""+name+"\"\n")
	return dir
}
