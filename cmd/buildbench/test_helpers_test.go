package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"buildbench/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	root       string
	configPath string
	callsPath  string
	historyDir string
}

// defaultPackages is the workspace most CLI tests run against, in discovery order.
func defaultPackages() []testsupport.Package {
	return []testsupport.Package{
		{Name: "vault", Dir: "programs/vault", Features: []string{"prod", "staking"}},
		{Name: "oracle", Dir: "programs/oracle", Features: []string{"devnet", "prod"}},
		{Name: "helpers", Dir: "crates/helpers", Features: []string{"std"}, NoMarker: true},
	}
}

func setupCLITestEnv(t *testing.T, pkgs ...testsupport.Package) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("CLI tests use POSIX shell stubs")
	}
	if len(pkgs) == 0 {
		pkgs = defaultPackages()
	}

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("BUILDBENCH_OUTPUT_DIR", "")
	t.Setenv("NO_COLOR", "1")

	root := filepath.Join(base, "workspace")
	for _, p := range pkgs {
		testsupport.WriteFile(t, filepath.Join(root, p.Dir, "Cargo.toml"), "[package]\nname = \""+p.Name+"\"\n")
	}

	bin := filepath.Join(base, "bin")
	metadataPath := filepath.Join(base, "metadata.json")
	testsupport.WriteFile(t, metadataPath, testsupport.MetadataJSON(root, pkgs...))
	callsPath := filepath.Join(base, "calls.log")

	metadata := writeStub(t, bin, "cargo", fmt.Sprintf("cat %q", metadataPath))
	tool := writeStub(t, bin, "anchor", fmt.Sprintf(`echo "$*" >> %q
case "$3" in
broken)
	echo "error: could not compile" >&2
	exit 2
	;;
esac
echo "compiled $3"`, callsPath))
	version := writeStub(t, bin, "solana", `echo "solana-cli 1.18.4 (src:devbuild)"`)

	env := &cliTestEnv{
		baseDir:    base,
		root:       root,
		configPath: filepath.Join(home, ".config", "buildbench", "config.toml"),
		callsPath:  callsPath,
		historyDir: filepath.Join(base, "state"),
	}
	writeTestConfig(t, env.configPath, fmt.Sprintf(`[workspace]
root = %q
metadata_binary = %q

[build]
tool_binary = %q

[history]
enabled = true
path = %q

[logging]
dir = %q

[tools]
version_binary = %q
`, root, metadata, tool, filepath.Join(env.historyDir, "history.db"), filepath.Join(base, "logs"), version))
	return env
}

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func writeTestConfig(t *testing.T, path, content string) {
	t.Helper()
	testsupport.WriteFile(t, path, content)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.configPath)
	return out, err
}

// calls returns the build tool invocations recorded by the stub, one per line.
func (e *cliTestEnv) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.callsPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}

func requireOrder(t *testing.T, output string, parts ...string) {
	t.Helper()
	rest := output
	for _, p := range parts {
		idx := strings.Index(rest, p)
		if idx < 0 {
			t.Fatalf("expected %q to contain %q in order %q", output, p, parts)
		}
		rest = rest[idx+len(p):]
	}
}
