package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"buildbench/internal/testsupport"
	"buildbench/internal/workspace"
)

func TestScanListsMarkedPrograms(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireOrder(t, out, "vault", "oracle")
	requireContains(t, out, "prod, staking")
	requireNotContains(t, out, "helpers")

	out, err = env.run(t, "scan", "--json")
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}
	var programs []workspace.Program
	if err := json.Unmarshal([]byte(out), &programs); err != nil {
		t.Fatalf("decode scan json: %v\n%s", err, out)
	}
	if len(programs) != 2 || programs[0].Name != "vault" || programs[1].Name != "oracle" {
		t.Fatalf("unexpected programs: %+v", programs)
	}
	if got := programs[1].Features[0].Name; got != "devnet" {
		t.Fatalf("expected declaration order to survive, first oracle feature %q", got)
	}
}

func TestScanFailureIsFatal(t *testing.T) {
	env := setupCLITestEnv(t)
	writeStub(t, filepath.Join(env.baseDir, "bin"), "cargo", "echo 'error: no Cargo.toml' >&2\nexit 101")

	_, err := env.run(t, "scan")
	if err == nil {
		t.Fatal("expected scan failure")
	}
	requireContains(t, err.Error(), "workspace scan failed")
}

func TestRootFlagFiltersByContainment(t *testing.T) {
	env := setupCLITestEnv(t)
	other := env.root + "-other"
	testsupport.WriteFile(t, filepath.Join(other, "Cargo.toml"), "[workspace]\n")

	out, err := env.run(t, "--root", other, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "No programs found under "+other)
}

func TestBuildStreamsSelectedProgramsInWorkspaceOrder(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "build", "oracle=devnet", "vault=prod,staking")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	requireOrder(t, out,
		"build -p vault -- --features prod,staking (from "+filepath.Join(env.root, "programs", "vault")+")",
		"compiled vault",
		"Build succeeded.",
		"build -p oracle -- --features devnet",
		"compiled oracle",
		"Build succeeded.",
		"Build complete.",
	)
	if !strings.HasSuffix(out, "Build complete.\n") {
		t.Fatalf("expected completion to be the last line, got %q", out)
	}

	calls := env.calls(t)
	want := []string{
		"build -p vault -- --features prod,staking",
		"build -p oracle -- --features devnet",
	}
	if strings.Join(calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected tool calls %q", calls)
	}
}

func TestBuildWithoutSelectionOnlyCompletes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "build")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if out != "Build complete.\n" {
		t.Fatalf("expected only the completion message, got %q", out)
	}
	if calls := env.calls(t); len(calls) != 0 {
		t.Fatalf("expected no tool calls, got %q", calls)
	}
}

func TestBuildRejectsUnknownNames(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "build", "ghost=prod")
	if err == nil {
		t.Fatal("expected unknown program error")
	}
	requireContains(t, err.Error(), "unknown program")

	_, err = env.run(t, "build", "vault=mainnet")
	if err == nil {
		t.Fatal("expected unknown feature error")
	}
	requireContains(t, err.Error(), "unknown feature")

	if calls := env.calls(t); len(calls) != 0 {
		t.Fatalf("expected no tool calls, got %q", calls)
	}
}

func TestBuildAllContinuesPastFailures(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.Package{Name: "broken", Dir: "programs/broken", Features: []string{"prod"}},
		testsupport.Package{Name: "vault", Dir: "programs/vault", Features: []string{"prod"}},
	)

	out, err := env.run(t, "build-all")
	if err == nil {
		t.Fatal("expected failure summary error")
	}
	requireContains(t, err.Error(), "1 of 2 builds failed")
	requireOrder(t, out,
		"build -p broken (from",
		"error: could not compile",
		"Build failed with code 2",
		"build -p vault (from",
		"Build succeeded.",
		"Build complete.",
	)
	requireNotContains(t, out, "--features")
}

func TestBuildAllForcedPassesForcedFeature(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "build-all", "--forced")
	if err != nil {
		t.Fatalf("build-all --forced: %v", err)
	}
	requireOrder(t, out, "build -p vault -- --features prod", "build -p oracle -- --features prod")
}

func TestOutputDirFlagIsQuotedInAnnouncement(t *testing.T) {
	env := setupCLITestEnv(t)
	outputDir := filepath.Join(env.baseDir, "idl out")

	out, err := env.run(t, "--output-dir", outputDir, "build", "vault=prod")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, `build -p vault -t "`+outputDir+`" -- --features prod`)
	calls := env.calls(t)
	if len(calls) != 1 || calls[0] != "build -p vault -t "+outputDir+" -- --features prod" {
		t.Fatalf("unexpected tool calls %q", calls)
	}
}
