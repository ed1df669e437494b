package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI runs the CLI against the database at path and returns stdout,
// stderr and the exit code.
func runCLI(t *testing.T, path string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--db", path}, args...)
	code := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func mustRun(t *testing.T, path string, args ...string) string {
	t.Helper()
	out, errOut, code := runCLI(t, path, args...)
	if code != 0 {
		t.Fatalf("%v: exit code %d, stderr %q", args, code, errOut)
	}
	return out
}

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cli.aodb")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"unknown"}, &stdout, &stderr); code != 1 {
		t.Errorf("expected exit code 1 for unknown command, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("expected unknown command message, got %q", stderr.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0 for help, got %d", code)
	}
	for _, name := range []string{"get", "set", "del", "scan", "current", "log", "stat", "check", "version"} {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("help output missing command %q", name)
		}
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"version", "--short"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(stdout.String()) != version {
		t.Errorf("expected %q, got %q", version, stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "aodb version "+version) {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestRun_SetGetDel(t *testing.T) {
	path := testDBPath(t)

	out := mustRun(t, path, "set", "greeting", "hello")
	if !strings.HasSuffix(strings.TrimSpace(out), "committed") {
		t.Errorf("expected committed version, got %q", out)
	}
	if got := strings.TrimSpace(mustRun(t, path, "get", "greeting")); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}

	mustRun(t, path, "del", "greeting")
	_, errOut, code := runCLI(t, path, "get", "greeting")
	if code != 1 {
		t.Errorf("expected exit code 1 for missing key, got %d", code)
	}
	if !strings.Contains(errOut, "key not found") {
		t.Errorf("expected not found message, got %q", errOut)
	}

	out = mustRun(t, path, "del", "greeting")
	if !strings.Contains(out, "unchanged") {
		t.Errorf("expected unchanged for absent key, got %q", out)
	}
}

func TestRun_NoCommitAndVersionFlag(t *testing.T) {
	path := testDBPath(t)
	mustRun(t, path, "set", "k", "committed")
	before := strings.TrimSpace(mustRun(t, path, "current"))

	v := strings.TrimSpace(mustRun(t, path, "set", "--no-commit", "k", "draft"))
	if got := strings.TrimSpace(mustRun(t, path, "current")); got != before {
		t.Errorf("current moved from %s to %s without commit", before, got)
	}
	if got := strings.TrimSpace(mustRun(t, path, "get", "k")); got != "committed" {
		t.Errorf("expected committed value, got %q", got)
	}
	if got := strings.TrimSpace(mustRun(t, path, "get", "--version", v, "k")); got != "draft" {
		t.Errorf("expected draft value at version %s, got %q", v, got)
	}
}

func TestRun_ScanAndLog(t *testing.T) {
	path := testDBPath(t)
	for _, k := range []string{"c", "a", "d", "b"} {
		mustRun(t, path, "set", k, strings.ToUpper(k))
	}

	out := mustRun(t, path, "scan", "--from", "b", "--limit", "2")
	if out != "b\tB\nc\tC\n" {
		t.Errorf("unexpected scan output %q", out)
	}

	lines := strings.Split(strings.TrimSpace(mustRun(t, path, "log")), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %q", lines)
	}
	if !strings.HasSuffix(lines[3], "parent 0") {
		t.Errorf("expected oldest version to descend from the origin, got %q", lines[3])
	}

	if got := len(strings.Split(strings.TrimSpace(mustRun(t, path, "log", "--limit", "2")), "\n")); got != 2 {
		t.Errorf("expected 2 log lines, got %d", got)
	}
}

func TestRun_StatAndCheck(t *testing.T) {
	path := testDBPath(t)
	mustRun(t, path, "set", "a", "1")
	mustRun(t, path, "set", "b", "2")

	out := mustRun(t, path, "stat")
	for _, want := range []string{"File size:", "Keys:", "2", "Tree height:"} {
		if !strings.Contains(out, want) {
			t.Errorf("stat output missing %q: %q", want, out)
		}
	}

	out = mustRun(t, path, "check")
	if !strings.Contains(out, "ok: 2 versions checked") {
		t.Errorf("unexpected check output %q", out)
	}
}

func TestRun_ReadMissingDatabase(t *testing.T) {
	_, _, code := runCLI(t, testDBPath(t), "current")
	if code != 1 {
		t.Errorf("expected exit code 1 for an uninitialised database, got %d", code)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.aodb")
	promPath := filepath.Join(dir, "aodb.prom")
	cfgPath := filepath.Join(dir, "aodb.yaml")
	cfg := "storage:\n  path: " + dbPath + "\n  maxLeafKeys: 4\n  maxChildren: 4\n" +
		"metrics:\n  enabled: true\n  textfile: " + promPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfgPath, "set", "k", "v"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr %q", code, stderr.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database at configured path: %v", err)
	}
	prom, err := os.ReadFile(promPath)
	if err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "aodb_commits_total") {
		t.Errorf("metrics textfile missing commit counter: %q", prom)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--db", testDBPath(t), "--log-level", "loud", "current"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "logging.level") {
		t.Errorf("expected validation message, got %q", stderr.String())
	}
}
