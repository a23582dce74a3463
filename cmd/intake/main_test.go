package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
ledger_dir = %q
log_dir = %q

[store]
access_token = "test-token-abcd"
base_id = "appTest"
table_id = "tblTest"
interview_code_field = "fldCode"
transcript_field = "fldTranscript"
project_field = "fldProject"
`, filepath.Join(base, "ledger"), filepath.Join(base, "logs"))

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	requireContains(t, string(data), "[store]")

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidate(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowMasksAccessToken(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-token-abcd") {
		t.Fatal("access token leaked into config show output")
	}
	requireContains(t, out, "****abcd")
}

func TestHistoryWithEmptyLedger(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCLI(t, "-c", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No outcomes recorded yet.")
}

func TestProcessRejectsMissingFolder(t *testing.T) {
	cfgPath := writeTestConfig(t)

	if _, err := runCLI(t, "-c", cfgPath, "process"); err == nil {
		t.Fatal("expected usage error when folder argument is missing")
	}
}
