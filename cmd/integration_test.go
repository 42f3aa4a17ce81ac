package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/history"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default; cobra keeps values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	return <-done
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"DATALENS_API_KEY", "DATALENS_SAVE_HISTORY", "DATALENS_HISTORY_DIR", "DATALENS_OUTPUT_DIR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const salesCSV = "region,units,price,returned\nnorth,10,2.5,no\nsouth,20,5.0,no\nnorth,30,7.5,yes\neast,,10.0,no\nnorth,10,2.5,no\n"

func TestCLI_ProfileWritesReports(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	out := filepath.Join(home, "out")

	runCmd(t, "profile", in, "-o", out)

	for _, name := range []string{"README.md", "report.html", "profile.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	md, err := os.ReadFile(filepath.Join(out, "README.md"))
	if err != nil {
		t.Fatalf("read README: %v", err)
	}
	if !strings.Contains(string(md), "## AI READINESS") {
		t.Fatalf("README lacks readiness section:\n%s", md)
	}
}

func TestCLI_ProfileStdoutJSON(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	got := captureStdout(t, func() { runCmd(t, "profile", in, "--stdout", "json", "--no-history") })

	var res profile.Result
	if err := json.Unmarshal([]byte(got), &res); err != nil {
		t.Fatalf("stdout is not a profile: %v\n%s", err, got)
	}
	if res.Rows != 5 || res.Cols != 4 {
		t.Fatalf("shape = %dx%d, want 5x4", res.Rows, res.Cols)
	}
	if res.DuplicateRows != 1 {
		t.Fatalf("duplicate rows = %d, want 1", res.DuplicateRows)
	}
	if _, err := os.Stat(filepath.Join(home, ".datalens", "history")); err == nil {
		t.Fatalf("--no-history still created history")
	}
}

func TestCLI_ProfileRejectsUnsupported(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "legacy.xls"), "x")
	if err := execCmd("profile", in, "-o", filepath.Join(home, "out")); err == nil {
		t.Fatalf("expected error for .xls input")
	}
}

func TestCLI_ProfileSourceFile(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "clean.py"), "import pandas as pd\n\ndf = pd.read_csv('x.csv')\n")
	out := filepath.Join(home, "doc")

	runCmd(t, "profile", in, "-o", out)

	md, err := os.ReadFile(filepath.Join(out, "README.md"))
	if err != nil {
		t.Fatalf("read README: %v", err)
	}
	if !strings.Contains(string(md), "pd.read_csv") {
		t.Fatalf("source not embedded:\n%s", md)
	}
}

func TestCLI_HistoryListAndShow(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	runCmd(t, "profile", in, "-o", filepath.Join(home, "out"))

	listed := captureStdout(t, func() { runCmd(t, "history", "list", "--json") })
	var items []history.Summary
	if err := json.Unmarshal([]byte(listed), &items); err != nil {
		t.Fatalf("decode list: %v\n%s", err, listed)
	}
	if len(items) != 1 || items[0].Source != "sales.csv" || items[0].Rows != 5 {
		t.Fatalf("unexpected history: %+v", items)
	}

	shown := captureStdout(t, func() { runCmd(t, "history", "show", items[0].ID) })
	if !strings.Contains(shown, "# AUTO GENERATED DOCUMENTATION") {
		t.Fatalf("show did not print the report:\n%s", shown)
	}

	if err := execCmd("history", "show", "0b9a3e4c-7f52-4a8e-9a59-3f0f2d7c1e11"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolatedHome(t)

	runCmd(t, "config", "set", "workers", "2")
	runCmd(t, "config", "set", "api_key", "sk-1234567890")

	if _, err := os.Stat(filepath.Join(home, ".datalens", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	shown := captureStdout(t, func() { runCmd(t, "config", "show") })
	if !strings.Contains(shown, "workers: 2\n") {
		t.Fatalf("workers not persisted:\n%s", shown)
	}
	if strings.Contains(shown, "sk-1234567890") || !strings.Contains(shown, "api_key: sk-****890") {
		t.Fatalf("api key not masked:\n%s", shown)
	}
	if err := execCmd("config", "set", "weights.numeric", "2"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCLI_ExplainPrintPrompt(t *testing.T) {
	home := isolatedHome(t)
	in := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	got := captureStdout(t, func() { runCmd(t, "explain", in, "--print-prompt", "--model", "test-model") })
	if !strings.Contains(got, "--- system ---") || !strings.Contains(got, "## DATASET SUMMARY") {
		t.Fatalf("prompt not printed:\n%s", got)
	}
	if !strings.Contains(got, "Model: test-model") {
		t.Fatalf("model line missing:\n%s", got)
	}
}

func TestCLI_ExplainNeedsTarget(t *testing.T) {
	isolatedHome(t)
	if err := execCmd("explain", "--print-prompt"); err == nil {
		t.Fatalf("expected error without file or --id")
	}
}
