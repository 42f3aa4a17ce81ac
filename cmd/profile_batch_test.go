package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProfileBatch_CollisionSuffix(t *testing.T) {
	home := isolatedHome(t)

	// Two CSV files with the same basename in different directories
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	out := filepath.Join(home, "reports")

	runCmd(t, "profile-batch", filepath.Join(home, "d*", "metrics.csv"), "-o", out, "--quiet", "--no-history")

	for _, dir := range []string{"metrics", "metrics__2"} {
		if _, err := os.Stat(filepath.Join(out, dir, "README.md")); err != nil {
			t.Fatalf("missing report in %s: %v", dir, err)
		}
	}
}

func TestProfileBatch_FailureIsReported(t *testing.T) {
	home := isolatedHome(t)
	good := writeFile(t, filepath.Join(home, "good.csv"), "a,b\n1,2\n3,4\n")
	bad := writeFile(t, filepath.Join(home, "bad.json"), "{not json")
	out := filepath.Join(home, "reports")

	if err := execCmd("profile-batch", good, bad, "-o", out, "--no-history"); err == nil {
		t.Fatalf("expected error when one file fails")
	}
	if _, err := os.Stat(filepath.Join(out, "good", "profile.json")); err != nil {
		t.Fatalf("good file not exported: %v", err)
	}
}

func TestProfileBatch_NoMatches(t *testing.T) {
	home := isolatedHome(t)
	if err := execCmd("profile-batch", filepath.Join(home, "*.csv")); err == nil {
		t.Fatalf("expected error for empty glob")
	}
}

func TestExpandInputsDedupes(t *testing.T) {
	home := t.TempDir()
	a := writeFile(t, filepath.Join(home, "b.csv"), "x\n1\n")
	b := writeFile(t, filepath.Join(home, "a.csv"), "x\n1\n")
	got, err := expandInputs([]string{a, filepath.Join(home, "*.csv"), b})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Fatalf("expandInputs = %v", got)
	}
}
