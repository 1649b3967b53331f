package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLines(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func countLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestTrimFile_UnderBudgetUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.log")
	writeLines(t, path, 50)

	if err := TrimFile(path, 100); err != nil {
		t.Fatalf("TrimFile: %v", err)
	}

	lines := countLines(t, path)
	if len(lines) != 50 {
		t.Errorf("expected 50 lines, got %d", len(lines))
	}
}

func TestTrimFile_KeepsNewestHalf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.log")
	writeLines(t, path, 200)

	if err := TrimFile(path, 100); err != nil {
		t.Fatalf("TrimFile: %v", err)
	}

	lines := countLines(t, path)
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines after trim, got %d", len(lines))
	}
	if lines[0] != "line 151" {
		t.Errorf("expected tail to start at line 151, got %q", lines[0])
	}
	if lines[len(lines)-1] != "line 200" {
		t.Errorf("expected tail to end at line 200, got %q", lines[len(lines)-1])
	}
}

func TestTrimFile_MissingFile(t *testing.T) {
	err := TrimFile(filepath.Join(t.TempDir(), "absent.log"), 100)
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTrimFile_InvalidBudget(t *testing.T) {
	if err := TrimFile("whatever", 0); err == nil {
		t.Error("expected error for zero line budget")
	}
}
