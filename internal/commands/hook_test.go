package commands

import "testing"

func TestTruncateSummaryWithinLimit(t *testing.T) {
	s := "short summary"
	if got := truncateSummary(s); got != s {
		t.Fatalf("expected unchanged summary, got %q", got)
	}
}

func TestTruncateSummaryOverLimit(t *testing.T) {
	long := make([]byte, 250)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateSummary(string(long))
	if len(got) != 200 {
		t.Fatalf("expected truncation to 200 chars, got %d", len(got))
	}
}

func TestToolSummaryBash(t *testing.T) {
	got := toolSummary("Bash", hookToolInput{Command: "go test ./..."})
	if got != "go test ./..." {
		t.Fatalf("expected the bash command, got %q", got)
	}
}

func TestToolSummaryEditPrefersFilePath(t *testing.T) {
	got := toolSummary("Edit", hookToolInput{FilePath: "foo.go", Path: "bar.go"})
	if got != "foo.go" {
		t.Fatalf("expected file_path to win, got %q", got)
	}
}

func TestToolSummaryEditFallsBackToPath(t *testing.T) {
	got := toolSummary("Write", hookToolInput{Path: "bar.go"})
	if got != "bar.go" {
		t.Fatalf("expected path fallback, got %q", got)
	}
}

func TestToolSummaryGrepUsesPattern(t *testing.T) {
	got := toolSummary("Grep", hookToolInput{Pattern: "TODO"})
	if got != "TODO" {
		t.Fatalf("expected the grep pattern, got %q", got)
	}
}

func TestToolSummaryDefaultsToToolName(t *testing.T) {
	got := toolSummary("WebFetch", hookToolInput{})
	if got != "WebFetch" {
		t.Fatalf("expected the tool name fallback, got %q", got)
	}
}
