package commands

import "testing"

func TestSessionIDFromEnvReadsIjokaSessionID(t *testing.T) {
	t.Setenv("IJOKA_SESSION_ID", "")
	if got := sessionIDFromEnv(); got != "" {
		t.Fatalf("expected empty session id when unset, got %q", got)
	}

	t.Setenv("IJOKA_SESSION_ID", "sess_123")
	if got := sessionIDFromEnv(); got != "sess_123" {
		t.Fatalf("expected %q, got %q", "sess_123", got)
	}
}
