package commands

import (
	"testing"
	"time"
)

func TestEveryDurationFormatsCronSpec(t *testing.T) {
	if got := everyDuration(5 * time.Minute); got != "@every 5m0s" {
		t.Fatalf("expected %q, got %q", "@every 5m0s", got)
	}
}
