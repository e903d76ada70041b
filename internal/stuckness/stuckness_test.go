package stuckness

import (
	"context"
	"testing"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

func TestEditWriteAgeSignalNoEvents(t *testing.T) {
	if _, ok := editWriteAgeSignal(nil, time.Now(), 5*time.Minute); ok {
		t.Fatal("expected no signal for an empty event history")
	}
}

func TestEditWriteAgeSignalNoEditWriteAtAll(t *testing.T) {
	now := time.Now()
	events := []*models.Event{{ToolName: "Bash", Timestamp: now}}
	if _, ok := editWriteAgeSignal(events, now, 5*time.Minute); !ok {
		t.Fatal("expected a signal when no Edit/Write has ever occurred")
	}
}

func TestEditWriteAgeSignalRecentEdit(t *testing.T) {
	now := time.Now()
	events := []*models.Event{{ToolName: "Edit", Timestamp: now.Add(-1 * time.Minute)}}
	if _, ok := editWriteAgeSignal(events, now, 5*time.Minute); ok {
		t.Fatal("expected no signal: edit is within the threshold")
	}
}

func TestEditWriteAgeSignalStaleEdit(t *testing.T) {
	now := time.Now()
	events := []*models.Event{{ToolName: "Write", Timestamp: now.Add(-10 * time.Minute)}}
	if _, ok := editWriteAgeSignal(events, now, 5*time.Minute); !ok {
		t.Fatal("expected a signal: edit is older than the threshold")
	}
}

func TestRepetitionSignalFires(t *testing.T) {
	events := []*models.Event{
		{ToolName: "Bash", Summary: "go test ./..."},
		{ToolName: "Bash", Summary: "go test ./..."},
		{ToolName: "Bash", Summary: "go test ./..."},
		{ToolName: "Bash", Summary: "go test ./..."},
	}
	if _, ok := repetitionSignal(events, 4, 2); !ok {
		t.Fatal("expected repetition signal for 4 identical Bash calls")
	}
}

func TestRepetitionSignalDoesNotFireOnVariedCommands(t *testing.T) {
	events := []*models.Event{
		{ToolName: "Bash", Summary: "go test ./..."},
		{ToolName: "Bash", Summary: "go build ./..."},
		{ToolName: "Bash", Summary: "git status"},
		{ToolName: "Bash", Summary: "git diff"},
	}
	if _, ok := repetitionSignal(events, 4, 2); ok {
		t.Fatal("expected no signal: four distinct command prefixes")
	}
}

func TestDetectNotStuckWithFreshActivityAndNoFeature(t *testing.T) {
	gw := graph.NewFakeGateway()
	now := time.Now()
	gw.Stub("MATCH (e:Event {session_id:", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{
				"id": int64(1), "event_type": string(models.EventTypeToolCall), "tool_name": "Edit",
				"payload": "", "timestamp": now.Add(-1 * time.Minute).UTC().Format(time.RFC3339Nano),
				"source_agent": "", "session_id": "sess_1", "success": true, "summary": "foo.go",
			},
		}, nil
	})

	result, err := Detect(context.Background(), gw, "sess_1", "", now)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if result.Stuck {
		t.Fatalf("expected not stuck, got %+v", result)
	}
}

func TestDetectStuckOnStaleEditWrite(t *testing.T) {
	gw := graph.NewFakeGateway()
	now := time.Now()
	gw.Stub("MATCH (e:Event {session_id:", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{
				"id": int64(1), "event_type": string(models.EventTypeToolCall), "tool_name": "Edit",
				"payload": "", "timestamp": now.Add(-20 * time.Minute).UTC().Format(time.RFC3339Nano),
				"source_agent": "", "session_id": "sess_1", "success": true, "summary": "foo.go",
			},
		}, nil
	})

	result, err := Detect(context.Background(), gw, "sess_1", "", now)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if !result.Stuck {
		t.Fatal("expected stuck: last Edit/Write is well past the strong threshold")
	}
}
