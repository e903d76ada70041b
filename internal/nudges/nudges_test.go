package nudges

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

func TestCriteriaMetBuild(t *testing.T) {
	f := &models.Feature{CompletionCriteria: &models.CompletionCriteria{Type: models.CompletionCriteriaBuild}}
	assert.True(t, criteriaMet(f, "npm run build", true))
	assert.False(t, criteriaMet(f, "npm run build", false))
	assert.False(t, criteriaMet(f, "git status", true))
}

func TestCriteriaMetTest(t *testing.T) {
	f := &models.Feature{CompletionCriteria: &models.CompletionCriteria{Type: models.CompletionCriteriaTest}}
	assert.True(t, criteriaMet(f, "pytest -q", true))
	assert.False(t, criteriaMet(f, "pytest -q", false))
}

func TestCriteriaMetWorkCount(t *testing.T) {
	f := &models.Feature{
		WorkCount:          3,
		CompletionCriteria: &models.CompletionCriteria{Type: models.CompletionCriteriaWorkCount, Threshold: 3},
	}
	assert.True(t, criteriaMet(f, "", false))

	f.WorkCount = 2
	assert.False(t, criteriaMet(f, "", false))
}

func TestCriteriaMetManualNeverFires(t *testing.T) {
	f := &models.Feature{CompletionCriteria: &models.CompletionCriteria{Type: models.CompletionCriteriaManual}}
	assert.False(t, criteriaMet(f, "npm run build && pytest && cargo test", true))
}

func TestIsTestOrBuildCommand(t *testing.T) {
	assert.True(t, isTestOrBuildCommand("go test ./..."))
	assert.True(t, isTestOrBuildCommand("cargo build --release"))
	assert.False(t, isTestOrBuildCommand("git commit -m wip"))
}

func TestIsGitCommit(t *testing.T) {
	assert.True(t, isGitCommit(&models.Event{ToolName: "Bash", Summary: "git commit -m 'wip'"}))
	assert.False(t, isGitCommit(&models.Event{ToolName: "Bash", Summary: "git status"}))
}

func TestCheckCommitReminderFiresAfterFiveEditsWithNoCommit(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (e:Event {session_id:", func(params map[string]any) ([]graph.Record, error) {
		recs := make([]graph.Record, 0, 5)
		for i := 0; i < 5; i++ {
			recs = append(recs, graph.Record{
				"id": int64(i + 1), "event_type": string(models.EventTypeToolCall), "tool_name": "Edit",
				"payload": "", "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
				"source_agent": "", "session_id": "sess_1", "success": true, "summary": "foo.go",
			})
		}
		return recs, nil
	})

	sess := &models.Session{ID: "sess_1"}
	fired, err := CheckCommitReminder(context.Background(), gw, sess)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestCheckCommitReminderSkipsIfAlreadyShown(t *testing.T) {
	gw := graph.NewFakeGateway()
	sess := &models.Session{ID: "sess_1", NudgesShown: []string{NudgeCommitReminder}}
	fired, err := CheckCommitReminder(context.Background(), gw, sess)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestCheckCommitReminderStopsAtCommit(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (e:Event {session_id:", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{
			{
				"id": int64(1), "event_type": string(models.EventTypeToolCall), "tool_name": "Edit",
				"payload": "", "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
				"source_agent": "", "session_id": "sess_1", "success": true, "summary": "foo.go",
			},
			{
				"id": int64(2), "event_type": string(models.EventTypeToolCall), "tool_name": "Bash",
				"payload": "", "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
				"source_agent": "", "session_id": "sess_1", "success": true, "summary": "git commit -m wip",
			},
		}, nil
	})

	sess := &models.Session{ID: "sess_1"}
	fired, err := CheckCommitReminder(context.Background(), gw, sess)
	require.NoError(t, err)
	assert.False(t, fired)
}
