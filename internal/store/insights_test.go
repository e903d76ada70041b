package store

import (
	"context"
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// TestRecordInsightFeedbackPassesCommentThrough guards against the comment
// field being silently dropped: POST /analytics/feedback and `ijoka insight
// feedback` both accept an optional comment, and it must reach the Cypher
// bound parameters so last_feedback_comment actually gets set.
func TestRecordInsightFeedbackPassesCommentThrough(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("SET i.feedback_count", func(params map[string]any) ([]graph.Record, error) {
		return nil, nil
	})

	if err := RecordInsightFeedback(context.Background(), gw, "insight_1", true, "worked great on the auth refactor"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gw.Calls) != 1 {
		t.Fatalf("expected exactly one query, got %d", len(gw.Calls))
	}
	got, _ := gw.Calls[0].Params["comment"].(string)
	if got != "worked great on the auth refactor" {
		t.Fatalf("expected comment param to be passed through, got %q", got)
	}
	if gw.Calls[0].Params["helpfulDelta"] != 1 {
		t.Fatalf("expected helpfulDelta 1 for helpful=true, got %v", gw.Calls[0].Params["helpfulDelta"])
	}
}

func TestRecordInsightFeedbackEmptyCommentStillRecordsFeedback(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("SET i.feedback_count", func(params map[string]any) ([]graph.Record, error) {
		return nil, nil
	})

	if err := RecordInsightFeedback(context.Background(), gw, "insight_1", false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.Calls[0].Params["helpfulDelta"] != 0 {
		t.Fatalf("expected helpfulDelta 0 for helpful=false, got %v", gw.Calls[0].Params["helpfulDelta"])
	}
	if gw.Calls[0].Params["comment"] != "" {
		t.Fatalf("expected empty comment param, got %v", gw.Calls[0].Params["comment"])
	}
}
