package analytics

import (
	"context"
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func TestClassifyQueryOrdersVelocityBeforeOthers(t *testing.T) {
	cases := []struct {
		text string
		want QueryType
	}{
		{"how fast is our velocity this week", QueryVelocity},
		{"what's blocking feature work", QueryBottlenecks},
		{"who is our best agent", QueryProfile},
		{"what's the common workflow pattern", QueryPatterns},
		{"tell me something interesting", QueryGeneral},
	}
	for _, c := range cases {
		if got := ClassifyQuery(c.text); got != c.want {
			t.Errorf("ClassifyQuery(%q) = %s, want %s", c.text, got, c.want)
		}
	}
}

func TestExtractWindowDays(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"velocity this month", 30},
		{"over the past two weeks", 14},
		{"over the past 2 weeks", 14},
		{"what happened today", 1},
		{"how's our velocity", 7},
	}
	for _, c := range cases {
		if got := ExtractWindowDays(c.text); got != c.want {
			t.Errorf("ExtractWindowDays(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestExtractAgent(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"how's codex doing", "codex"},
		{"show my stats", "claude-code"},
		{"My performance this week", "claude-code"},
		{"what's the velocity", ""},
	}
	for _, c := range cases {
		if got := ExtractAgent(c.text); got != c.want {
			t.Errorf("ExtractAgent(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestRunQueryVelocityBranch(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})

	resp, err := RunQuery(context.Background(), gw, "proj_1", "how's our velocity today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.QueryType != QueryVelocity || !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Data["window_days"] != 1 {
		t.Fatalf("expected window_days 1 for 'today', got %+v", resp.Data["window_days"])
	}
}

func TestRunQueryProfileBranchExtractsNamedAgent(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		if params["agent"] != "codex" {
			t.Fatalf("expected agent param 'codex', got %v", params["agent"])
		}
		return []graph.Record{}, nil
	})

	resp, err := RunQuery(context.Background(), gw, "proj_1", "what is codex's performance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.QueryType != QueryProfile {
		t.Fatalf("expected profile query type, got %s", resp.QueryType)
	}
	if _, ok := resp.Data["profile"]; !ok {
		t.Fatalf("expected a single profile in the response data, got %+v", resp.Data)
	}
}

func TestRunQueryGeneralBranchAggregatesViews(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})
	gw.Stub("MATCH (st:Step)-[:BELONGS_TO]->(f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})

	resp, err := RunQuery(context.Background(), gw, "proj_1", "tell me something interesting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.QueryType != QueryGeneral {
		t.Fatalf("expected general query type, got %s", resp.QueryType)
	}
	if _, ok := resp.Data["bottlenecks"]; !ok {
		t.Fatalf("expected bottlenecks in general response data, got %+v", resp.Data)
	}
}
