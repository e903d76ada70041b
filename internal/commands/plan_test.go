package commands

import (
	"context"
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
)

func TestResolvePlanFeatureIDUsesExplicitID(t *testing.T) {
	gw := graph.NewFakeGateway()
	got, err := resolvePlanFeatureID(context.Background(), gw, "proj_1", "f_explicit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "f_explicit" {
		t.Fatalf("expected explicit feature id to pass through, got %q", got)
	}
	if len(gw.Calls) != 0 {
		t.Fatalf("expected no graph calls when an explicit id is given, got %d", len(gw.Calls))
	}
}

func TestResolvePlanFeatureIDErrorsWhenNoActiveFeature(t *testing.T) {
	gw := graph.NewFakeGateway()
	gw.Stub("MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})", func(params map[string]any) ([]graph.Record, error) {
		return []graph.Record{}, nil
	})

	_, err := resolvePlanFeatureID(context.Background(), gw, "proj_1", "")
	if err == nil {
		t.Fatal("expected an error when no active feature exists")
	}
	var notFound *errs.NotFoundError
	if !errs.As(err, &notFound) {
		t.Fatalf("expected a NotFoundError, got %T: %v", err, err)
	}
	if notFound.ID != "active" {
		t.Fatalf("expected NotFoundError.ID %q, got %q", "active", notFound.ID)
	}
}
