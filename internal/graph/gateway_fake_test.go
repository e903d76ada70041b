package graph

import (
	"context"
	"testing"
)

func TestFakeGatewayDispatchesToStub(t *testing.T) {
	gw := NewFakeGateway()
	gw.Stub("MATCH (p:Project", func(params map[string]any) ([]Record, error) {
		return []Record{{"id": params["id"]}}, nil
	})

	recs, err := gw.ReadQuery(context.Background(), "MATCH (p:Project {id: $id}) RETURN p", map[string]any{"id": "proj_1"})
	if err != nil {
		t.Fatalf("ReadQuery returned error: %v", err)
	}
	if len(recs) != 1 || recs[0]["id"] != "proj_1" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestFakeGatewayUnregisteredQueryErrors(t *testing.T) {
	gw := NewFakeGateway()
	_, err := gw.ReadQuery(context.Background(), "MATCH (n) RETURN n", nil)
	if err == nil {
		t.Fatal("expected error for unregistered query")
	}
}

func TestFakeGatewayWriteTxRunsAllStatements(t *testing.T) {
	gw := NewFakeGateway()
	var seen []string
	gw.Stub("CREATE", func(params map[string]any) ([]Record, error) {
		seen = append(seen, params["id"].(string))
		return nil, nil
	})

	err := gw.WriteTx(context.Background(), func(tx Tx) error {
		if _, err := tx.Run(context.Background(), "CREATE (f:Feature {id: $id})", map[string]any{"id": "feat_1"}); err != nil {
			return err
		}
		_, err := tx.Run(context.Background(), "CREATE (s:Step {id: $id})", map[string]any{"id": "step_1"})
		return err
	})
	if err != nil {
		t.Fatalf("WriteTx returned error: %v", err)
	}
	if len(seen) != 2 || seen[0] != "feat_1" || seen[1] != "step_1" {
		t.Fatalf("unexpected call sequence: %+v", seen)
	}
}

func TestFakeGatewayLatestStubWins(t *testing.T) {
	gw := NewFakeGateway()
	gw.Stub("MATCH", func(map[string]any) ([]Record, error) {
		return []Record{{"v": "first"}}, nil
	})
	gw.Stub("MATCH", func(map[string]any) ([]Record, error) {
		return []Record{{"v": "second"}}, nil
	})

	recs, err := gw.ReadQuery(context.Background(), "MATCH (n) RETURN n", nil)
	if err != nil {
		t.Fatalf("ReadQuery returned error: %v", err)
	}
	if len(recs) != 1 || recs[0]["v"] != "second" {
		t.Fatalf("expected latest stub to win, got %+v", recs)
	}
}
