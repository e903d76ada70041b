package store

import (
	"context"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// runner abstracts over a one-shot graph.Gateway call and a graph.Tx.Run call
// inside a caller-managed transaction, so a read or write helper can share
// one Cypher body whether it runs standalone or is folded into a larger
// atomic transaction (e.g. the Claim Arbiter's read-check-write CAS,
// spec.md §4.5).
type runner interface {
	run(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error)
}

type gatewayReadRunner struct{ g graph.Gateway }

func (r gatewayReadRunner) run(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	return r.g.ReadQuery(ctx, cypher, params)
}

type gatewayWriteRunner struct{ g graph.Gateway }

func (r gatewayWriteRunner) run(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	return r.g.WriteQuery(ctx, cypher, params)
}

type txRunner struct{ tx graph.Tx }

func (r txRunner) run(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	return r.tx.Run(ctx, cypher, params)
}
