package graph

import "context"

// constraints are the uniqueness/existence constraints the graph store
// depends on. Replayed on every startup by EnsureSchema (the statements carry
// no IF NOT EXISTS clause), standing in for the teacher's goose SQL migrations (there
// is no ordered schema history for a constraint-only graph schema).
var constraints = []string{
	"CREATE CONSTRAINT ON (p:Project) ASSERT p.id IS UNIQUE",
	"CREATE CONSTRAINT ON (s:Session) ASSERT s.id IS UNIQUE",
	"CREATE CONSTRAINT ON (f:Feature) ASSERT f.id IS UNIQUE",
	"CREATE CONSTRAINT ON (st:Step) ASSERT st.id IS UNIQUE",
	"CREATE CONSTRAINT ON (e:Event) ASSERT e.id IS UNIQUE",
	"CREATE CONSTRAINT ON (i:Insight) ASSERT i.id IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints the rest of the package
// assumes are in place (e.g. MERGE-by-id idempotency in internal/store).
// Safe to call on every process start.
func EnsureSchema(ctx context.Context, g Gateway) error {
	for _, stmt := range constraints {
		if _, err := g.WriteQuery(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}
