package store

import (
	"context"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// AddDependency creates a DEPENDS_ON{kind} edge from f to dependsOn.
func AddDependency(ctx context.Context, g graph.Gateway, featureID, dependsOnID string, kind models.DependencyKind) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (f:Feature {id: $featureID}), (d:Feature {id: $dependsOnID})
		MERGE (f)-[r:DEPENDS_ON]->(d)
		SET r.kind = $kind
	`, map[string]any{"featureID": featureID, "dependsOnID": dependsOnID, "kind": string(kind)})
	return err
}

// NextPendingFeature implements the Claim Arbiter's tie-break selection
// (spec.md §4.5): the next pending Feature whose blocking dependencies are
// all complete, ordered by priority desc, created_at asc.
func NextPendingFeature(ctx context.Context, g graph.Gateway, projectID string) (*models.Feature, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature {status: 'pending'})-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE (f.is_session_work = false OR f.is_session_work IS NULL)
		AND NOT EXISTS {
			MATCH (f)-[r:DEPENDS_ON {kind: 'blocks'}]->(dep:Feature)
			WHERE dep.status <> 'complete'
		}
		`+featureMatchWithParent+`
		RETURN `+featureReturnClause+`
		ORDER BY f.priority DESC, f.created_at ASC
		LIMIT 1
	`, map[string]any{"projectID": projectID})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return scanFeature(recs[0])
}
