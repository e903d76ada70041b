package store

import (
	"context"
	"strings"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// GetChildren returns the direct CHILD_OF children of a Feature.
func GetChildren(ctx context.Context, g graph.Gateway, parentID string) ([]*models.Feature, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:CHILD_OF]->(parent:Feature {id: $parentID})
		MATCH (f)-[:BELONGS_TO]->(p:Project)
		RETURN `+featureReturnClause+`
		ORDER BY f.priority DESC, f.created_at ASC
	`, map[string]any{"parentID": parentID})
	if err != nil {
		return nil, err
	}
	return scanFeatures(recs)
}

// GetDescendants returns every Feature reachable via CHILD_OF* below root.
func GetDescendants(ctx context.Context, g graph.Gateway, rootID string) ([]*models.Feature, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:CHILD_OF*1..]->(root:Feature {id: $rootID})
		MATCH (f)-[:BELONGS_TO]->(p:Project)
		OPTIONAL MATCH (f)-[:CHILD_OF]->(parent:Feature)
		RETURN `+featureReturnClause+`
	`, map[string]any{"rootID": rootID})
	if err != nil {
		return nil, err
	}
	return scanFeatures(recs)
}

// GetAncestors returns every Feature reachable from leaf via CHILD_OF*, in
// no defined order. Used by LinkToParent's cycle check (invariant I4).
func GetAncestors(ctx context.Context, g graph.Gateway, leafID string) ([]*models.Feature, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (leaf:Feature {id: $leafID})-[:CHILD_OF*1..]->(a:Feature)
		MATCH (a)-[:BELONGS_TO]->(p:Project)
		OPTIONAL MATCH (a)-[:CHILD_OF]->(parent:Feature)
		RETURN `+featureReturnClause+`
	`, map[string]any{"leafID": leafID})
	if err != nil {
		return nil, err
	}
	return scanFeatures(recs)
}

// LinkToParent links child CHILD_OF parent, rejecting self-parent and any
// link that would introduce a cycle (invariant I4). The ancestor check runs
// before the write so a rejected link never mutates the graph.
func LinkToParent(ctx context.Context, g graph.Gateway, childID, parentID string) error {
	if childID == parentID {
		return &errs.CycleError{ChildID: childID, ParentID: parentID}
	}

	ancestors, err := GetAncestors(ctx, g, parentID)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.ID == childID {
			return &errs.CycleError{ChildID: childID, ParentID: parentID}
		}
	}
	if parentID == childID {
		return &errs.CycleError{ChildID: childID, ParentID: parentID}
	}

	_, err = g.WriteQuery(ctx, `
		MATCH (c:Feature {id: $childID}), (p:Feature {id: $parentID})
		OPTIONAL MATCH (c)-[old:CHILD_OF]->(:Feature)
		DELETE old
		CREATE (c)-[:CHILD_OF]->(p)
		SET c.updated_at = $now
	`, map[string]any{"childID": childID, "parentID": parentID, "now": formatTime(time.Now())})
	return err
}

// UnlinkFromParent removes a Feature's CHILD_OF edge, if any.
func UnlinkFromParent(ctx context.Context, g graph.Gateway, childID string) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (c:Feature {id: $childID})-[r:CHILD_OF]->(:Feature)
		DELETE r
		SET c.updated_at = $now
	`, map[string]any{"childID": childID, "now": formatTime(time.Now())})
	return err
}

// GetDescendantEvents returns events LINKED_TO a Feature or any of its
// descendants, newest first, bounded by limit (spec.md §4.4
// get_descendant_events).
func GetDescendantEvents(ctx context.Context, g graph.Gateway, featureID string, limit int) ([]*models.Event, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature {id: $featureID})
		OPTIONAL MATCH (desc:Feature)-[:CHILD_OF*0..]->(f)
		WITH collect(DISTINCT f) + collect(DISTINCT desc) AS targets
		UNWIND targets AS t
		MATCH (e:Event)-[:LINKED_TO]->(t)
		WITH DISTINCT e
		RETURN `+eventReturnClause+`
		ORDER BY e.timestamp DESC
		LIMIT $limit
	`, map[string]any{"featureID": featureID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return scanEvents(recs)
}

// FindSimilarFeature implements spec.md §4.4's deterministic similarity
// check: exact case-insensitive match, then >60% word-overlap, then
// substring containment — strongest match wins first.
func FindSimilarFeature(ctx context.Context, g graph.Gateway, projectID, description string) (*models.Feature, error) {
	candidates, err := ListFeatures(ctx, g, projectID, "", "")
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(strings.TrimSpace(description))
	targetWords := wordSet(target)

	for _, f := range candidates {
		if strings.ToLower(strings.TrimSpace(f.Description)) == target {
			return f, nil
		}
	}
	for _, f := range candidates {
		candWords := wordSet(strings.ToLower(f.Description))
		if wordOverlapRatio(targetWords, candWords) > 0.6 {
			return f, nil
		}
	}
	for _, f := range candidates {
		lower := strings.ToLower(f.Description)
		if strings.Contains(lower, target) || strings.Contains(target, lower) {
			return f, nil
		}
	}
	return nil, nil
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

func wordOverlapRatio(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for w := range a {
		if b[w] {
			overlap++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(overlap) / float64(denom)
}
