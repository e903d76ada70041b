package store

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

const stepReturnClause = `
	st.id AS id, st.description AS description, st.status AS status,
	st.step_order AS step_order, st.expected_tools AS expected_tools,
	st.created_at AS created_at, st.started_at AS started_at, st.completed_at AS completed_at`

// SetPlan atomically replaces all Steps for a Feature with a new ordered
// list: DETACH DELETE the old set, then CREATE the new one, in a single
// write transaction (spec.md §4.7 "Set plan").
func SetPlan(ctx context.Context, g graph.Gateway, featureID string, descriptions []string) ([]*models.Step, error) {
	now := formatTime(time.Now())

	err := g.WriteTx(ctx, func(tx graph.Tx) error {
		if _, err := tx.Run(ctx, `
			MATCH (f:Feature {id: $featureID})
			OPTIONAL MATCH (st:Step)-[:BELONGS_TO]->(f)
			DETACH DELETE st
		`, map[string]any{"featureID": featureID}); err != nil {
			return err
		}

		for i, desc := range descriptions {
			if _, err := tx.Run(ctx, `
				MATCH (f:Feature {id: $featureID})
				CREATE (st:Step {
					id: $id, description: $description, status: 'pending',
					step_order: $order, created_at: $now
				})
				CREATE (st)-[:BELONGS_TO]->(f)
			`, map[string]any{
				"featureID":   featureID,
				"id":          models.NewID("step"),
				"description": desc,
				"order":       i,
				"now":         now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ListSteps(ctx, g, featureID)
}

// ListSteps returns a Feature's Steps in step_order.
func ListSteps(ctx context.Context, g graph.Gateway, featureID string) ([]*models.Step, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (st:Step)-[:BELONGS_TO]->(f:Feature {id: $featureID})
		RETURN `+stepReturnClause+`
		ORDER BY st.step_order ASC
	`, map[string]any{"featureID": featureID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Step, 0, len(recs))
	for _, rec := range recs {
		st, err := scanStep(rec)
		if err != nil {
			return nil, err
		}
		st.FeatureID = featureID
		out = append(out, st)
	}
	return out, nil
}

// UpdateStepStatus transitions a Step's status, stamping started_at /
// completed_at as appropriate (spec.md §4.7 state transitions). feature_id
// is never read from a node property — only from the BELONGS_TO edge — per
// the canonical resolution of the source's divergent implementations
// (spec.md §9 Open Question).
func UpdateStepStatus(ctx context.Context, g graph.Gateway, stepID string, status models.StepStatus) (*models.Step, error) {
	now := formatTime(time.Now())
	recs, err := g.WriteQuery(ctx, `
		MATCH (st:Step {id: $id})-[:BELONGS_TO]->(f:Feature)
		SET st.status = $status
		SET st.started_at = CASE WHEN $status = 'in_progress' AND st.started_at IS NULL THEN $now ELSE st.started_at END
		SET st.completed_at = CASE WHEN $status = 'completed' THEN $now ELSE st.completed_at END
		RETURN `+stepReturnClause+`, f.id AS feature_id
	`, map[string]any{"id": stepID, "status": string(status), "now": now})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Step", ID: stepID}
	}
	st, err := scanStep(recs[0])
	if err != nil {
		return nil, err
	}
	st.FeatureID = getString(recs[0], "feature_id")
	return st, nil
}

// CreateStep adds a single Step, used by TodoWrite sync for newly
// introduced todos (spec.md §4.7).
func CreateStep(ctx context.Context, g graph.Gateway, featureID, description string, order int) (*models.Step, error) {
	now := formatTime(time.Now())
	recs, err := g.WriteQuery(ctx, `
		MATCH (f:Feature {id: $featureID})
		CREATE (st:Step {id: $id, description: $description, status: 'pending', step_order: $order, created_at: $now})
		CREATE (st)-[:BELONGS_TO]->(f)
		RETURN `+stepReturnClause+`
	`, map[string]any{"featureID": featureID, "id": models.NewID("step"), "description": description, "order": order, "now": now})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Feature", ID: featureID}
	}
	st, err := scanStep(recs[0])
	if err != nil {
		return nil, err
	}
	st.FeatureID = featureID
	return st, nil
}

func scanStep(rec graph.Record) (*models.Step, error) {
	createdAt, err := getTime(rec, "created_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	startedAt, err := getTimePtr(rec, "started_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	completedAt, err := getTimePtr(rec, "completed_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	return &models.Step{
		ID:            getString(rec, "id"),
		Description:   getString(rec, "description"),
		Status:        models.StepStatus(getString(rec, "status")),
		StepOrder:     getInt(rec, "step_order"),
		ExpectedTools: getStringSlice(rec, "expected_tools"),
		CreatedAt:     createdAt,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
	}, nil
}
