package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

const featureReturnClause = `
	f.id AS id, f.description AS description, f.category AS category, f.type AS type,
	f.status AS status, f.priority AS priority, f.steps AS steps, f.file_patterns AS file_patterns,
	f.branch_hint AS branch_hint, f.work_count AS work_count, f.assigned_agent AS assigned_agent,
	f.claiming_session_id AS claiming_session_id, f.claiming_agent AS claiming_agent,
	f.claimed_at AS claimed_at, f.block_reason AS block_reason, f.is_primary AS is_primary,
	f.is_session_work AS is_session_work, f.completion_criteria AS completion_criteria,
	f.created_at AS created_at, f.updated_at AS updated_at, f.completed_at AS completed_at,
	coalesce(parent.id, '') AS parent_id, p.id AS project_id`

const featureMatchWithParent = `
	OPTIONAL MATCH (f)-[:CHILD_OF]->(parent:Feature)
	MATCH (f)-[:BELONGS_TO]->(p:Project)`

// CreateFeature inserts a new Feature (spec.md §3, §4.4).
func CreateFeature(ctx context.Context, g graph.Gateway, f *models.Feature) (*models.Feature, error) {
	if f.ProjectID == "" {
		return nil, &errs.ValidationError{Field: "project_id", Reason: "must not be empty"}
	}
	if f.Description == "" {
		return nil, &errs.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	now := time.Now()
	id := models.NewID("feat")

	criteriaJSON, err := encodeCriteria(f.CompletionCriteria)
	if err != nil {
		return nil, &errs.ValidationError{Field: "completion_criteria", Reason: err.Error()}
	}

	recs, err := g.WriteQuery(ctx, `
		MATCH (p:Project {id: $projectID})
		CREATE (f:Feature {
			id: $id, description: $description, category: $category, type: $type,
			status: $status, priority: $priority, steps: $steps, file_patterns: $filePatterns,
			branch_hint: $branchHint, work_count: 0, assigned_agent: $assignedAgent,
			is_primary: $isPrimary, is_session_work: $isSessionWork,
			completion_criteria: $completionCriteria, created_at: $now, updated_at: $now
		})
		CREATE (f)-[:BELONGS_TO]->(p)
		WITH f, p
		`+featureMatchWithParent+`
		RETURN `+featureReturnClause+`
	`, map[string]any{
		"projectID":          f.ProjectID,
		"id":                 id,
		"description":        f.Description,
		"category":           f.Category,
		"type":               string(f.Type),
		"status":             string(f.Status),
		"priority":           f.Priority,
		"steps":              toAnySlice(f.Steps),
		"filePatterns":       toAnySlice(f.FilePatterns),
		"branchHint":         f.BranchHint,
		"assignedAgent":      f.AssignedAgent,
		"isPrimary":          f.IsPrimary,
		"isSessionWork":      f.IsSessionWork,
		"completionCriteria": criteriaJSON,
		"now":                formatTime(now),
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Project", ID: f.ProjectID}
	}
	return scanFeature(recs[0])
}

// GetFeature fetches a Feature by id.
func GetFeature(ctx context.Context, g graph.Gateway, id string) (*models.Feature, error) {
	return getFeature(ctx, gatewayReadRunner{g}, id)
}

// GetFeatureTx is GetFeature's transaction-scoped variant, for callers that
// must fold the read into a larger atomic write (e.g. the Claim Arbiter's
// read-check-write CAS, spec.md §4.5).
func GetFeatureTx(ctx context.Context, tx graph.Tx, id string) (*models.Feature, error) {
	return getFeature(ctx, txRunner{tx}, id)
}

func getFeature(ctx context.Context, r runner, id string) (*models.Feature, error) {
	recs, err := r.run(ctx, `
		MATCH (f:Feature {id: $id})
		`+featureMatchWithParent+`
		RETURN `+featureReturnClause+`
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Feature", ID: id}
	}
	return scanFeature(recs[0])
}

// ListFeatures returns features in a project, optionally filtered by status
// and/or category (spec.md §6 GET /features).
func ListFeatures(ctx context.Context, g graph.Gateway, projectID, status, category string) ([]*models.Feature, error) {
	cypher := `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE ($status = '' OR f.status = $status)
		  AND ($category = '' OR f.category = $category)
		` + featureMatchWithParent + `
		RETURN ` + featureReturnClause + `
		ORDER BY f.priority DESC, f.created_at ASC`

	recs, err := g.ReadQuery(ctx, cypher, map[string]any{
		"projectID": projectID, "status": status, "category": category,
	})
	if err != nil {
		return nil, err
	}
	return scanFeatures(recs)
}

// GetSessionWorkFeature returns the project's sentinel Session-Work Feature,
// creating it if missing (spec.md §4.6(a), invariant I1).
func GetSessionWorkFeature(ctx context.Context, g graph.Gateway, projectID string) (*models.Feature, error) {
	now := formatTime(time.Now())
	recs, err := g.WriteQuery(ctx, `
		MATCH (p:Project {id: $projectID})
		MERGE (f:Feature {project_ref: $projectID, is_session_work: true})
		ON CREATE SET f.id = $id, f.description = 'Session work', f.category = 'session-work',
		              f.type = 'chore', f.status = 'pending', f.priority = 0, f.work_count = 0,
		              f.is_primary = false, f.created_at = $now, f.updated_at = $now
		MERGE (f)-[:BELONGS_TO]->(p)
		WITH f, p
		`+featureMatchWithParent+`
		RETURN `+featureReturnClause+`
	`, map[string]any{"projectID": projectID, "id": models.NewID("feat"), "now": now})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Project", ID: projectID}
	}
	return scanFeature(recs[0])
}

// ListInProgressFeatures returns all in_progress Features in a project, for
// the Attribution Engine's scored matcher (spec.md §4.6(d)).
func ListInProgressFeatures(ctx context.Context, g graph.Gateway, projectID string) ([]*models.Feature, error) {
	return ListFeatures(ctx, g, projectID, string(models.FeatureStatusInProgress), "")
}

// UpdateFeatureFields applies a partial update (spec.md §6 PATCH /features/{id}).
func UpdateFeatureFields(ctx context.Context, g graph.Gateway, id string, fields map[string]any) (*models.Feature, error) {
	return updateFeatureFields(ctx, gatewayWriteRunner{g}, id, fields)
}

// UpdateFeatureFieldsTx is UpdateFeatureFields's transaction-scoped variant.
func UpdateFeatureFieldsTx(ctx context.Context, tx graph.Tx, id string, fields map[string]any) (*models.Feature, error) {
	return updateFeatureFields(ctx, txRunner{tx}, id, fields)
}

func updateFeatureFields(ctx context.Context, r runner, id string, fields map[string]any) (*models.Feature, error) {
	fields["updated_at"] = formatTime(time.Now())
	recs, err := r.run(ctx, `
		MATCH (f:Feature {id: $id})
		SET f += $fields
		WITH f
		`+featureMatchWithParent+`
		RETURN `+featureReturnClause+`
	`, map[string]any{"id": id, "fields": fields})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Feature", ID: id}
	}
	return scanFeature(recs[0])
}

// IncrementWorkCount adds delta to a Feature's work_count (spec.md §4.6
// linking rules, §4.8).
func IncrementWorkCount(ctx context.Context, g graph.Gateway, id string, delta int) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (f:Feature {id: $id})
		SET f.work_count = coalesce(f.work_count, 0) + $delta, f.updated_at = $now
	`, map[string]any{"id": id, "delta": delta, "now": formatTime(time.Now())})
	return err
}

// DeleteFeature hard-deletes a Feature and its Steps (spec.md §3 lifecycle:
// "archival hard-deletes the Feature and its Steps").
func DeleteFeature(ctx context.Context, g graph.Gateway, id string) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (f:Feature {id: $id})
		OPTIONAL MATCH (st:Step)-[:BELONGS_TO]->(f)
		DETACH DELETE st, f
	`, map[string]any{"id": id})
	return err
}

func encodeCriteria(c *models.CompletionCriteria) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeCriteria(rec graph.Record) *models.CompletionCriteria {
	s := getString(rec, "completion_criteria")
	if s == "" {
		return nil
	}
	var c models.CompletionCriteria
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil
	}
	return &c
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func scanFeature(rec graph.Record) (*models.Feature, error) {
	createdAt, err := getTime(rec, "created_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	updatedAt, err := getTime(rec, "updated_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	claimedAt, err := getTimePtr(rec, "claimed_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	completedAt, err := getTimePtr(rec, "completed_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	return &models.Feature{
		ID:                 getString(rec, "id"),
		ProjectID:          getString(rec, "project_id"),
		Description:        getString(rec, "description"),
		Category:           getString(rec, "category"),
		Type:               models.FeatureType(getString(rec, "type")),
		Status:             models.FeatureStatus(getString(rec, "status")),
		Priority:           getInt(rec, "priority"),
		Steps:              getStringSlice(rec, "steps"),
		FilePatterns:       getStringSlice(rec, "file_patterns"),
		BranchHint:         getString(rec, "branch_hint"),
		WorkCount:          getInt(rec, "work_count"),
		AssignedAgent:      getString(rec, "assigned_agent"),
		ClaimingSessionID:  getString(rec, "claiming_session_id"),
		ClaimingAgent:      getString(rec, "claiming_agent"),
		ClaimedAt:          claimedAt,
		BlockReason:        models.BlockReason(getString(rec, "block_reason")),
		ParentID:           getString(rec, "parent_id"),
		IsPrimary:          getBool(rec, "is_primary"),
		IsSessionWork:      getBool(rec, "is_session_work"),
		CompletionCriteria: decodeCriteria(rec),
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
		CompletedAt:        completedAt,
	}, nil
}

func scanFeatures(recs []graph.Record) ([]*models.Feature, error) {
	out := make([]*models.Feature, 0, len(recs))
	for _, rec := range recs {
		f, err := scanFeature(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
