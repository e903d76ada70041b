package store

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// StartSession upserts a Session with status=active, links IN_PROJECT, and
// links CONTINUED_FROM to the latest prior session in the project, if any
// (spec.md §4.3 start_session). Idempotent on sessionID.
func StartSession(ctx context.Context, g graph.Gateway, sessionID, agent, projectID string, startCommit string, isSubagent bool) (*models.Session, error) {
	now := formatTime(time.Now())

	recs, err := g.WriteQuery(ctx, `
		MATCH (p:Project {id: $projectID})
		MERGE (s:Session {id: $sessionID})
		ON CREATE SET s.agent = $agent, s.status = 'active', s.started_at = $now,
		              s.last_activity = $now, s.event_count = 0, s.is_subagent = $isSubagent,
		              s.start_commit = $startCommit
		ON MATCH SET s.status = 'active', s.last_activity = $now
		MERGE (s)-[:IN_PROJECT]->(p)
		WITH s, p
		OPTIONAL MATCH (prev:Session)-[:IN_PROJECT]->(p)
		WHERE prev.id <> s.id AND prev.started_at < s.started_at
		WITH s, prev ORDER BY prev.started_at DESC LIMIT 1
		FOREACH (_ IN CASE WHEN prev IS NOT NULL THEN [1] ELSE [] END |
			MERGE (s)-[:CONTINUED_FROM]->(prev)
		)
		RETURN s.id AS id, s.agent AS agent, s.status AS status, s.started_at AS started_at,
		       s.last_activity AS last_activity, s.ended_at AS ended_at, s.event_count AS event_count,
		       s.is_subagent AS is_subagent, s.start_commit AS start_commit,
		       s.active_feature_id AS active_feature_id, s.classified_at AS classified_at,
		       s.classification_source AS classification_source, s.last_prompt AS last_prompt,
		       s.nudges_shown AS nudges_shown, $projectID AS project_id,
		       coalesce(prev.id, '') AS continued_from_id
	`, map[string]any{
		"projectID":   projectID,
		"sessionID":   sessionID,
		"agent":       agent,
		"now":         now,
		"isSubagent":  isSubagent,
		"startCommit": startCommit,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Project", ID: projectID}
	}
	return scanSession(recs[0])
}

// EndSession sets status=ended and stamps ended_at (spec.md §4.3 end_session).
func EndSession(ctx context.Context, g graph.Gateway, sessionID string) error {
	now := formatTime(time.Now())
	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $id})
		SET s.status = 'ended', s.ended_at = $now
	`, map[string]any{"id": sessionID, "now": now})
	return err
}

// UpdateSessionActivity refreshes last_activity and increments event_count
// (spec.md §4.3 update_session_activity). Called once per ingested event.
func UpdateSessionActivity(ctx context.Context, g graph.Gateway, sessionID string) error {
	now := formatTime(time.Now())
	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $id})
		SET s.last_activity = $now, s.event_count = coalesce(s.event_count, 0) + 1
	`, map[string]any{"id": sessionID, "now": now})
	return err
}

// GetSession fetches a Session by id.
func GetSession(ctx context.Context, g graph.Gateway, sessionID string) (*models.Session, error) {
	return getSession(ctx, gatewayReadRunner{g}, sessionID)
}

// GetSessionTx is GetSession's transaction-scoped variant, for callers that
// must fold the read into a larger atomic write (e.g. the Claim Arbiter's
// read-check-write CAS, spec.md §4.5).
func GetSessionTx(ctx context.Context, tx graph.Tx, sessionID string) (*models.Session, error) {
	return getSession(ctx, txRunner{tx}, sessionID)
}

func getSession(ctx context.Context, r runner, sessionID string) (*models.Session, error) {
	recs, err := r.run(ctx, `
		MATCH (s:Session {id: $id})
		OPTIONAL MATCH (s)-[:IN_PROJECT]->(p:Project)
		OPTIONAL MATCH (s)-[:CONTINUED_FROM]->(prev:Session)
		RETURN s.id AS id, s.agent AS agent, s.status AS status, s.started_at AS started_at,
		       s.last_activity AS last_activity, s.ended_at AS ended_at, s.event_count AS event_count,
		       s.is_subagent AS is_subagent, s.start_commit AS start_commit,
		       s.active_feature_id AS active_feature_id, s.classified_at AS classified_at,
		       s.classification_source AS classification_source, s.last_prompt AS last_prompt,
		       s.nudges_shown AS nudges_shown, coalesce(p.id, '') AS project_id,
		       coalesce(prev.id, '') AS continued_from_id
	`, map[string]any{"id": sessionID})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Session", ID: sessionID}
	}
	return scanSession(recs[0])
}

// SetSessionClassification caches the Attribution Engine's UserPromptSubmit
// decision on the Session node (spec.md §4.6(c)/(e)): soft state, last
// writer wins.
func SetSessionClassification(ctx context.Context, g graph.Gateway, sessionID, featureID, source, prompt string) error {
	now := formatTime(time.Now())
	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $id})
		SET s.active_feature_id = $featureID, s.classification_source = $source,
		    s.classified_at = $now, s.last_prompt = $prompt
	`, map[string]any{"id": sessionID, "featureID": featureID, "source": source, "now": now, "prompt": prompt})
	return err
}

// AddNudgeShown records a nudge key as shown for this session, idempotently
// (spec.md §4.8).
func AddNudgeShown(ctx context.Context, g graph.Gateway, sessionID, nudgeKey string) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $id})
		SET s.nudges_shown = CASE WHEN $key IN coalesce(s.nudges_shown, [])
		                          THEN s.nudges_shown
		                          ELSE coalesce(s.nudges_shown, []) + $key END
	`, map[string]any{"id": sessionID, "key": nudgeKey})
	return err
}

// LatestSessionActivity returns the most recent Event timestamp for a
// session, used as the Claim Arbiter's fallback staleness check when the
// Session node's own last_activity is missing (spec.md §4.5).
func LatestSessionActivity(ctx context.Context, g graph.Gateway, sessionID string) (*time.Time, error) {
	return latestSessionActivity(ctx, gatewayReadRunner{g}, sessionID)
}

// LatestSessionActivityTx is LatestSessionActivity's transaction-scoped
// variant, for callers that must fold the read into a larger atomic write
// (e.g. the Claim Arbiter's read-check-write CAS, spec.md §4.5).
func LatestSessionActivityTx(ctx context.Context, tx graph.Tx, sessionID string) (*time.Time, error) {
	return latestSessionActivity(ctx, txRunner{tx}, sessionID)
}

func latestSessionActivity(ctx context.Context, r runner, sessionID string) (*time.Time, error) {
	recs, err := r.run(ctx, `
		MATCH (e:Event {session_id: $id})
		RETURN e.timestamp AS ts
		ORDER BY e.timestamp DESC LIMIT 1
	`, map[string]any{"id": sessionID})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return getTimePtr(recs[0], "ts")
}

func scanSession(rec graph.Record) (*models.Session, error) {
	startedAt, err := getTime(rec, "started_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	lastActivity, err := getTime(rec, "last_activity")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	endedAt, err := getTimePtr(rec, "ended_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	classifiedAt, err := getTimePtr(rec, "classified_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	return &models.Session{
		ID:                   getString(rec, "id"),
		Agent:                getString(rec, "agent"),
		Status:               models.SessionStatus(getString(rec, "status")),
		StartedAt:            startedAt,
		LastActivity:         lastActivity,
		EndedAt:              endedAt,
		EventCount:           getInt(rec, "event_count"),
		IsSubagent:           getBool(rec, "is_subagent"),
		StartCommit:          getString(rec, "start_commit"),
		ActiveFeatureID:      getString(rec, "active_feature_id"),
		ClassifiedAt:         classifiedAt,
		ClassificationSource: getString(rec, "classification_source"),
		LastPrompt:           getString(rec, "last_prompt"),
		NudgesShown:          getStringSlice(rec, "nudges_shown"),
		ProjectID:            getString(rec, "project_id"),
		ContinuedFromID:      getString(rec, "continued_from_id"),
	}, nil
}
