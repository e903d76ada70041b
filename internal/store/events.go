package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

const eventReturnClause = `
	e.id AS id, e.event_type AS event_type, e.tool_name AS tool_name, e.payload AS payload,
	e.timestamp AS timestamp, e.source_agent AS source_agent, e.session_id AS session_id,
	e.success AS success, e.summary AS summary`

// InsertEvent creates an Event node keyed by a caller-supplied deterministic
// id (invariant I9) and links TRIGGERED_BY its Session. Re-delivery of the
// same id is a no-op MERGE, satisfying the idempotence property (§8).
func InsertEvent(ctx context.Context, g graph.Gateway, ev *models.Event) error {
	if ev.ID == 0 {
		return &errs.ValidationError{Field: "id", Reason: "must be a non-zero deterministic id"}
	}
	var payload string
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}

	_, err := g.WriteQuery(ctx, `
		MATCH (s:Session {id: $sessionID})
		MERGE (e:Event {id: $id})
		ON CREATE SET e.event_type = $eventType, e.tool_name = $toolName, e.payload = $payload,
		              e.timestamp = $timestamp, e.source_agent = $sourceAgent,
		              e.session_id = $sessionID, e.success = $success, e.summary = $summary
		MERGE (e)-[:TRIGGERED_BY]->(s)
	`, map[string]any{
		"id":          ev.ID,
		"sessionID":   ev.SessionID,
		"eventType":   string(ev.EventType),
		"toolName":    ev.ToolName,
		"payload":     payload,
		"timestamp":   formatTime(ev.Timestamp),
		"sourceAgent": ev.SourceAgent,
		"success":     ev.Success,
		"summary":     ev.Summary,
	})
	return err
}

// LinkEventToFeature adds a LINKED_TO edge from an already-inserted Event to
// a Feature. MERGE makes this additive and idempotent: re-attribution never
// removes a prior edge (spec.md §4.6 linking rules).
func LinkEventToFeature(ctx context.Context, g graph.Gateway, eventID int64, featureID string) (added bool, err error) {
	recs, err := g.WriteQuery(ctx, `
		MATCH (e:Event {id: $eventID}), (f:Feature {id: $featureID})
		OPTIONAL MATCH (e)-[existing:LINKED_TO]->(f)
		WITH e, f, existing
		FOREACH (_ IN CASE WHEN existing IS NULL THEN [1] ELSE [] END |
			MERGE (e)-[:LINKED_TO]->(f)
		)
		RETURN existing IS NULL AS added
	`, map[string]any{"eventID": eventID, "featureID": featureID})
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, &errs.NotFoundError{Entity: "Event/Feature", ID: featureID}
	}
	return getBool(recs[0], "added"), nil
}

// LinkEventToStep sets the event's PART_OF_STEP edge (0..1 relation).
func LinkEventToStep(ctx context.Context, g graph.Gateway, eventID int64, stepID string) error {
	_, err := g.WriteQuery(ctx, `
		MATCH (e:Event {id: $eventID}), (st:Step {id: $stepID})
		MERGE (e)-[:PART_OF_STEP]->(st)
	`, map[string]any{"eventID": eventID, "stepID": stepID})
	return err
}

// GetEvent fetches an Event by id, including its linked feature ids and step.
func GetEvent(ctx context.Context, g graph.Gateway, id int64) (*models.Event, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (e:Event {id: $id})
		OPTIONAL MATCH (e)-[:LINKED_TO]->(f:Feature)
		OPTIONAL MATCH (e)-[:PART_OF_STEP]->(st:Step)
		RETURN `+eventReturnClause+`, collect(DISTINCT f.id) AS feature_ids,
		       coalesce(st.id, '') AS step_id
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Event", ID: int64ToString(id)}
	}
	return scanEventWithLinks(recs[0])
}

// ListSessionWorkEvents returns Events LINKED_TO the given Session-Work
// feature whose tool_name is in toolWhitelist and whose timestamp is after
// since (spec.md §4.10 discover_feature step 2).
func ListSessionWorkEvents(ctx context.Context, g graph.Gateway, sessionWorkFeatureID string, toolWhitelist []string, since time.Time) ([]*models.Event, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (e:Event)-[:LINKED_TO]->(f:Feature {id: $featureID})
		WHERE e.tool_name IN $tools AND e.timestamp > $since
		RETURN `+eventReturnClause+`
		ORDER BY e.timestamp ASC
	`, map[string]any{"featureID": sessionWorkFeatureID, "tools": toAnySlice(toolWhitelist), "since": formatTime(since)})
	if err != nil {
		return nil, err
	}
	return scanEvents(recs)
}

// RecentSessionEvents returns the last N events for a Session, newest
// first, used by the Stuckness Detector (spec.md §4.9).
func RecentSessionEvents(ctx context.Context, g graph.Gateway, sessionID string, limit int) ([]*models.Event, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (e:Event {session_id: $sessionID})
		RETURN `+eventReturnClause+`
		ORDER BY e.timestamp DESC
		LIMIT $limit
	`, map[string]any{"sessionID": sessionID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return scanEvents(recs)
}

// CountEventsForStep returns the number of Events PART_OF_STEP the given
// Step, used by the Stuckness Detector's step-stall signal (spec.md §4.9).
func CountEventsForStep(ctx context.Context, g graph.Gateway, stepID string) (int, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (e:Event)-[:PART_OF_STEP]->(st:Step {id: $stepID})
		RETURN count(e) AS n
	`, map[string]any{"stepID": stepID})
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	return getInt(recs[0], "n"), nil
}

func scanEvent(rec graph.Record) (*models.Event, error) {
	ts, err := getTime(rec, "timestamp")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	var payload json.RawMessage
	if s := getString(rec, "payload"); s != "" {
		payload = json.RawMessage(s)
	}
	return &models.Event{
		ID:          int64(getInt(rec, "id")),
		EventType:   models.EventType(getString(rec, "event_type")),
		ToolName:    getString(rec, "tool_name"),
		Payload:     payload,
		Timestamp:   ts,
		SourceAgent: getString(rec, "source_agent"),
		SessionID:   getString(rec, "session_id"),
		Success:     getBool(rec, "success"),
		Summary:     getString(rec, "summary"),
	}, nil
}

func scanEventWithLinks(rec graph.Record) (*models.Event, error) {
	ev, err := scanEvent(rec)
	if err != nil {
		return nil, err
	}
	ev.FeatureIDs = getStringSlice(rec, "feature_ids")
	ev.StepID = getString(rec, "step_id")
	return ev, nil
}

func scanEvents(recs []graph.Record) ([]*models.Event, error) {
	out := make([]*models.Event, 0, len(recs))
	for _, rec := range recs {
		ev, err := scanEvent(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func int64ToString(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
