package store

import (
	"context"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

// EmitStatusEvent appends a StatusEvent and sets Feature.status to toStatus
// in the same write, keeping invariant I3 (status is a materialised view of
// the latest StatusEvent) true by construction rather than by a separate
// read-then-derive step.
func EmitStatusEvent(ctx context.Context, g graph.Gateway, featureID, fromStatus, toStatus, by, sessionID, reason string) (*models.StatusEvent, error) {
	return emitStatusEvent(ctx, gatewayWriteRunner{g}, featureID, fromStatus, toStatus, by, sessionID, reason)
}

// EmitStatusEventTx is EmitStatusEvent's transaction-scoped variant, for
// callers that must fold the status transition into a larger atomic write
// (e.g. the Claim Arbiter's read-check-write CAS, spec.md §4.5).
func EmitStatusEventTx(ctx context.Context, tx graph.Tx, featureID, fromStatus, toStatus, by, sessionID, reason string) (*models.StatusEvent, error) {
	return emitStatusEvent(ctx, txRunner{tx}, featureID, fromStatus, toStatus, by, sessionID, reason)
}

func emitStatusEvent(ctx context.Context, r runner, featureID, fromStatus, toStatus, by, sessionID, reason string) (*models.StatusEvent, error) {
	now := time.Now()
	recs, err := r.run(ctx, `
		MATCH (f:Feature {id: $featureID})
		CREATE (se:StatusEvent {
			id: $id, from_status: $fromStatus, to_status: $toStatus, at: $at,
			by: $by, session_id: $sessionID, reason: $reason
		})
		CREATE (se)-[:CHANGED_STATUS]->(f)
		SET f.status = $toStatus, f.updated_at = $at
		SET f.completed_at = CASE WHEN $toStatus = 'complete' THEN $at ELSE f.completed_at END
		RETURN se.id AS id, se.from_status AS from_status, se.to_status AS to_status,
		       se.at AS at, se.by AS by, se.session_id AS session_id, se.reason AS reason
	`, map[string]any{
		"featureID":  featureID,
		"id":         now.UnixNano(),
		"fromStatus": fromStatus,
		"toStatus":   toStatus,
		"at":         formatTime(now),
		"by":         by,
		"sessionID":  sessionID,
		"reason":     reason,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.NotFoundError{Entity: "Feature", ID: featureID}
	}
	return scanStatusEvent(recs[0])
}

// ListStatusEvents returns a Feature's StatusEvents in chronological order,
// the append-only audit trail backing invariant I3.
func ListStatusEvents(ctx context.Context, g graph.Gateway, featureID string) ([]*models.StatusEvent, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (se:StatusEvent)-[:CHANGED_STATUS]->(f:Feature {id: $featureID})
		RETURN se.id AS id, se.from_status AS from_status, se.to_status AS to_status,
		       se.at AS at, se.by AS by, se.session_id AS session_id, se.reason AS reason
		ORDER BY se.at ASC
	`, map[string]any{"featureID": featureID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.StatusEvent, 0, len(recs))
	for _, rec := range recs {
		se, err := scanStatusEvent(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

func scanStatusEvent(rec graph.Record) (*models.StatusEvent, error) {
	at, err := getTime(rec, "at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	return &models.StatusEvent{
		ID:         int64(getInt(rec, "id")),
		FromStatus: getString(rec, "from_status"),
		ToStatus:   getString(rec, "to_status"),
		At:         at,
		By:         getString(rec, "by"),
		SessionID:  getString(rec, "session_id"),
		Reason:     getString(rec, "reason"),
	}, nil
}
