// Package claim implements the Claim Arbiter (spec.md §4.5): the
// per-feature lease protocol that lets multiple concurrent agent sessions
// coordinate without two of them working the same Feature at once. Grounded
// on the teacher's task_claim.go / task_claim_next.go CAS semantics,
// re-expressed as a read-then-write Cypher transaction under the graph
// store's serializable write isolation instead of SQLite's optimistic
// version column.
package claim

import (
	"context"
	"strconv"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// StaleThreshold is the default Session-inactivity window after which a
// held claim is considered abandoned (spec.md §4.5 default: 30 min).
const StaleThreshold = 30 * time.Minute

// StartFeature runs the start protocol of spec.md §4.5: read the existing
// claim, silently override a stale holder, reject with ClaimConflictError
// for an active non-self holder unless forceOverride, otherwise claim and
// transition pending/blocked -> in_progress with a StatusEvent. The read, the
// staleness re-check, and the write run inside one g.WriteTx so two
// concurrent callers can never both observe an unclaimed/stale Feature and
// both proceed to claim it (spec.md §5 claim-triple atomicity).
func StartFeature(ctx context.Context, g graph.Gateway, featureID, agent, sessionID string, forceOverride bool, staleThreshold time.Duration) (*models.Feature, error) {
	var result *models.Feature
	err := g.WriteTx(ctx, func(tx graph.Tx) error {
		f, err := store.GetFeatureTx(ctx, tx, featureID)
		if err != nil {
			return err
		}

		if f.IsClaimed() && f.ClaimingSessionID != sessionID {
			stale, err := isSessionStaleTx(ctx, tx, f.ClaimingSessionID, staleThreshold)
			if err != nil {
				return err
			}
			if !stale && !forceOverride {
				return &errs.ClaimConflictError{
					FeatureID:      featureID,
					CurrentSession: f.ClaimingSessionID,
					CurrentAgent:   f.ClaimingAgent,
					RequestedAgent: agent,
					RequestedByID:  sessionID,
				}
			}
		}

		fromStatus := string(f.Status)
		now := time.Now()
		updated, err := store.UpdateFeatureFieldsTx(ctx, tx, featureID, map[string]any{
			"status":              string(models.FeatureStatusInProgress),
			"claiming_session_id": sessionID,
			"claiming_agent":      agent,
			"claimed_at":          now.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return err
		}
		if _, err := store.EmitStatusEventTx(ctx, tx, featureID, fromStatus, string(models.FeatureStatusInProgress), "start:"+agent, sessionID, ""); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StartNextFeature implements the tie-break path of StartFeature called
// without an explicit feature_id (spec.md §4.5).
func StartNextFeature(ctx context.Context, g graph.Gateway, projectID, agent, sessionID string, staleThreshold time.Duration) (*models.Feature, error) {
	next, err := store.NextPendingFeature(ctx, g, projectID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, &errs.NotFoundError{Entity: "pending Feature", ID: projectID}
	}
	return StartFeature(ctx, g, next.ID, agent, sessionID, false, staleThreshold)
}

// CompleteFeature runs the complete protocol: status=complete, clear the
// claim triple, stamp completed_at, emit a StatusEvent. The read and the
// write run inside one g.WriteTx for the same reason as StartFeature (spec.md
// §5 claim-triple atomicity).
func CompleteFeature(ctx context.Context, g graph.Gateway, featureID, sessionID, summary string) (*models.Feature, error) {
	var result *models.Feature
	err := g.WriteTx(ctx, func(tx graph.Tx) error {
		f, err := store.GetFeatureTx(ctx, tx, featureID)
		if err != nil {
			return err
		}
		fromStatus := string(f.Status)

		updated, err := store.UpdateFeatureFieldsTx(ctx, tx, featureID, map[string]any{
			"status":              string(models.FeatureStatusComplete),
			"claiming_session_id": nil,
			"claiming_agent":      nil,
			"claimed_at":          nil,
		})
		if err != nil {
			return err
		}
		if _, err := store.EmitStatusEventTx(ctx, tx, featureID, fromStatus, string(models.FeatureStatusComplete), "complete:"+sessionID, sessionID, summary); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BlockFeature transitions a Feature to blocked with a reason, optionally
// recording a blocking dependency (spec.md §6 POST /features/{id}/block).
func BlockFeature(ctx context.Context, g graph.Gateway, featureID, sessionID, reason, blockingFeatureID string) (*models.Feature, error) {
	f, err := store.GetFeature(ctx, g, featureID)
	if err != nil {
		return nil, err
	}
	fromStatus := string(f.Status)

	updated, err := store.UpdateFeatureFields(ctx, g, featureID, map[string]any{
		"status":       string(models.FeatureStatusBlocked),
		"block_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if blockingFeatureID != "" {
		if err := store.AddDependency(ctx, g, featureID, blockingFeatureID, models.DependencyKindBlocks); err != nil {
			return nil, err
		}
	}
	if _, err := store.EmitStatusEvent(ctx, g, featureID, fromStatus, string(models.FeatureStatusBlocked), "block:"+sessionID, sessionID, reason); err != nil {
		return nil, err
	}
	return updated, nil
}

// MaybeAutoStart fires the pending -> in_progress auto-transition exactly
// once per Feature when its first LINKED_TO edge is created (spec.md §4.6
// linking rules). It never fires for Session-Work (I7) or for a Feature
// already outside pending.
func MaybeAutoStart(ctx context.Context, g graph.Gateway, f *models.Feature, eventID int64) error {
	if f.IsSessionWork || !f.Status.IsPending() {
		return nil
	}
	by := "auto:first_activity:" + formatEventID(eventID)
	if _, err := store.EmitStatusEvent(ctx, g, f.ID, string(models.FeatureStatusPending), string(models.FeatureStatusInProgress), by, "", ""); err != nil {
		return err
	}
	return nil
}

// SweepStale scans a Project's in_progress Features and releases any whose
// claiming Session has gone stale back to pending, logging each release as
// a StatusEvent (by="auto:stale_sweep"). It is the proactive counterpart to
// StartFeature's lazy staleness check: without it, an abandoned claim is
// only discovered the next time someone tries to start that Feature. Meant
// to be run periodically by `ijoka serve`'s background scheduler rather
// than from a CLI command, since it mutates state on a timer rather than on
// request.
func SweepStale(ctx context.Context, g graph.Gateway, projectID string, staleThreshold time.Duration) (int, error) {
	features, err := store.ListInProgressFeatures(ctx, g, projectID)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, f := range features {
		if f.IsSessionWork || !f.IsClaimed() {
			continue
		}
		stale, err := isSessionStale(ctx, g, f.ClaimingSessionID, staleThreshold)
		if err != nil {
			return released, err
		}
		if !stale {
			continue
		}
		if _, err := store.EmitStatusEvent(ctx, g, f.ID, string(models.FeatureStatusInProgress), string(models.FeatureStatusPending), "auto:stale_sweep", "", ""); err != nil {
			return released, err
		}
		if _, err := store.UpdateFeatureFields(ctx, g, f.ID, map[string]any{
			"status":              string(models.FeatureStatusPending),
			"claiming_session_id": "",
			"claiming_agent":      "",
			"claimed_at":          "",
		}); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func isSessionStale(ctx context.Context, g graph.Gateway, sessionID string, threshold time.Duration) (bool, error) {
	return sessionStale(sessionID, threshold,
		func() (*models.Session, error) { return store.GetSession(ctx, g, sessionID) },
		func() (*time.Time, error) { return store.LatestSessionActivity(ctx, g, sessionID) },
	)
}

// isSessionStaleTx is isSessionStale's transaction-scoped variant, so
// StartFeature can re-evaluate staleness inside the same write transaction
// as its claim read and write (spec.md §5).
func isSessionStaleTx(ctx context.Context, tx graph.Tx, sessionID string, threshold time.Duration) (bool, error) {
	return sessionStale(sessionID, threshold,
		func() (*models.Session, error) { return store.GetSessionTx(ctx, tx, sessionID) },
		func() (*time.Time, error) { return store.LatestSessionActivityTx(ctx, tx, sessionID) },
	)
}

func sessionStale(sessionID string, threshold time.Duration, getSession func() (*models.Session, error), latestActivity func() (*time.Time, error)) (bool, error) {
	sess, err := getSession()
	if err != nil {
		if _, ok := err.(*errs.NotFoundError); ok {
			return true, nil
		}
		return false, err
	}

	now := time.Now()
	if sess.IsActive(now, threshold) {
		return false, nil
	}

	// Fallback: check recent Event activity when the Session node's own
	// timestamp is missing or stale (spec.md §4.5).
	last, err := latestActivity()
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	return now.Sub(*last) >= threshold, nil
}

func formatEventID(id int64) string {
	return strconv.FormatInt(id, 10)
}
