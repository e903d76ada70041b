package analytics

import (
	"context"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// StatusMismatch reports a Feature whose materialised status property
// disagrees with the to_status of its most recent StatusEvent (a
// violation of invariant I3 that should never occur by construction — see
// store.EmitStatusEvent — but is surfaced here as a read-only diagnostic
// for `ijoka doctor` / GET /analytics/digest).
type StatusMismatch struct {
	FeatureID      string `json:"feature_id"`
	MaterialStatus string `json:"material_status"`
	LatestEvent    string `json:"latest_event_status"`
}

// ReconcileStatuses scans every Feature in a Project and reports any whose
// status property does not match the to_status of its latest StatusEvent.
// It performs no writes.
func ReconcileStatuses(ctx context.Context, g graph.Gateway, projectID string) ([]StatusMismatch, error) {
	features, err := store.ListFeatures(ctx, g, projectID, "", "")
	if err != nil {
		return nil, err
	}

	var mismatches []StatusMismatch
	for _, f := range features {
		events, err := store.ListStatusEvents(ctx, g, f.ID)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			continue
		}
		latest := events[len(events)-1]
		if latest.ToStatus != string(f.Status) {
			mismatches = append(mismatches, StatusMismatch{
				FeatureID:      f.ID,
				MaterialStatus: string(f.Status),
				LatestEvent:    latest.ToStatus,
			})
		}
	}
	return mismatches, nil
}
