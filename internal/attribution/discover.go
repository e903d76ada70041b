package attribution

import (
	"time"

	"context"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// DiscoverInput is the payload of spec.md §6 POST /features/discover.
type DiscoverInput struct {
	ProjectID       string
	Description     string
	Category        string
	Type            models.FeatureType
	Priority        int
	Steps           []string
	LookbackMinutes int
	MarkComplete    bool
	BranchHint      string
}

// DiscoverResult reports the created Feature and how many Session-Work
// events were re-attributed to it.
type DiscoverResult struct {
	Feature           *models.Feature
	ReattributedCount int
}

// Discover implements spec.md §4.10: create a Feature, then retroactively
// link every work-tool Event LINKED_TO Session-Work within the lookback
// window to it (additive — the Session-Work edge is preserved).
func Discover(ctx context.Context, g graph.Gateway, in DiscoverInput) (*DiscoverResult, error) {
	lookback := in.LookbackMinutes
	if lookback <= 0 {
		lookback = 60
	}

	f, err := store.CreateFeature(ctx, g, &models.Feature{
		ProjectID:   in.ProjectID,
		Description: in.Description,
		Category:    in.Category,
		Type:        in.Type,
		Status:      models.FeatureStatusPending,
		Priority:    in.Priority,
		Steps:       in.Steps,
		BranchHint:  in.BranchHint,
	})
	if err != nil {
		return nil, err
	}

	if !in.MarkComplete {
		if _, err := store.EmitStatusEvent(ctx, g, f.ID, string(models.FeatureStatusPending), string(models.FeatureStatusInProgress), "discover", "", ""); err != nil {
			return nil, err
		}
	}

	sw, err := store.GetSessionWorkFeature(ctx, g, in.ProjectID)
	if err != nil {
		return nil, err
	}

	workTools := make([]string, 0, len(models.WorkTools))
	for t := range models.WorkTools {
		workTools = append(workTools, t)
	}

	since := time.Now().Add(-time.Duration(lookback) * time.Minute)
	events, err := store.ListSessionWorkEvents(ctx, g, sw.ID, workTools, since)
	if err != nil {
		return nil, err
	}

	reattributed := 0
	for _, ev := range events {
		added, err := store.LinkEventToFeature(ctx, g, ev.ID, f.ID)
		if err != nil {
			return nil, err
		}
		if added {
			reattributed++
		}
	}
	if reattributed > 0 {
		if err := store.IncrementWorkCount(ctx, g, f.ID, reattributed); err != nil {
			return nil, err
		}
	}

	if in.MarkComplete {
		if _, err := store.EmitStatusEvent(ctx, g, f.ID, string(models.FeatureStatusPending), string(models.FeatureStatusComplete), "discover:mark_complete", "", ""); err != nil {
			return nil, err
		}
	}

	final, err := store.GetFeature(ctx, g, f.ID)
	if err != nil {
		return nil, err
	}
	return &DiscoverResult{Feature: final, ReattributedCount: reattributed}, nil
}
