package attribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// SessionPrimer builds the short free-text context injected into a
// SessionStart hook's additionalContext: the active (non-Session-Work)
// in_progress Feature, its plan progress, and its last few Events.
// Grounded on the original implementation's session-start.py, which
// assembles an equivalent "Working On / Progress / recent activity" block
// from the same three reads — condensed here to a single paragraph rather
// than the original's multi-section markdown.
func SessionPrimer(ctx context.Context, g graph.Gateway, projectID string) (string, error) {
	features, err := store.ListInProgressFeatures(ctx, g, projectID)
	if err != nil {
		return "", err
	}

	var active *models.Feature
	for _, f := range features {
		if !f.IsSessionWork {
			active = f
			break
		}
	}
	if active == nil {
		return "No feature is currently in progress. Run `ijoka feature next-start` or `ijoka feature create` to begin.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Working on: %s (%s, %s)", active.Description, active.Category, active.ID)

	steps, err := store.ListSteps(ctx, g, active.ID)
	if err != nil {
		return "", err
	}
	if len(steps) > 0 {
		progress := planengine.ComputeProgress(steps)
		fmt.Fprintf(&b, ". Plan progress: %d/%d (%.0f%%)", progress.Completed, progress.Total, progress.Percentage)
		if step := planengine.ActiveStep(steps); step != nil {
			fmt.Fprintf(&b, "; active step: %s", step.Description)
		}
	}

	if recent, err := store.GetDescendantEvents(ctx, g, active.ID, 3); err == nil && len(recent) > 0 {
		var summaries []string
		for _, ev := range recent {
			if ev.Summary != "" {
				summaries = append(summaries, ev.Summary)
			}
		}
		if len(summaries) > 0 {
			fmt.Fprintf(&b, ". Last activity: %s", strings.Join(summaries, "; "))
		}
	}

	return b.String(), nil
}
