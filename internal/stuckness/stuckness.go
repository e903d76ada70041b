// Package stuckness implements the Stuckness Detector (spec.md §4.9): a
// set of strong/weak signals over a Session's recent event history and its
// active Step, combined with OR semantics. Grounded on the original
// implementation's session monitoring heuristics in session-end.py,
// re-expressed against the shared attribution event history instead of a
// dedicated polling daemon (spec.md §5: "background tasks ... are not
// required — all analytics are computed lazily on read").
package stuckness

import (
	"context"
	"strconv"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/planengine"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

const recentEventWindow = 10

// Result is the outcome of the Stuckness Detector: whether the Session
// appears stuck and why.
type Result struct {
	Stuck  bool
	Reason string
}

// Detect implements spec.md §4.9: any one strong signal, or any two weak
// signals, flips stuck = true.
func Detect(ctx context.Context, g graph.Gateway, sessionID, featureID string, now time.Time) (Result, error) {
	events, err := store.RecentSessionEvents(ctx, g, sessionID, recentEventWindow)
	if err != nil {
		return Result{}, err
	}

	var strongReasons, weakReasons []string

	if r, ok := editWriteAgeSignal(events, now, 5*time.Minute); ok {
		strongReasons = append(strongReasons, r)
	} else if r, ok := editWriteAgeSignal(events, now, 3*time.Minute); ok {
		weakReasons = append(weakReasons, r)
	}

	if r, ok := repetitionSignal(events, 4, 2); ok {
		strongReasons = append(strongReasons, r)
	} else if r, ok := repetitionSignal(events, 3, 2); ok {
		weakReasons = append(weakReasons, r)
	}

	if featureID != "" {
		stepStrong, stepWeak, err := stepStallSignal(ctx, g, featureID, now)
		if err != nil {
			return Result{}, err
		}
		if stepStrong != "" {
			strongReasons = append(strongReasons, stepStrong)
		} else if stepWeak != "" {
			weakReasons = append(weakReasons, stepWeak)
		}
	}

	if len(strongReasons) > 0 {
		return Result{Stuck: true, Reason: strongReasons[0]}, nil
	}
	if len(weakReasons) >= 2 {
		return Result{Stuck: true, Reason: weakReasons[0] + "; " + weakReasons[1]}, nil
	}
	return Result{Stuck: false}, nil
}

// editWriteAgeSignal reports whether the most recent Edit/Write event (if
// any) is older than threshold, or no Edit/Write occurs in a non-empty
// history. An empty history gives no signal.
func editWriteAgeSignal(events []*models.Event, now time.Time, threshold time.Duration) (string, bool) {
	var lastEditWrite time.Time
	for _, ev := range events {
		if ev.ToolName == "Edit" || ev.ToolName == "Write" {
			if ev.Timestamp.After(lastEditWrite) {
				lastEditWrite = ev.Timestamp
			}
		}
	}
	if lastEditWrite.IsZero() {
		if len(events) == 0 {
			return "", false
		}
		return "no Edit/Write event observed", true
	}
	if now.Sub(lastEditWrite) > threshold {
		return "no Edit/Write event for over " + threshold.String(), true
	}
	return "", false
}

// repetitionSignal reports whether a single tool name appears at least
// minCount times in events with at most maxPrefixes distinct payload
// prefixes (a proxy for "the agent keeps retrying the same thing").
func repetitionSignal(events []*models.Event, minCount, maxPrefixes int) (string, bool) {
	counts := map[string]map[string]bool{}
	for _, ev := range events {
		if ev.ToolName == "" {
			continue
		}
		prefixes, ok := counts[ev.ToolName]
		if !ok {
			prefixes = map[string]bool{}
			counts[ev.ToolName] = prefixes
		}
		prefixes[payloadPrefix(ev.Summary)] = true
	}
	for tool, prefixes := range counts {
		total := 0
		for _, ev := range events {
			if ev.ToolName == tool {
				total++
			}
		}
		if total >= minCount && len(prefixes) <= maxPrefixes {
			return "tool \"" + tool + "\" repeated " + strconv.Itoa(total) + " times with low variance", true
		}
	}
	return "", false
}

func payloadPrefix(summary string) string {
	if len(summary) > 20 {
		return summary[:20]
	}
	return summary
}

// stepStallSignal checks the active Step's in_progress duration against
// its linked-event count (spec.md §4.9's per-Step signal).
func stepStallSignal(ctx context.Context, g graph.Gateway, featureID string, now time.Time) (strong, weak string, err error) {
	steps, err := store.ListSteps(ctx, g, featureID)
	if err != nil {
		return "", "", err
	}
	active := planengine.ActiveStep(steps)
	if active == nil || active.Status != models.StepStatusInProgress || active.StartedAt == nil {
		return "", "", nil
	}

	count, err := store.CountEventsForStep(ctx, g, active.ID)
	if err != nil {
		return "", "", err
	}
	age := now.Sub(*active.StartedAt)

	if age > 15*time.Minute && count < 5 {
		return "step \"" + active.Description + "\" in_progress over 15m with only " + strconv.Itoa(count) + " linked events", "", nil
	}
	if age > 10*time.Minute && count < 3 {
		return "", "step \"" + active.Description + "\" in_progress over 10m with only " + strconv.Itoa(count) + " linked events", nil
	}
	return "", "", nil
}
