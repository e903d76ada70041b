// Package planengine implements the Plan/Step Engine (spec.md §4.7): Step
// lifecycle, TodoWrite synchronisation, active-step selection, and the
// Checkpoint drift check. Grounded on the original implementation's
// set_plan/update_step_status flows in graph_db_helper.py, with the
// TodoWrite reconciliation rules re-expressed as a plain Go diff instead of
// the source's in-place list mutation.
package planengine

import (
	"context"
	"strings"

	"github.com/Shakes-tzd/ijoka/internal/attribution"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// Progress summarises a plan's completion state.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ComputeProgress derives Progress from a Step list, skipped steps counted
// in Total but not Completed.
func ComputeProgress(steps []*models.Step) Progress {
	total := len(steps)
	completed := 0
	for _, s := range steps {
		if s.Status == models.StepStatusCompleted {
			completed++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	return Progress{Completed: completed, Total: total, Percentage: pct}
}

// ActiveStep implements spec.md §4.7's active-step selection: the single
// in_progress Step if any, else the lowest-step_order pending Step.
func ActiveStep(steps []*models.Step) *models.Step {
	for _, s := range steps {
		if s.Status == models.StepStatusInProgress {
			return s
		}
	}
	var best *models.Step
	for _, s := range steps {
		if s.Status != models.StepStatusPending {
			continue
		}
		if best == nil || s.StepOrder < best.StepOrder {
			best = s
		}
	}
	return best
}

// TodoItem is one entry of an agent-reported TodoWrite list.
type TodoItem struct {
	Content string
	Status  models.StepStatus
}

// SyncTodos implements spec.md §4.7's TodoWrite sync: match each todo
// against existing Steps by exact description. Present+exists updates
// status; present+new creates with step_order = i; absent from todos is
// marked skipped, never deleted.
func SyncTodos(ctx context.Context, g graph.Gateway, featureID string, todos []TodoItem) ([]*models.Step, error) {
	existing, err := store.ListSteps(ctx, g, featureID)
	if err != nil {
		return nil, err
	}
	byDescription := make(map[string]*models.Step, len(existing))
	for _, s := range existing {
		byDescription[s.Description] = s
	}

	seen := make(map[string]bool, len(todos))
	for i, t := range todos {
		seen[t.Content] = true
		if s, ok := byDescription[t.Content]; ok {
			if s.Status != t.Status {
				if _, err := store.UpdateStepStatus(ctx, g, s.ID, t.Status); err != nil {
					return nil, err
				}
			}
			continue
		}
		if _, err := store.CreateStep(ctx, g, featureID, t.Content, i); err != nil {
			return nil, err
		}
	}

	for _, s := range existing {
		if seen[s.Description] {
			continue
		}
		if s.Status == models.StepStatusSkipped {
			continue
		}
		if _, err := store.UpdateStepStatus(ctx, g, s.ID, models.StepStatusSkipped); err != nil {
			return nil, err
		}
	}

	return store.ListSteps(ctx, g, featureID)
}

// CheckpointResult is the outcome of a Checkpoint call.
type CheckpointResult struct {
	ActiveStep *models.Step
	Progress   Progress
	Warnings   []string
}

// Checkpoint implements spec.md §4.7's Checkpoint: mark the active Step
// completed if stepCompleted substring-matches its description, activate
// the next pending Step, and run the drift check against currentActivity.
// It never blocks the caller — only warnings are returned.
func Checkpoint(ctx context.Context, g graph.Gateway, featureID, stepCompleted, currentActivity string) (*CheckpointResult, error) {
	steps, err := store.ListSteps(ctx, g, featureID)
	if err != nil {
		return nil, err
	}

	active := ActiveStep(steps)
	var warnings []string

	if active != nil && stepCompleted != "" && strings.Contains(strings.ToLower(active.Description), strings.ToLower(stepCompleted)) {
		if _, err := store.UpdateStepStatus(ctx, g, active.ID, models.StepStatusCompleted); err != nil {
			return nil, err
		}
		steps, err = store.ListSteps(ctx, g, featureID)
		if err != nil {
			return nil, err
		}
		next := ActiveStep(steps)
		if next != nil && next.Status == models.StepStatusPending {
			if _, err := store.UpdateStepStatus(ctx, g, next.ID, models.StepStatusInProgress); err != nil {
				return nil, err
			}
			steps, err = store.ListSteps(ctx, g, featureID)
			if err != nil {
				return nil, err
			}
		}
		active = ActiveStep(steps)
	}

	if active != nil && currentActivity != "" && active.Description != "" {
		activityTokens := attribution.Tokenize(currentActivity)
		stepTokens := attribution.Tokenize(active.Description)
		if len(activityTokens) > 0 && len(stepTokens) > 0 && !attribution.SharesAnyToken(activityTokens, stepTokens) {
			warnings = append(warnings, "drift: current activity does not match the active step (\""+active.Description+"\")")
		}
	}

	return &CheckpointResult{
		ActiveStep: active,
		Progress:   ComputeProgress(steps),
		Warnings:   warnings,
	}, nil
}
