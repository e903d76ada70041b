// Package nudges implements spec.md §4.8: work_count accounting,
// completion-criteria auto-completion, and the idempotent-per-Session
// nudge strings returned to the adapter as additional hook context.
// Grounded on the original implementation's feature-status-manager.py
// auto-completion checks and session-end.py's commit-reminder heuristic.
package nudges

import (
	"context"
	"strings"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/claim"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// Nudge keys recorded on Session.nudges_shown (spec.md §4.8).
const (
	NudgeCommitReminder         = "commit_reminder"
	NudgeFeatureCompletion      = "feature_completion"
	NudgeDriftWarning           = "drift_warning"
	NudgePossibleMisattribution = "possible_misattribution"
)

var buildMarkers = []string{"build", "compile", "cargo build", "pnpm build", "npm run build"}
var testMarkers = []string{"test", "pytest", "jest", "vitest", "cargo test"}
var lintMarkers = []string{"lint", "eslint", "prettier", "clippy"}

// PostToolUseResult summarises what the auto-completion evaluator did
// after one work-tool event was linked to a Feature.
type PostToolUseResult struct {
	WorkCountIncremented bool
	Completed            bool
	NextActivated        *models.Feature
	Nudges               []string
}

// OnPostToolUse implements spec.md §4.8's PostToolUse flow: increment
// work_count for successful work tools, evaluate completion_criteria, and
// surface nudges. f is the Feature the event was linked to (already
// resolved by the Attribution Engine); it is re-read after any mutation.
func OnPostToolUse(ctx context.Context, g graph.Gateway, f *models.Feature, sessionID, toolName, bashCommand string, success bool) (*PostToolUseResult, error) {
	res := &PostToolUseResult{}
	if f == nil || f.IsSessionWork {
		return res, nil
	}

	if success && models.IsAutoCompletionWorkTool(toolName) {
		if err := store.IncrementWorkCount(ctx, g, f.ID, 1); err != nil {
			return nil, err
		}
		res.WorkCountIncremented = true
		updated, err := store.GetFeature(ctx, g, f.ID)
		if err != nil {
			return nil, err
		}
		f = updated
	}

	if f.CanAutoComplete() && criteriaMet(f, bashCommand, success) {
		if _, err := claim.CompleteFeature(ctx, g, f.ID, sessionID, "auto-completed by criteria"); err != nil {
			return nil, err
		}
		res.Completed = true

		next, err := activateNextPending(ctx, g, f.ProjectID, sessionID)
		if err != nil {
			return nil, err
		}
		res.NextActivated = next
	}

	if success && isTestOrBuildCommand(bashCommand) && f.Status == models.FeatureStatusInProgress {
		res.Nudges = append(res.Nudges, NudgeFeatureCompletion)
	}

	return res, nil
}

func criteriaMet(f *models.Feature, bashCommand string, success bool) bool {
	kind, threshold := f.CompletionCriteria.Effective()
	lower := strings.ToLower(bashCommand)

	switch kind {
	case models.CompletionCriteriaBuild:
		return success && (containsAny(lower, buildMarkers) || matchesPattern(lower, f.CompletionCriteria))
	case models.CompletionCriteriaTest:
		return success && containsAny(lower, testMarkers)
	case models.CompletionCriteriaLint:
		return success && containsAny(lower, lintMarkers)
	case models.CompletionCriteriaAnySuccess:
		return success && bashCommand != ""
	case models.CompletionCriteriaWorkCount:
		return f.WorkCount >= threshold
	default:
		return false
	}
}

func matchesPattern(lowerCommand string, c *models.CompletionCriteria) bool {
	if c == nil || c.CommandPattern == "" {
		return false
	}
	return strings.Contains(lowerCommand, strings.ToLower(c.CommandPattern))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func isTestOrBuildCommand(bashCommand string) bool {
	lower := strings.ToLower(bashCommand)
	return containsAny(lower, testMarkers) || containsAny(lower, buildMarkers)
}

func activateNextPending(ctx context.Context, g graph.Gateway, projectID, sessionID string) (*models.Feature, error) {
	next, err := store.NextPendingFeature(ctx, g, projectID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, nil
	}
	return claim.StartFeature(ctx, g, next.ID, "", sessionID, false, claim.StaleThreshold)
}

// CheckCommitReminder implements the commit_reminder nudge: fires once a
// Session has accumulated >= 5 Edit/Write events with no intervening `git
// commit` Bash call, and has not already been shown this Session.
func CheckCommitReminder(ctx context.Context, g graph.Gateway, sess *models.Session) (bool, error) {
	if sess.HasNudge(NudgeCommitReminder) {
		return false, nil
	}
	events, err := store.RecentSessionEvents(ctx, g, sess.ID, 50)
	if err != nil {
		return false, err
	}

	editWrites := 0
	for _, ev := range events {
		if ev.ToolName == "Bash" && isGitCommit(ev) {
			break
		}
		if ev.ToolName == "Edit" || ev.ToolName == "Write" {
			editWrites++
		}
	}
	return editWrites >= 5, nil
}

func isGitCommit(ev *models.Event) bool {
	return strings.Contains(strings.ToLower(ev.Summary), "git commit")
}

// RecordNudge records a shown nudge key on the Session so it is never
// re-surfaced (spec.md §4.8 "idempotent per Session").
func RecordNudge(ctx context.Context, g graph.Gateway, sessionID, key string) error {
	return store.AddNudgeShown(ctx, g, sessionID, key)
}

// WithinMinutes is a small time-window helper: it reports whether t lies at
// most minutes before now.
func WithinMinutes(t time.Time, now time.Time, minutes int) bool {
	return now.Sub(t) <= time.Duration(minutes)*time.Minute
}
