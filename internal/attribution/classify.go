package attribution

import (
	"context"

	"github.com/Shakes-tzd/ijoka/internal/claim"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/store"
)

// EventInput is the normalized shape of an incoming hook event the
// Attribution Engine classifies (spec.md §4.6 "Inputs").
type EventInput struct {
	ProjectID   string
	SessionID   string
	EventType   models.EventType
	ToolName    string
	FilePath    string
	BashCommand string
	UserPrompt  string
}

// Config bundles the Attribution Engine's configurable knobs (spec.md §9
// Open Question 3).
type Config struct {
	MetaToolPrefixes       []string
	MetaToolBashSubstrings []string
}

// Decision is the outcome of classifying one event: which Feature (if any)
// it was linked to, and by which classification layer.
type Decision struct {
	Feature *models.Feature
	Layer   string // "meta", "diagnostic", "session_cache", "scored", "session_work"
	Linked  bool
}

// Classify runs the classification layers of spec.md §4.6 in authority
// order and links the event to the winning Feature (or none, for
// diagnostic calls). It does not run the UserPromptSubmit path — see
// ClassifyPrompt for layer (e).
func Classify(ctx context.Context, g graph.Gateway, cfg Config, eventID int64, in EventInput) (Decision, error) {
	if IsDiagnosticCall(in.ToolName, in.BashCommand) {
		return Decision{Layer: "diagnostic"}, nil
	}

	if IsMetaTool(in.ToolName, in.BashCommand, cfg.MetaToolPrefixes, cfg.MetaToolBashSubstrings) {
		sw, err := store.GetSessionWorkFeature(ctx, g, in.ProjectID)
		if err != nil {
			return Decision{}, err
		}
		return linkAndReturn(ctx, g, sw, eventID, "meta")
	}

	sess, err := store.GetSession(ctx, g, in.SessionID)
	if err == nil && sess.ActiveFeatureID != "" {
		if f, ferr := store.GetFeature(ctx, g, sess.ActiveFeatureID); ferr == nil && f.Status == models.FeatureStatusInProgress {
			return linkAndReturn(ctx, g, f, eventID, "session_cache")
		}
	}

	candidates, err := store.ListInProgressFeatures(ctx, g, in.ProjectID)
	if err != nil {
		return Decision{}, err
	}
	if len(candidates) > 0 {
		tokens := Tokenize(in.FilePath + " " + in.BashCommand)
		result := ScoreCandidates(candidates, in.FilePath, tokens)
		if result.Feature != nil {
			return linkAndReturn(ctx, g, result.Feature, eventID, "scored")
		}
	}

	if models.IsWorkTool(in.ToolName) {
		sw, err := store.GetSessionWorkFeature(ctx, g, in.ProjectID)
		if err != nil {
			return Decision{}, err
		}
		return linkAndReturn(ctx, g, sw, eventID, "session_work")
	}

	return Decision{}, nil
}

// ClassifyPrompt runs layer (e): on a UserPromptSubmit, score ALL Features
// and cache the decision on the Session (spec.md §4.6(e)).
func ClassifyPrompt(ctx context.Context, g graph.Gateway, projectID, sessionID, prompt string) (Decision, error) {
	features, err := store.ListFeatures(ctx, g, projectID, "", "")
	if err != nil {
		return Decision{}, err
	}
	result := ScorePrompt(features, prompt)
	if result.Feature == nil {
		return Decision{}, nil
	}
	if err := store.SetSessionClassification(ctx, g, sessionID, result.Feature.ID, "user_prompt", prompt); err != nil {
		return Decision{}, err
	}
	return Decision{Feature: result.Feature, Layer: "user_prompt"}, nil
}

func linkAndReturn(ctx context.Context, g graph.Gateway, f *models.Feature, eventID int64, layer string) (Decision, error) {
	added, err := store.LinkEventToFeature(ctx, g, eventID, f.ID)
	if err != nil {
		return Decision{}, err
	}
	if added {
		if err := store.IncrementWorkCount(ctx, g, f.ID, 1); err != nil {
			return Decision{}, err
		}
		if err := claim.MaybeAutoStart(ctx, g, f, eventID); err != nil {
			return Decision{}, err
		}
	}
	return Decision{Feature: f, Layer: layer, Linked: added}, nil
}
