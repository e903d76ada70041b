package attribution

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/Shakes-tzd/ijoka/internal/models"
)

// fileMatchBonus, keywordWeight, typeWeight and primaryBonus implement the
// scored-matcher coefficients of spec.md §4.6(d).
const (
	fileMatchBonus      = 0.4
	keywordWeight       = 0.3
	typeWeight          = 0.2
	primaryBonus        = 0.1
	scoreThreshold      = 0.15
	onlyActiveScore     = 1.0
	promptBoostActive   = 1.2
	promptBoostOpen     = 1.3
	promptConfidenceMin = 0.4
)

// Candidate is one in-progress Feature plus the signals needed to score it.
type Candidate struct {
	Feature *models.Feature
}

// ScoreResult is the outcome of scoring one candidate against an event.
type ScoreResult struct {
	Feature *models.Feature
	Score   float64
	Reason  string // "only_active", "scored", "below_threshold"
}

// ScoreCandidates implements spec.md §4.6(d): file-pattern match, keyword
// overlap, type-priority weight, and the is_primary bonus, picking the
// argmax and rejecting anything below scoreThreshold.
func ScoreCandidates(candidates []*models.Feature, filePath string, eventTokens map[string]bool) ScoreResult {
	if len(candidates) == 1 {
		return ScoreResult{Feature: candidates[0], Score: onlyActiveScore, Reason: "only_active"}
	}

	var best *models.Feature
	bestScore := -1.0

	for _, f := range candidates {
		score := scoreOne(f, filePath, eventTokens)
		if score > bestScore {
			bestScore = score
			best = f
		}
	}

	if best == nil || bestScore < scoreThreshold {
		return ScoreResult{Reason: "below_threshold"}
	}
	return ScoreResult{Feature: best, Score: bestScore, Reason: "scored"}
}

func scoreOne(f *models.Feature, filePath string, eventTokens map[string]bool) float64 {
	var score float64

	if filePath != "" && matchesAnyPattern(f.FilePatterns, filePath) {
		score += fileMatchBonus
	}

	featureTokens := Tokenize(f.Description)
	if len(featureTokens) > 0 {
		overlap := OverlapCount(eventTokens, featureTokens)
		score += keywordWeight * (float64(overlap) / float64(maxInt(len(featureTokens), 1)))
	}

	score += typeWeight * f.Type.TypePriorityWeight()

	if f.IsPrimary {
		score += primaryBonus
	}

	return score
}

func matchesAnyPattern(patterns []string, filePath string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(filePath, p) {
			return true
		}
		g, err := glob.Compile(p, '/')
		if err == nil && g.Match(filePath) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CheckMisattribution implements the validate-feature-edit.py-inspired
// guard: if an Edit/Write's file path matches another in_progress
// Feature's file_patterns but not the Feature the event was actually
// attributed to, that is worth a nudge rather than silence — the agent may
// be editing the wrong feature's files. Returns the other Feature's ID, or
// "" if no stronger match exists.
func CheckMisattribution(candidates []*models.Feature, attributedID, filePath string) string {
	if filePath == "" {
		return ""
	}
	for _, f := range candidates {
		if f.ID == attributedID && matchesAnyPattern(f.FilePatterns, filePath) {
			return ""
		}
	}
	for _, f := range candidates {
		if f.ID == attributedID {
			continue
		}
		if matchesAnyPattern(f.FilePatterns, filePath) {
			return f.ID
		}
	}
	return ""
}

// PromptScoreResult is the outcome of the lighter UserPromptSubmit
// classifier of spec.md §4.6(e), run over ALL Features (not just
// in_progress).
type PromptScoreResult struct {
	Feature    *models.Feature
	Confidence float64
}

// ScorePrompt implements spec.md §4.6(e): keyword-overlap classification
// over every Feature, boosted ×1.3 for not-yet-complete and ×1.2 for
// already-in_progress, activated only if confidence >= 40%.
func ScorePrompt(features []*models.Feature, prompt string) PromptScoreResult {
	promptTokens := Tokenize(prompt)
	if len(promptTokens) == 0 {
		return PromptScoreResult{}
	}

	var best *models.Feature
	bestConfidence := -1.0

	for _, f := range features {
		featureTokens := Tokenize(f.Description)
		if len(featureTokens) == 0 {
			continue
		}
		overlap := OverlapCount(promptTokens, featureTokens)
		confidence := float64(overlap) / float64(maxInt(len(featureTokens), len(promptTokens)))

		if !f.Status.IsTerminal() {
			confidence *= promptBoostOpen
		}
		if f.Status == models.FeatureStatusInProgress {
			confidence *= promptBoostActive
		}

		if confidence > bestConfidence {
			bestConfidence = confidence
			best = f
		}
	}

	if best == nil || bestConfidence < promptConfidenceMin {
		return PromptScoreResult{}
	}
	return PromptScoreResult{Feature: best, Confidence: bestConfidence}
}
