package attribution

import (
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/models"
)

func TestScoreCandidatesOnlyActive(t *testing.T) {
	f := &models.Feature{ID: "f1"}
	result := ScoreCandidates([]*models.Feature{f}, "foo.go", nil)
	if result.Reason != "only_active" || result.Feature != f {
		t.Fatalf("expected only_active shortcut, got %+v", result)
	}
}

func TestScoreCandidatesPrefersFilePatternMatch(t *testing.T) {
	candidates := []*models.Feature{
		{ID: "f1", Description: "login form", FilePatterns: []string{"internal/auth/*.go"}, Type: models.FeatureTypeFeature},
		{ID: "f2", Description: "billing invoice", FilePatterns: []string{"internal/billing/*.go"}, Type: models.FeatureTypeFeature},
	}
	result := ScoreCandidates(candidates, "internal/auth/login.go", map[string]bool{"login": true})
	if result.Reason != "scored" || result.Feature == nil || result.Feature.ID != "f1" {
		t.Fatalf("expected f1 to win on file pattern + keyword match, got %+v", result)
	}
}

func TestScoreCandidatesBelowThreshold(t *testing.T) {
	candidates := []*models.Feature{
		{ID: "f1", Description: "unrelated", Type: models.FeatureTypeChore},
		{ID: "f2", Description: "also unrelated", Type: models.FeatureTypeChore},
	}
	result := ScoreCandidates(candidates, "", nil)
	if result.Reason != "below_threshold" || result.Feature != nil {
		t.Fatalf("expected below_threshold with no signal, got %+v", result)
	}
}

func TestScoreCandidatesPrimaryBonusBreaksTie(t *testing.T) {
	candidates := []*models.Feature{
		{ID: "f1", Type: models.FeatureTypeFeature, IsPrimary: false},
		{ID: "f2", Type: models.FeatureTypeFeature, IsPrimary: true},
	}
	result := ScoreCandidates(candidates, "", nil)
	if result.Feature == nil || result.Feature.ID != "f2" {
		t.Fatalf("expected is_primary bonus to win the tie, got %+v", result)
	}
}

func TestCheckMisattributionFindsStrongerMatch(t *testing.T) {
	candidates := []*models.Feature{
		{ID: "f1", FilePatterns: []string{"internal/billing/*.go"}},
		{ID: "f2", FilePatterns: []string{"internal/auth/*.go"}},
	}
	other := CheckMisattribution(candidates, "f1", "internal/auth/login.go")
	if other != "f2" {
		t.Fatalf("expected f2 flagged as a stronger match, got %q", other)
	}
}

func TestCheckMisattributionNoneWhenOnlyAttributedMatches(t *testing.T) {
	candidates := []*models.Feature{
		{ID: "f1", FilePatterns: []string{"internal/auth/*.go"}},
	}
	other := CheckMisattribution(candidates, "f1", "internal/auth/login.go")
	if other != "" {
		t.Fatalf("expected no misattribution, got %q", other)
	}
}

func TestCheckMisattributionEmptyFilePath(t *testing.T) {
	candidates := []*models.Feature{{ID: "f1", FilePatterns: []string{"internal/auth/*.go"}}}
	if other := CheckMisattribution(candidates, "f2", ""); other != "" {
		t.Fatalf("expected empty result for empty file path, got %q", other)
	}
}

func TestScorePromptBoostsOpenAndInProgress(t *testing.T) {
	features := []*models.Feature{
		{ID: "f1", Description: "fix the login bug", Status: models.FeatureStatusComplete},
		{ID: "f2", Description: "fix the login bug", Status: models.FeatureStatusInProgress},
	}
	result := ScorePrompt(features, "please fix the login bug")
	if result.Feature == nil || result.Feature.ID != "f2" {
		t.Fatalf("expected in_progress feature to win via boost, got %+v", result)
	}
}

func TestScorePromptNoMatchBelowConfidence(t *testing.T) {
	features := []*models.Feature{
		{ID: "f1", Description: "completely unrelated topic", Status: models.FeatureStatusPending},
	}
	result := ScorePrompt(features, "something else entirely")
	if result.Feature != nil {
		t.Fatalf("expected no match below confidence threshold, got %+v", result)
	}
}

func TestScorePromptEmptyPrompt(t *testing.T) {
	features := []*models.Feature{{ID: "f1", Description: "login form"}}
	result := ScorePrompt(features, "")
	if result.Feature != nil {
		t.Fatalf("expected no match for empty prompt, got %+v", result)
	}
}
