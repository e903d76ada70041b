package store

import (
	"context"
	"strings"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/errs"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
)

const insightReturnClause = `
	i.id AS id, i.description AS description, i.pattern_type AS pattern_type,
	i.tags AS tags, i.usage_count AS usage_count, i.effectiveness_score AS effectiveness_score,
	i.feedback_count AS feedback_count, i.helpful_count AS helpful_count, i.created_at AS created_at,
	coalesce(f.id, '') AS learned_from_feature_id,
	coalesce(i.last_feedback_comment, '') AS last_feedback_comment`

// CreateInsight records a durable observation (spec.md §3).
func CreateInsight(ctx context.Context, g graph.Gateway, in *models.Insight) (*models.Insight, error) {
	now := formatTime(time.Now())
	id := models.NewID("insight")

	cypher := `CREATE (i:Insight {
			id: $id, description: $description, pattern_type: $patternType, tags: $tags,
			usage_count: 0, feedback_count: 0, helpful_count: 0, created_at: $now
		})`
	if in.LearnedFromFeatureID != "" {
		cypher = `MATCH (f:Feature {id: $learnedFrom})
		CREATE (i:Insight {
			id: $id, description: $description, pattern_type: $patternType, tags: $tags,
			usage_count: 0, feedback_count: 0, helpful_count: 0, created_at: $now
		})
		CREATE (i)-[:LEARNED_FROM]->(f)`
	}
	cypher += `
		WITH i
		OPTIONAL MATCH (i)-[:LEARNED_FROM]->(f:Feature)
		RETURN ` + insightReturnClause

	recs, err := g.WriteQuery(ctx, cypher, map[string]any{
		"id":          id,
		"description": in.Description,
		"patternType": string(in.PatternType),
		"tags":        toAnySlice(in.Tags),
		"now":         now,
		"learnedFrom": in.LearnedFromFeatureID,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &errs.InternalError{Cause: nil}
	}
	return scanInsight(recs[0])
}

// SearchInsights returns Insights matching a free-text query (case
// insensitive substring over description) and/or any of the given tags,
// bounded by limit (spec.md §6 GET /insights).
func SearchInsights(ctx context.Context, g graph.Gateway, query string, tags []string, limit int) ([]*models.Insight, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (i:Insight)
		WHERE ($query = '' OR toLower(i.description) CONTAINS toLower($query))
		  AND ($tags = [] OR any(t IN $tags WHERE t IN coalesce(i.tags, [])))
		OPTIONAL MATCH (i)-[:LEARNED_FROM]->(f:Feature)
		RETURN `+insightReturnClause+`
		ORDER BY i.created_at DESC
		LIMIT $limit
	`, map[string]any{"query": query, "tags": toAnySlice(tags), "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Insight, 0, len(recs))
	for _, rec := range recs {
		in, err := scanInsight(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// RecordInsightFeedback increments feedback/helpful counters and recomputes
// effectiveness_score = helpful_count / feedback_count (spec.md §6 POST
// /analytics/feedback). A non-empty comment replaces last_feedback_comment,
// the most recent freeform note left by a reviewer; empty comments leave the
// prior one in place rather than clearing it.
func RecordInsightFeedback(ctx context.Context, g graph.Gateway, insightID string, helpful bool, comment string) error {
	helpfulDelta := 0
	if helpful {
		helpfulDelta = 1
	}
	_, err := g.WriteQuery(ctx, `
		MATCH (i:Insight {id: $id})
		SET i.feedback_count = coalesce(i.feedback_count, 0) + 1,
		    i.helpful_count = coalesce(i.helpful_count, 0) + $helpfulDelta
		SET i.effectiveness_score = CASE WHEN i.feedback_count > 0
		                                  THEN toFloat(i.helpful_count) / i.feedback_count
		                                  ELSE i.effectiveness_score END
		SET i.last_feedback_comment = CASE WHEN $comment <> '' THEN $comment ELSE i.last_feedback_comment END
	`, map[string]any{"id": insightID, "helpfulDelta": helpfulDelta, "comment": comment})
	return err
}

func scanInsight(rec graph.Record) (*models.Insight, error) {
	createdAt, err := getTime(rec, "created_at")
	if err != nil {
		return nil, &errs.InternalError{Cause: err}
	}
	var score *float64
	if v, ok := rec["effectiveness_score"]; ok && v != nil {
		if f, ok := v.(float64); ok {
			score = &f
		}
	}
	return &models.Insight{
		ID:                   getString(rec, "id"),
		Description:          getString(rec, "description"),
		PatternType:          models.InsightPatternType(getString(rec, "pattern_type")),
		Tags:                 getStringSlice(rec, "tags"),
		UsageCount:           getInt(rec, "usage_count"),
		EffectivenessScore:   score,
		FeedbackCount:        getInt(rec, "feedback_count"),
		HelpfulCount:         getInt(rec, "helpful_count"),
		CreatedAt:            createdAt,
		LearnedFromFeatureID: getString(rec, "learned_from_feature_id"),
		LastFeedbackComment:  getString(rec, "last_feedback_comment"),
	}, nil
}

// normalizeTag lowercases and trims a tag for consistent storage/lookup.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
