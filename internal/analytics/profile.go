package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// BuildAgentProfile implements spec.md §4.11 agent profile(agent_id):
// totals, completion rate, average hours-to-complete, and the top-5
// preferred categories.
func BuildAgentProfile(ctx context.Context, g graph.Gateway, projectID, agentID string) (*AgentProfile, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE f.assigned_agent = $agent OR f.claiming_agent = $agent
		RETURN f.status AS status, f.category AS category,
		       f.created_at AS created_at, f.completed_at AS completed_at
	`, map[string]any{"projectID": projectID, "agent": agentID})
	if err != nil {
		return nil, err
	}

	profile := &AgentProfile{AgentID: agentID}
	if len(recs) == 0 {
		return profile, nil
	}

	type categoryStats struct {
		count         int
		lastCompleted time.Time
		hasCompletion bool
	}
	categories := map[string]*categoryStats{}
	var completionHours []float64

	for _, rec := range recs {
		profile.TotalFeatures++
		if asString(rec, "status") == "complete" {
			profile.CompletedFeatures++
		}
		created, createdOK := parseTime(asString(rec, "created_at"))
		completed, completedOK := parseTime(asString(rec, "completed_at"))
		if createdOK && completedOK {
			completionHours = append(completionHours, completed.Sub(created).Hours())
		}

		if cat := asString(rec, "category"); cat != "" {
			cs, ok := categories[cat]
			if !ok {
				cs = &categoryStats{}
				categories[cat] = cs
			}
			cs.count++
			if completedOK && completed.After(cs.lastCompleted) {
				cs.lastCompleted = completed
				cs.hasCompletion = true
			}
		}
	}

	if len(completionHours) > 0 {
		sum := 0.0
		for _, h := range completionHours {
			sum += h
		}
		avg := sum / float64(len(completionHours))
		profile.AvgCompletionHours = &avg
	}

	if profile.TotalFeatures > 0 {
		rate := float64(profile.CompletedFeatures) / float64(profile.TotalFeatures)
		profile.SuccessRate = &rate
	}

	names := make([]string, 0, len(categories))
	for cat := range categories {
		names = append(names, cat)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := categories[names[i]], categories[names[j]]
		if ci.count != cj.count {
			return ci.count > cj.count
		}
		if ci.hasCompletion != cj.hasCompletion {
			return ci.hasCompletion
		}
		if ci.lastCompleted.Equal(cj.lastCompleted) {
			return names[i] < names[j]
		}
		return ci.lastCompleted.After(cj.lastCompleted)
	})
	if len(names) > 5 {
		names = names[:5]
	}
	profile.PreferredCategories = names

	return profile, nil
}

// ListAgents returns every agent that has been assigned or has claimed a
// Feature in the project.
func ListAgents(ctx context.Context, g graph.Gateway, projectID string) ([]string, error) {
	recs, err := g.ReadQuery(ctx, `
		MATCH (f:Feature)-[:BELONGS_TO]->(p:Project {id: $projectID})
		WHERE f.assigned_agent IS NOT NULL OR f.claiming_agent IS NOT NULL
		WITH coalesce(f.assigned_agent, f.claiming_agent) AS agent
		RETURN DISTINCT agent
		ORDER BY agent
	`, map[string]any{"projectID": projectID})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		if a := asString(rec, "agent"); a != "" {
			out = append(out, a)
		}
	}
	return out, nil
}
