package analytics

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Shakes-tzd/ijoka/internal/graph"
)

// QueryType enumerates the NL query router's classification buckets
// (spec.md §4.11).
type QueryType string

const (
	QueryVelocity    QueryType = "velocity"
	QueryBottlenecks QueryType = "bottlenecks"
	QueryProfile     QueryType = "profile"
	QueryPatterns    QueryType = "patterns"
	QueryGeneral     QueryType = "general"
)

// velocityPatterns, bottleneckPatterns, profilePatterns and
// patternPatterns mirror the original query_engine.py classifier's regex
// buckets verbatim.
var (
	velocityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(velocity|speed|productivity|fast|slow|throughput|rate)\b`),
		regexp.MustCompile(`(?i)\b(how many|count).*(complete|finish|done)\b`),
		regexp.MustCompile(`(?i)\bfeatures?\s+per\s+(day|week)\b`),
	}
	bottleneckPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(block|stuck|bottleneck|problem|issue|delay)\b`),
		regexp.MustCompile(`(?i)\bwhy.*(slow|stuck|blocked)\b`),
		regexp.MustCompile(`(?i)\bwhat.*blocking\b`),
	}
	profilePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(profile|agent|who|performance|team)\b`),
		regexp.MustCompile(`(?i)\b(best|top).*(agent|developer)\b`),
		regexp.MustCompile(`(?i)\b(my|agent).*(stats|statistics|performance)\b`),
	}
	patternPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(pattern|workflow|sequence|common|typical)\b`),
		regexp.MustCompile(`(?i)\bhow.*(usually|typically|normally)\b`),
		regexp.MustCompile(`(?i)\b(cluster|group|category)\b`),
	}
	knownAgents = []string{"claude-code", "claude", "codex", "gemini", "cursor"}
)

// ClassifyQuery implements query_engine.py's _classify_query: checked in
// velocity -> bottlenecks -> profile -> patterns order, falling back to
// general.
func ClassifyQuery(text string) QueryType {
	switch {
	case anyMatch(velocityPatterns, text):
		return QueryVelocity
	case anyMatch(bottleneckPatterns, text):
		return QueryBottlenecks
	case anyMatch(profilePatterns, text):
		return QueryProfile
	case anyMatch(patternPatterns, text):
		return QueryPatterns
	default:
		return QueryGeneral
	}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractWindowDays extracts an optional time window from query phrasing
// ("today", "this week", "past month", ...).
func ExtractWindowDays(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "month"):
		return 30
	case strings.Contains(lower, "two weeks"), strings.Contains(lower, "2 weeks"):
		return 14
	case strings.Contains(lower, "today"):
		return 1
	default:
		return 7
	}
}

// ExtractAgent pulls a known-agent name out of free text, defaulting to
// "claude-code" for first-person phrasing ("my velocity").
func ExtractAgent(text string) string {
	lower := strings.ToLower(text)
	for _, a := range knownAgents {
		if strings.Contains(lower, a) {
			return a
		}
	}
	if strings.Contains(" "+lower+" ", " my ") || strings.HasPrefix(lower, "my ") {
		return "claude-code"
	}
	return ""
}

// QueryResponse is the structured result of a natural-language query
// (spec.md §6 POST /analytics/query).
type QueryResponse struct {
	Success   bool           `json:"success"`
	QueryType QueryType      `json:"query_type"`
	Data      map[string]any `json:"data"`
	Insights  []Insight      `json:"insights,omitempty"`
}

// RunQuery implements spec.md §4.11's NL query router: classify, extract a
// time window/agent, and dispatch to the matching view. This is a router,
// not an NLU system.
func RunQuery(ctx context.Context, g graph.Gateway, projectID, question string) (*QueryResponse, error) {
	queryType := ClassifyQuery(question)
	now := time.Now()

	switch queryType {
	case QueryVelocity:
		windowDays := ExtractWindowDays(question)
		velocity, err := ComputeVelocity(ctx, g, projectID, windowDays)
		if err != nil {
			return nil, err
		}
		drift, err := DetectVelocityDrift(ctx, g, projectID, 0.3)
		if err != nil {
			return nil, err
		}
		var insights []Insight
		for _, w := range drift {
			insights = append(insights, Insight{Type: InsightAnomaly, Description: w, ImpactScore: 0.7, Confidence: 0.8, CreatedAt: now})
		}
		return &QueryResponse{
			Success:   true,
			QueryType: QueryVelocity,
			Data: map[string]any{
				"metrics":        velocity,
				"window_days":    windowDays,
				"drift_warnings": drift,
			},
			Insights: insights,
		}, nil

	case QueryBottlenecks:
		bottlenecks, err := DetectBottlenecks(ctx, g, projectID)
		if err != nil {
			return nil, err
		}
		limit := len(bottlenecks)
		if limit > 5 {
			limit = 5
		}
		var insights []Insight
		for _, b := range bottlenecks[:limit] {
			impact := 0.5
			if b.Severity == SeverityCritical || b.Severity == SeverityHigh {
				impact = 0.8
			}
			desc := b.Description
			if b.BlockReason != "" {
				desc = b.Description + ": " + b.BlockReason
			}
			insights = append(insights, Insight{Type: InsightBottleneck, Description: desc, ImpactScore: impact, Confidence: 0.9, RelatedFeatures: []string{b.FeatureID}, CreatedAt: now})
		}
		return &QueryResponse{
			Success:   true,
			QueryType: QueryBottlenecks,
			Data:      map[string]any{"count": len(bottlenecks), "bottlenecks": bottlenecks},
			Insights:  insights,
		}, nil

	case QueryProfile:
		if agent := ExtractAgent(question); agent != "" {
			profile, err := BuildAgentProfile(ctx, g, projectID, agent)
			if err != nil {
				return nil, err
			}
			return &QueryResponse{Success: true, QueryType: QueryProfile, Data: map[string]any{"profile": profile}}, nil
		}
		agents, err := ListAgents(ctx, g, projectID)
		if err != nil {
			return nil, err
		}
		limit := len(agents)
		if limit > 5 {
			limit = 5
		}
		profiles := make([]*AgentProfile, 0, limit)
		for _, a := range agents[:limit] {
			p, err := BuildAgentProfile(ctx, g, projectID, a)
			if err != nil {
				return nil, err
			}
			profiles = append(profiles, p)
		}
		return &QueryResponse{
			Success:   true,
			QueryType: QueryProfile,
			Data:      map[string]any{"agents": agents, "profiles": profiles},
		}, nil

	case QueryPatterns:
		clusters, err := DetectFeatureClusters(ctx, g, projectID)
		if err != nil {
			return nil, err
		}
		workflows, err := FindCommonWorkflows(ctx, g, projectID, 1)
		if err != nil {
			return nil, err
		}
		limit := len(workflows)
		if limit > 10 {
			limit = 10
		}
		return &QueryResponse{
			Success:   true,
			QueryType: QueryPatterns,
			Data:      map[string]any{"clusters": clusters, "workflows": workflows[:limit]},
		}, nil

	default:
		bottlenecks, err := DetectBottlenecks(ctx, g, projectID)
		if err != nil {
			return nil, err
		}
		drift, err := DetectVelocityDrift(ctx, g, projectID, 0.3)
		if err != nil {
			return nil, err
		}
		workflows, err := FindCommonWorkflows(ctx, g, projectID, 2)
		if err != nil {
			return nil, err
		}
		velocity, err := ComputeVelocity(ctx, g, projectID, 7)
		if err != nil {
			return nil, err
		}
		insights := GenerateDailyDigest(bottlenecks, drift, workflows, velocity, now, 10)
		return &QueryResponse{
			Success:   true,
			QueryType: QueryGeneral,
			Data: map[string]any{
				"bottlenecks": bottlenecks,
				"velocity":    velocity,
				"workflows":   workflows,
			},
			Insights: insights,
		}, nil
	}
}
