package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ID strategy:
// - Event and StatusEvent use int64: an Event's id is the deterministic hash
//   the ingesting adapter derives from the payload, a StatusEvent's id is its
//   emission time in Unix nanoseconds
// - Project, Feature, Step, Insight use "{prefix}_{uuid}" string IDs
//   (see internal/models.NewID); a Session's id is the one the agent
//   reports, and a Commit is identified by its hash

// FeatureStatus is the current lifecycle state of a Feature.
type FeatureStatus string

// Feature status constants (spec.md §3).
const (
	FeatureStatusPending    FeatureStatus = "pending"
	FeatureStatusInProgress FeatureStatus = "in_progress"
	FeatureStatusBlocked    FeatureStatus = "blocked"
	FeatureStatusComplete   FeatureStatus = "complete"
)

// IsTerminal reports whether the feature has reached a completed state.
func (s FeatureStatus) IsTerminal() bool {
	return s == FeatureStatusComplete
}

// IsPending reports whether the feature has not yet started.
func (s FeatureStatus) IsPending() bool {
	return s == FeatureStatusPending
}

// FeatureType classifies the kind of work a Feature represents.
type FeatureType string

// Feature type constants (spec.md §3).
const (
	FeatureTypeFeature FeatureType = "feature"
	FeatureTypeBug     FeatureType = "bug"
	FeatureTypeSpike   FeatureType = "spike"
	FeatureTypeChore   FeatureType = "chore"
	FeatureTypeHotfix  FeatureType = "hotfix"
	FeatureTypeEpic    FeatureType = "epic"
)

// TypePriorityWeight returns w(type) from spec.md §4.6(d)'s scored matcher.
func (t FeatureType) TypePriorityWeight() float64 {
	switch t {
	case FeatureTypeHotfix:
		return 1.0
	case FeatureTypeBug:
		return 0.8
	case FeatureTypeFeature:
		return 0.6
	case FeatureTypeSpike:
		return 0.4
	case FeatureTypeChore:
		return 0.3
	case FeatureTypeEpic:
		return 0.2
	default:
		return 0.0
	}
}

// DependencyKind classifies a DEPENDS_ON edge between two Features.
type DependencyKind string

// Dependency kind constants (spec.md §3).
const (
	DependencyKindBlocks  DependencyKind = "blocks"
	DependencyKindRelated DependencyKind = "related"
)

// StepStatus is the lifecycle state of a Step within a Feature's plan.
type StepStatus string

// Step status constants (spec.md §3, §4.7).
const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusSkipped    StepStatus = "skipped"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

// Session status constants (spec.md §3).
const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
	SessionStatusStale  SessionStatus = "stale"
)

// EventType enumerates the hook-event kinds the Attribution Engine consumes
// (spec.md §3, §6).
type EventType string

// Event type constants.
const (
	EventTypeToolCall         EventType = "ToolCall"
	EventTypeUserQuery        EventType = "UserQuery"
	EventTypeAgentStop        EventType = "AgentStop"
	EventTypeSubagentStop     EventType = "SubagentStop"
	EventTypePlanUpdate       EventType = "PlanUpdate"
	EventTypeFeatureCompleted EventType = "FeatureCompleted"
	EventTypeSessionStart     EventType = "SessionStart"
	EventTypeSessionEnd       EventType = "SessionEnd"
)

// InsightPatternType classifies a durable Insight (spec.md §3).
type InsightPatternType string

// Insight pattern type constants.
const (
	InsightPatternSolution     InsightPatternType = "solution"
	InsightPatternAntiPattern  InsightPatternType = "anti_pattern"
	InsightPatternBestPractice InsightPatternType = "best_practice"
	InsightPatternToolUsage    InsightPatternType = "tool_usage"
)

// BlockReason is a freeform string explaining why a Feature is blocked.
// Unlike the teacher's BlockedReason, Ijoka does not distinguish a
// "dependency" sentinel value — DEPENDS_ON{kind:blocks} edges are the
// structural signal; block_reason is always a human-authored note.
type BlockReason string

// Project is the root of all other data; Path is a canonical git-root.
type Project struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session represents one agent conversation against a Project.
type Session struct {
	ID                   string        `json:"id"`
	Agent                string        `json:"agent"`
	Status               SessionStatus `json:"status"`
	StartedAt            time.Time     `json:"started_at"`
	LastActivity         time.Time     `json:"last_activity"`
	EndedAt              *time.Time    `json:"ended_at,omitempty"`
	EventCount           int           `json:"event_count"`
	IsSubagent           bool          `json:"is_subagent"`
	StartCommit          string        `json:"start_commit,omitempty"`
	ActiveFeatureID      string        `json:"active_feature_id,omitempty"`
	ClassifiedAt         *time.Time    `json:"classified_at,omitempty"`
	ClassificationSource string        `json:"classification_source,omitempty"`
	LastPrompt           string        `json:"last_prompt,omitempty"`
	NudgesShown          []string      `json:"nudges_shown,omitempty"`
	ProjectID            string        `json:"project_id,omitempty"`
	ContinuedFromID      string        `json:"continued_from_id,omitempty"`
}

// IsActive reports whether the session's last activity is within threshold
// of now. The Claim Arbiter (spec.md §4.5) and Stuckness Detector (§4.9)
// both use this with different time sources; callers pass `now` explicitly
// so tests stay deterministic.
func (s *Session) IsActive(now time.Time, staleThreshold time.Duration) bool {
	return now.Sub(s.LastActivity) < staleThreshold
}

// HasNudge reports whether the given nudge key has already been shown this
// session (spec.md §4.8's "idempotent per Session" rule).
func (s *Session) HasNudge(key string) bool {
	for _, n := range s.NudgesShown {
		if n == key {
			return true
		}
	}
	return false
}

// Feature is a unit of user-visible work (not only "features" — see
// FeatureType). spec.md §3.
type Feature struct {
	ID                 string              `json:"id"`
	ProjectID          string              `json:"project_id"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	Type               FeatureType         `json:"type"`
	Status             FeatureStatus       `json:"status"`
	Priority           int                 `json:"priority"` // [-100, 100]
	Steps              []string            `json:"steps,omitempty"`
	FilePatterns       []string            `json:"file_patterns,omitempty"`
	BranchHint         string              `json:"branch_hint,omitempty"`
	WorkCount          int                 `json:"work_count"`
	AssignedAgent      string              `json:"assigned_agent,omitempty"`
	ClaimingSessionID  string              `json:"claiming_session_id,omitempty"`
	ClaimingAgent      string              `json:"claiming_agent,omitempty"`
	ClaimedAt          *time.Time          `json:"claimed_at,omitempty"`
	BlockReason        BlockReason         `json:"block_reason,omitempty"`
	ParentID           string              `json:"parent_id,omitempty"`
	IsPrimary          bool                `json:"is_primary"`
	IsSessionWork      bool                `json:"is_session_work"`
	CompletionCriteria *CompletionCriteria `json:"completion_criteria,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
}

// IsClaimed reports whether a session currently holds the claim triple
// (invariant I6: all three of claiming_session_id/agent/claimed_at are set
// together, or none are).
func (f *Feature) IsClaimed() bool {
	return f.ClaimingSessionID != ""
}

// IsBlocked reports whether the feature's materialised status is blocked.
func (f *Feature) IsBlocked() bool {
	return f.Status == FeatureStatusBlocked
}

// CanAutoComplete reports whether this feature is eligible for the
// auto-completion criteria evaluator (spec.md I7: Session-Work never
// auto-transitions or auto-completes).
func (f *Feature) CanAutoComplete() bool {
	return !f.IsSessionWork && f.Status != FeatureStatusComplete
}

// CompletionCriteriaType enumerates the auto-completion rules of spec.md §4.8.
type CompletionCriteriaType string

// Completion criteria type constants. "manual" (the zero value's effective
// default) never auto-completes — see spec.md §9 Open Question.
const (
	CompletionCriteriaManual     CompletionCriteriaType = "manual"
	CompletionCriteriaBuild      CompletionCriteriaType = "build"
	CompletionCriteriaTest       CompletionCriteriaType = "test"
	CompletionCriteriaLint       CompletionCriteriaType = "lint"
	CompletionCriteriaAnySuccess CompletionCriteriaType = "any_success"
	CompletionCriteriaWorkCount  CompletionCriteriaType = "work_count"
)

// CompletionCriteria configures auto-completion for a Feature (spec.md §4.8).
type CompletionCriteria struct {
	Type           CompletionCriteriaType `json:"type"`
	Threshold      int                    `json:"threshold,omitempty"` // for work_count
	CommandPattern string                 `json:"command_pattern,omitempty"`
}

// Effective returns the criteria with defaults applied: an absent or
// "manual" type disables auto-completion entirely.
func (c *CompletionCriteria) Effective() (CompletionCriteriaType, int) {
	if c == nil || c.Type == "" || c.Type == CompletionCriteriaManual {
		return CompletionCriteriaManual, 0
	}
	threshold := c.Threshold
	if c.Type == CompletionCriteriaWorkCount && threshold <= 0 {
		threshold = 3
	}
	return c.Type, threshold
}

// Step is one ordered entry in a Feature's execution plan (spec.md §3, §4.7).
// FeatureID is populated by store readers from the BELONGS_TO edge — per
// spec.md §9's canonical Open Question resolution it is never a redundant
// node property and callers must not persist it back as one.
type Step struct {
	ID            string     `json:"id"`
	FeatureID     string     `json:"feature_id"`
	Description   string     `json:"description"`
	Status        StepStatus `json:"status"`
	StepOrder     int        `json:"step_order"`
	ExpectedTools []string   `json:"expected_tools,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Event is one hook-derived or agent-emitted record (spec.md §3).
type Event struct {
	ID          int64           `json:"id"`
	EventType   EventType       `json:"event_type"`
	ToolName    string          `json:"tool_name,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"` // opaque, <= ~10KB
	Timestamp   time.Time       `json:"timestamp"`
	SourceAgent string          `json:"source_agent"`
	SessionID   string          `json:"session_id"`
	Success     bool            `json:"success"`
	Summary     string          `json:"summary,omitempty"` // <= 200 chars
	FeatureIDs  []string        `json:"feature_ids,omitempty"`
	StepID      string          `json:"step_id,omitempty"`
}

// StatusEvent is an append-only record of a Feature's status transition
// (spec.md §3; invariant I3 makes Feature.Status a materialised view of
// the latest StatusEvent).
type StatusEvent struct {
	ID         int64     `json:"id"`
	FeatureID  string    `json:"feature_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	At         time.Time `json:"at"`
	By         string    `json:"by"`
	SessionID  string    `json:"session_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Commit is a recorded VCS commit, linked from the Session that made it and
// to the Feature(s) it implements (spec.md §3).
type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Insight is a long-lived, durable observation extracted from agent work
// (spec.md §3).
type Insight struct {
	ID                   string             `json:"id"`
	Description          string             `json:"description"`
	PatternType          InsightPatternType `json:"pattern_type"`
	Tags                 []string           `json:"tags,omitempty"`
	UsageCount           int                `json:"usage_count"`
	EffectivenessScore   *float64           `json:"effectiveness_score,omitempty"` // [0,1]
	FeedbackCount        int                `json:"feedback_count"`
	HelpfulCount         int                `json:"helpful_count"`
	CreatedAt            time.Time          `json:"created_at"`
	LearnedFromFeatureID string             `json:"learned_from_feature_id,omitempty"`
	LastFeedbackComment  string             `json:"last_feedback_comment,omitempty"`
}

// The helpers in this file are kept terse on purpose; most behavior here is
// validated in internal/store where graph constraints enforce the rest.

// blockedFailurePrefix mirrors the teacher's freeform failure-reason convention,
// kept for block_reason strings that originate from execution failures
// rather than operator-authored text.
const blockedFailurePrefix = "failure:"

// IsFailureReason reports whether a block reason records an execution
// failure rather than a freeform operator note.
func (r BlockReason) IsFailureReason() bool {
	return strings.HasPrefix(string(r), blockedFailurePrefix)
}
