package commands

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shakes-tzd/ijoka/internal/app"
	"github.com/Shakes-tzd/ijoka/internal/attribution"
	"github.com/Shakes-tzd/ijoka/internal/graph"
	"github.com/Shakes-tzd/ijoka/internal/models"
	"github.com/Shakes-tzd/ijoka/internal/nudges"
	"github.com/Shakes-tzd/ijoka/internal/store"
	"github.com/Shakes-tzd/ijoka/internal/stuckness"
)

// hookInput mirrors spec.md §6's inbound hook JSON schema verbatim.
type hookInput struct {
	HookType     string          `json:"hook_type"`
	SessionID    string          `json:"session_id"`
	Cwd          string          `json:"cwd"`
	ToolName     string          `json:"tool_name,omitempty"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	UserPrompt   string          `json:"user_prompt,omitempty"`
}

type hookToolInput struct {
	Command   string `json:"command,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Path      string `json:"path,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	OldString string `json:"old_string,omitempty"`
	NewString string `json:"new_string,omitempty"`
}

type hookToolResponse struct {
	IsError bool   `json:"is_error,omitempty"`
	Output  string `json:"output,omitempty"`
	BashID  string `json:"bash_id,omitempty"`
}

type hookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
	Decision          string `json:"decision,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

type hookResponse struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

// NewHookCmd wires the hidden hook subcommand: adapters (Claude Code hook
// scripts) pipe a spec.md §6 hook payload on stdin and read the response on
// stdout. Per spec.md §7, a hook never surfaces an error to the agent's
// tool stream — any failure is logged and a hookSpecificOutput carrying at
// most the hookEventName is printed instead.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Internal hook adapter (stdin/stdout JSON)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
	return cmd
}

func runHook(ctx context.Context, in io.Reader, out io.Writer) error {
	var hi hookInput
	raw, err := io.ReadAll(in)
	if err != nil {
		return writeHookResponse(out, hookResponse{})
	}
	if err := json.Unmarshal(raw, &hi); err != nil {
		return writeHookResponse(out, hookResponse{})
	}

	resp, err := handleHook(ctx, hi)
	if err != nil {
		cmdErr(err)
		return writeHookResponse(out, hookResponse{HookSpecificOutput: hookSpecificOutput{HookEventName: hi.HookType}})
	}
	return writeHookResponse(out, resp)
}

func writeHookResponse(out io.Writer, resp hookResponse) error {
	return json.NewEncoder(out).Encode(resp)
}

func handleHook(ctx context.Context, hi hookInput) (hookResponse, error) {
	var resp hookResponse
	resp.HookSpecificOutput.HookEventName = hi.HookType

	err := withGateway(ctx, func(g graph.Gateway) error {
		path := hi.Cwd
		if path == "" {
			var perr error
			path, perr = projectRoot()
			if perr != nil {
				return perr
			}
		}
		project, err := store.EnsureProject(ctx, g, path, filepathBase(path))
		if err != nil {
			return err
		}

		switch hi.HookType {
		case "SessionStart":
			return handleSessionStart(ctx, g, project, hi, &resp)
		case "SessionEnd":
			return store.EndSession(ctx, g, hi.SessionID)
		case "UserPromptSubmit":
			return handleUserPromptSubmit(ctx, g, project, hi)
		case "PostToolUse":
			return handlePostToolUse(ctx, g, project, hi, &resp)
		case "Stop", "SubagentStop":
			return handleStop(ctx, g, hi, &resp)
		default:
			return nil
		}
	})
	return resp, err
}

func handleSessionStart(ctx context.Context, g graph.Gateway, project *models.Project, hi hookInput, resp *hookResponse) error {
	if _, err := store.StartSession(ctx, g, hi.SessionID, "", project.ID, "", false); err != nil {
		return err
	}
	primer, err := attribution.SessionPrimer(ctx, g, project.ID)
	if err != nil {
		return err
	}
	resp.HookSpecificOutput.AdditionalContext = primer
	return nil
}

func handleUserPromptSubmit(ctx context.Context, g graph.Gateway, project *models.Project, hi hookInput) error {
	eventID := deterministicEventID(hi.SessionID, "UserPromptSubmit", hi.UserPrompt)
	if err := store.InsertEvent(ctx, g, &models.Event{
		ID:        eventID,
		EventType: models.EventTypeUserQuery,
		Timestamp: time.Now(),
		SessionID: hi.SessionID,
		Success:   true,
		Summary:   truncateSummary(hi.UserPrompt),
	}); err != nil {
		return err
	}
	_, err := attribution.ClassifyPrompt(ctx, g, project.ID, hi.SessionID, hi.UserPrompt)
	return err
}

func handlePostToolUse(ctx context.Context, g graph.Gateway, project *models.Project, hi hookInput, resp *hookResponse) error {
	var ti hookToolInput
	_ = json.Unmarshal(hi.ToolInput, &ti)
	var tr hookToolResponse
	_ = json.Unmarshal(hi.ToolResponse, &tr)

	filePath := ti.FilePath
	if filePath == "" {
		filePath = ti.Path
	}
	success := !tr.IsError

	eventID := deterministicEventID(hi.SessionID, "PostToolUse", hi.ToolUseID)
	if err := store.InsertEvent(ctx, g, &models.Event{
		ID:          eventID,
		EventType:   models.EventTypeToolCall,
		ToolName:    hi.ToolName,
		Timestamp:   time.Now(),
		SourceAgent: "",
		SessionID:   hi.SessionID,
		Success:     success,
		Summary:     truncateSummary(toolSummary(hi.ToolName, ti)),
	}); err != nil {
		return err
	}
	if err := store.UpdateSessionActivity(ctx, g, hi.SessionID); err != nil {
		return err
	}

	cfg := attribution.Config{
		MetaToolPrefixes:       app.MetaToolPrefixes(),
		MetaToolBashSubstrings: app.MetaToolBashSubstrings(),
	}
	decision, err := attribution.Classify(ctx, g, cfg, eventID, attribution.EventInput{
		ProjectID:   project.ID,
		SessionID:   hi.SessionID,
		EventType:   models.EventTypeToolCall,
		ToolName:    hi.ToolName,
		FilePath:    filePath,
		BashCommand: ti.Command,
	})
	if err != nil {
		return err
	}
	if !decision.Linked || decision.Feature == nil {
		return nil
	}

	var nudgeList []string

	if filePath != "" {
		candidates, cerr := store.ListInProgressFeatures(ctx, g, project.ID)
		if cerr == nil {
			if otherID := attribution.CheckMisattribution(candidates, decision.Feature.ID, filePath); otherID != "" {
				nudgeList = append(nudgeList, nudges.NudgePossibleMisattribution+":"+otherID)
			}
		}
	}

	result, err := nudges.OnPostToolUse(ctx, g, decision.Feature, hi.SessionID, hi.ToolName, ti.Command, success)
	if err != nil {
		return err
	}
	nudgeList = append(nudgeList, result.Nudges...)

	sess, err := store.GetSession(ctx, g, hi.SessionID)
	if err == nil {
		if fired, cerr := nudges.CheckCommitReminder(ctx, g, sess); cerr == nil && fired {
			nudgeList = append(nudgeList, nudges.NudgeCommitReminder)
		}
	}

	for _, n := range nudgeList {
		_ = nudges.RecordNudge(ctx, g, hi.SessionID, n)
	}
	if len(nudgeList) > 0 {
		resp.HookSpecificOutput.AdditionalContext = strings.Join(nudgeList, "; ")
	}
	return nil
}

func handleStop(ctx context.Context, g graph.Gateway, hi hookInput, resp *hookResponse) error {
	sess, err := store.GetSession(ctx, g, hi.SessionID)
	if err != nil {
		return nil
	}
	result, err := stuckness.Detect(ctx, g, hi.SessionID, sess.ActiveFeatureID, time.Now())
	if err != nil {
		return err
	}
	if result.Stuck && !sess.HasNudge(nudges.NudgeDriftWarning) {
		resp.HookSpecificOutput.AdditionalContext = "stuckness detected: " + result.Reason
		_ = nudges.RecordNudge(ctx, g, hi.SessionID, nudges.NudgeDriftWarning)
	}
	return nil
}

func truncateSummary(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func toolSummary(toolName string, ti hookToolInput) string {
	switch toolName {
	case "Bash":
		return ti.Command
	case "Edit", "Write":
		if ti.FilePath != "" {
			return ti.FilePath
		}
		return ti.Path
	case "Grep", "Glob":
		return ti.Pattern
	default:
		return toolName
	}
}
