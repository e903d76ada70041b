package models

// WorkTools are the tool names the Session-Work fallback (spec.md §4.6(f))
// attributes to the sentinel Session-Work Feature when no classification
// layer (a)-(e) claims the event.
var WorkTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"Read":         true,
	"Bash":         true,
	"Grep":         true,
	"Glob":         true,
	"Task":         true,
	"TodoWrite":    true,
	"WebSearch":    true,
	"WebFetch":     true,
	"NotebookEdit": true,
}

// IsWorkTool reports whether name is one of the work-tool kinds eligible
// for Session-Work fallback attribution.
func IsWorkTool(name string) bool {
	return WorkTools[name]
}

// autoCompletionWorkTools is the subset of WorkTools whose successful
// invocation increments a Feature's work_count under spec.md §4.8.
var autoCompletionWorkTools = map[string]bool{
	"Edit":  true,
	"Write": true,
	"Bash":  true,
	"Task":  true,
}

// IsAutoCompletionWorkTool reports whether a successful invocation of name
// should increment the active feature's work_count (spec.md §4.8).
func IsAutoCompletionWorkTool(name string) bool {
	return autoCompletionWorkTools[name]
}

// Actor-token prefixes used on StatusEvent.By (spec.md §4.5, §4.6).
const (
	ActorPrefixStart             = "start:"
	ActorPrefixAutoFirstActivity = "auto:first_activity:"
)
