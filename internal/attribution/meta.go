package attribution

import "strings"

// IsMetaTool reports whether toolName is a Session-Work / MCP-meta tool
// invocation (spec.md §4.6(a)): project-management tool calls invoked via
// Ijoka's own MCP surface rather than ordinary work tools. The allow-list is
// configurable (prefixes, bashSubstrings) per spec.md §9 Open Question 3 —
// callers typically pass app.MetaToolPrefixes()/app.MetaToolBashSubstrings().
func IsMetaTool(toolName, bashCommand string, prefixes, bashSubstrings []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(toolName, p) {
			return true
		}
	}
	if toolName == "Bash" && bashCommand != "" {
		lower := strings.ToLower(bashCommand)
		for _, s := range bashSubstrings {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

// diagnosticMarkers are lightweight substring rules identifying tool calls
// that read-only inspect Ijoka's own state (hook logs, store queries
// against its own tables) rather than touching the user's project (spec.md
// §4.6(b)). These are never attributed to any Feature.
var diagnosticMarkers = []string{
	"ijoka doctor", "ijoka status", ".ijoka/", "hooks.log", "MATCH (p:Project",
	"MATCH (f:Feature", "graph_uri", "bolt://",
}

// IsDiagnosticCall reports whether a tool invocation is a read-only
// self-inspection call rather than project work.
func IsDiagnosticCall(toolName, command string) bool {
	if toolName != "Bash" && toolName != "Read" && toolName != "Grep" {
		return false
	}
	lower := strings.ToLower(command)
	for _, m := range diagnosticMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
