package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/ijoka/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ijoka"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# ijoka configuration
# Run: ijoka --help

# Graph store connection. Can also be set via IJOKA_GRAPH_URI / --graph-uri.
# graph_uri: bolt://localhost:7687
# graph_user: ""
# graph_password: ""
# graph_database: memgraph

# Session staleness threshold used by the Claim Arbiter (spec.md §4.5).
# stale_threshold_minutes: 30

# Meta/Session-Work tool allow-list (spec.md §9 Open Question 3).
# meta_tool_prefixes: ["mcp__ijoka__"]
# meta_tool_bash_substrings: ["ijoka"]
`
