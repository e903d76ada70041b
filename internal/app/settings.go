package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	GraphURI               string   `yaml:"graph_uri"`
	GraphUser              string   `yaml:"graph_user"`
	GraphPassword          string   `yaml:"graph_password"`
	GraphDatabase          string   `yaml:"graph_database"`
	StaleThresholdMinutes  int      `yaml:"stale_threshold_minutes"`
	MetaToolPrefixes       []string `yaml:"meta_tool_prefixes"`
	MetaToolBashSubstrings []string `yaml:"meta_tool_bash_substrings"`
}

const (
	defaultGraphURI              = "bolt://localhost:7687"
	defaultGraphDatabase         = "memgraph"
	defaultStaleThresholdMinutes = 30
)

// GraphConfig holds the effective connection parameters for the Graph Store
// Gateway (spec.md §4.1).
type GraphConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// EffectiveGraphConfig resolves the graph connection configuration with
// precedence: CLI override > environment variable > config.yaml > default,
// mirroring the teacher's GetDBPath lookup order in db.go.
func EffectiveGraphConfig() (GraphConfig, error) {
	cfg := GraphConfig{
		URI:      defaultGraphURI,
		Database: defaultGraphDatabase,
	}

	s, err := LoadSettings()
	if err == nil {
		if s.GraphURI != "" {
			cfg.URI = s.GraphURI
		}
		cfg.User = s.GraphUser
		cfg.Password = s.GraphPassword
		if s.GraphDatabase != "" {
			cfg.Database = s.GraphDatabase
		}
	}

	if v := os.Getenv("IJOKA_GRAPH_URI"); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv("IJOKA_GRAPH_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("IJOKA_GRAPH_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("IJOKA_GRAPH_DATABASE"); v != "" {
		cfg.Database = v
	}

	if override := getGraphURIOverride(); override != "" {
		cfg.URI = override
	}

	return cfg, nil
}

// EffectiveStaleThreshold returns the Claim Arbiter / Stuckness Detector's
// session-staleness threshold in minutes (spec.md §4.5 default: 30).
func EffectiveStaleThreshold() int {
	if v := os.Getenv("IJOKA_STALE_THRESHOLD_MINUTES"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			return n
		}
	}
	s, err := LoadSettings()
	if err == nil && s.StaleThresholdMinutes > 0 {
		return s.StaleThresholdMinutes
	}
	return defaultStaleThresholdMinutes
}

func parsePositiveInt(v string) (int, error) {
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, errors.New("not a positive integer")
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}

// settingsOnce/settings/settingsErr implement the sync.Once lazy-load
// singleton for config.yaml. graphURIOverrideMu/graphURIOverride implement
// a mutex-protected process-wide override for the CLI's --graph-uri flag.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	graphURIOverrideMu sync.RWMutex
	graphURIOverride   string
)

// SetGraphURIOverride sets a process-wide graph URI override, used by the
// CLI's --graph-uri persistent flag.
func SetGraphURIOverride(uri string) {
	graphURIOverrideMu.Lock()
	graphURIOverride = uri
	graphURIOverrideMu.Unlock()
}

func getGraphURIOverride() string {
	graphURIOverrideMu.RLock()
	v := graphURIOverride
	graphURIOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/ijoka/config.yaml
// 2) /etc/ijoka/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides)
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		dir, err := ConfigDir()
		if err != nil {
			settingsErr = err
			return
		}
		if s, err := loadSettingsFile(filepath.Join(dir, "config.yaml")); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		if s, err := loadSettingsFile(filepath.Join(string(os.PathSeparator), "etc", "ijoka", "config.yaml")); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		if s, err := loadSettingsFile("config.yaml"); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MetaToolPrefixes returns the configured meta/Session-Work tool name
// prefixes, defaulting to "mcp__ijoka__" (spec.md §9 Open Question 3: a
// configurable allow-list rather than baked-in names).
func MetaToolPrefixes() []string {
	if v := os.Getenv("IJOKA_META_TOOL_ALLOWLIST"); v != "" {
		return splitCommaList(v)
	}
	s, err := LoadSettings()
	if err == nil && len(s.MetaToolPrefixes) > 0 {
		return s.MetaToolPrefixes
	}
	return []string{"mcp__ijoka__"}
}

// MetaToolBashSubstrings returns Bash-command substrings that mark a Bash
// invocation as a meta/Session-Work tool call.
func MetaToolBashSubstrings() []string {
	s, err := LoadSettings()
	if err == nil && len(s.MetaToolBashSubstrings) > 0 {
		return s.MetaToolBashSubstrings
	}
	return []string{"ijoka"}
}

func splitCommaList(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
