package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// GetGraphConfig resolves the Graph Store Gateway connection configuration.
// Order of precedence:
// 1) CLI override (--graph-uri, via SetGraphURIOverride)
// 2) Environment variables: IJOKA_GRAPH_URI / _USER / _PASSWORD / _DATABASE
// 3) config.yaml: graph_uri / graph_user / graph_password / graph_database
// 4) Default: bolt://localhost:7687, database "memgraph"
func GetGraphConfig() (GraphConfig, error) {
	return EffectiveGraphConfig()
}

// ResolveGraphConfigDetailed returns the resolved graph config along with the
// source of the URI decision. This is for debugging/reporting (e.g. `ijoka
// doctor`); normal code should use GetGraphConfig.
func ResolveGraphConfigDetailed() (cfg GraphConfig, source string, err error) {
	cfg = GraphConfig{URI: defaultGraphURI, Database: defaultGraphDatabase}

	if override := getGraphURIOverride(); override != "" {
		cfg.URI = override
		source = "cli(--graph-uri)"
	} else if envURI := os.Getenv("IJOKA_GRAPH_URI"); envURI != "" {
		cfg.URI = envURI
		source = "env(IJOKA_GRAPH_URI)"
	} else {
		dir, dirErr := ConfigDir()
		if dirErr != nil {
			return GraphConfig{}, "", fmt.Errorf("failed to determine config directory: %w", dirErr)
		}

		// Config file order must match LoadSettings.
		configPaths := []string{
			filepath.Join(dir, "config.yaml"),
			filepath.Join(string(os.PathSeparator), "etc", "ijoka", "config.yaml"),
			"config.yaml",
		}

		found := false
		for _, p := range configPaths {
			s, loadErr := loadSettingsFile(p)
			if loadErr == nil {
				if s.GraphURI != "" {
					cfg.URI = s.GraphURI
					source = fmt.Sprintf("config(%s)", p)
					found = true
					break
				}
				// File exists but no graph_uri set; keep looking.
				continue
			}
			if errors.Is(loadErr, os.ErrNotExist) {
				continue
			}
			return GraphConfig{}, "", fmt.Errorf("failed to load config %s: %w", p, loadErr)
		}
		if !found {
			source = "default(bolt://localhost:7687)"
		}
	}

	s, err := LoadSettings()
	if err == nil {
		cfg.User = s.GraphUser
		cfg.Password = s.GraphPassword
		if s.GraphDatabase != "" {
			cfg.Database = s.GraphDatabase
		}
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

	return cfg, source, nil
}
