package category

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Built-in tags that are disabled by default when a config does not name any
// enabled tags explicitly.
const (
	TagSlow  = "slow"
	TagDebug = "debug"
)

// TraceConfig is one session's category filter. All lists hold either exact
// category/tag names or patterns with a single trailing "*".
type TraceConfig struct {
	EnabledCategories  []string `yaml:"enabled_categories" json:"enabled_categories"`
	DisabledCategories []string `yaml:"disabled_categories" json:"disabled_categories"`
	EnabledTags        []string `yaml:"enabled_tags" json:"enabled_tags"`
	DisabledTags       []string `yaml:"disabled_tags" json:"disabled_tags"`
}

// DefaultConfig matches the backend's defaults: everything on except
// categories tagged slow or debug.
func DefaultConfig() *TraceConfig {
	return &TraceConfig{}
}

// LoadConfig reads a TraceConfig from a YAML file.
func LoadConfig(path string) (*TraceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML TraceConfig document.
func ParseConfig(data []byte) (*TraceConfig, error) {
	var cfg TraceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse trace config: %w", err)
	}
	return &cfg, nil
}
