package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wikigen/wikigen"
	"github.com/wikigen/wikigen/chunk"
)

// DefaultScopeConfigFile is the config filename that governs a scope. Its
// basename is also a structural signal: changing it forces a structure
// rebuild.
const DefaultScopeConfigFile = ".wiki.yml"

// ScopeConfig configures one documentation scope: a sub-tree of a
// repository governed by one config file and processed as an independent
// planning/generation unit.
type ScopeConfig struct {
	// Scope names the sub-tree, e.g. "backend" or "." for the repo root.
	Scope string `yaml:"scope"`

	// ConfigFile is the basename of the scope's config file. Defaults to
	// DefaultScopeConfigFile.
	ConfigFile string `yaml:"config_file"`

	// Exclude lists path globs never handed to the agents.
	Exclude []string `yaml:"exclude"`

	// Quality configures the generation quality gate.
	Quality QualityConfig `yaml:"quality"`

	// Chunking configures chunk sizing for embedding.
	Chunking ChunkingConfig `yaml:"chunking"`
}

// QualityConfig is the YAML shape of a quality gate.
type QualityConfig struct {
	Threshold   float64            `yaml:"threshold"`
	MaxAttempts int                `yaml:"max_attempts"`
	Floors      map[string]float64 `yaml:"floors"`
}

// ChunkingConfig is the YAML shape of chunk sizing.
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	MinTokens     int `yaml:"min_tokens"`
}

// DefaultScopeConfig returns a config for the whole repository with
// default quality and chunking settings.
func DefaultScopeConfig() *ScopeConfig {
	cfg := &ScopeConfig{Scope: "."}
	cfg.applyDefaults()
	return cfg
}

// LoadScopeConfig reads and parses a scope config file, filling defaults
// for anything the file leaves unset.
func LoadScopeConfig(path string) (*ScopeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope config: %w", err)
	}

	var cfg ScopeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse scope config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ScopeConfig) applyDefaults() {
	if c.Scope == "" {
		c.Scope = "."
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultScopeConfigFile
	}
	if c.Quality.Threshold == 0 {
		c.Quality.Threshold = wikigen.DefaultQualityThreshold
	}
	if c.Quality.MaxAttempts == 0 {
		c.Quality.MaxAttempts = wikigen.DefaultMaxAttempts
	}
	defaults := chunk.DefaultConfig()
	if c.Chunking.MaxTokens == 0 {
		c.Chunking.MaxTokens = defaults.MaxTokens
	}
	if c.Chunking.OverlapTokens == 0 {
		c.Chunking.OverlapTokens = defaults.OverlapTokens
	}
	if c.Chunking.MinTokens == 0 {
		c.Chunking.MinTokens = defaults.MinTokens
	}
}

// LoopConfig converts the quality section into a wikigen.LoopConfig.
func (c *ScopeConfig) LoopConfig() wikigen.LoopConfig {
	return wikigen.LoopConfig{
		QualityThreshold: c.Quality.Threshold,
		MaxAttempts:      c.Quality.MaxAttempts,
		CriterionFloors:  c.Quality.Floors,
	}
}

// ChunkConfig converts the chunking section into a chunk.Config.
func (c *ScopeConfig) ChunkConfig() chunk.Config {
	return chunk.Config{
		MaxTokens:     c.Chunking.MaxTokens,
		OverlapTokens: c.Chunking.OverlapTokens,
		MinTokens:     c.Chunking.MinTokens,
	}
}
