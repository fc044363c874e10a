// Package config loads sfxvault configuration from a project-level
// .sfxvault.yaml file with environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	sferrors "github.com/sfxvault/sfxvault/internal/errors"
	"github.com/sfxvault/sfxvault/internal/search"
)

// ConfigFileName is the project-level configuration file.
const ConfigFileName = ".sfxvault.yaml"

// Config is the complete sfxvault configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Bench   BenchConfig   `yaml:"bench" json:"bench"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig locates the on-disk stores.
type PathsConfig struct {
	// Database is the SQLite catalog path.
	Database string `yaml:"database" json:"database"`
	// LexicalIndex is the Bleve index directory. Empty means in-memory.
	LexicalIndex string `yaml:"lexical_index" json:"lexical_index"`
}

// SearchConfig configures hybrid search parameters.
// All four values are overridable via environment:
// SFXVAULT_LEXICAL_WEIGHT, SFXVAULT_SEMANTIC_WEIGHT,
// SFXVAULT_RRF_CONSTANT, SFXVAULT_TOP_K.
type SearchConfig struct {
	// LexicalWeight scales the lexical source's RRF contribution.
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`

	// SemanticWeight scales the semantic source's RRF contribution.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// RRFConstant is the RRF smoothing parameter k. Default 60, the value
	// used across the industry; higher values flatten rank differences.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// TopK bounds the fused result list.
	TopK int `yaml:"top_k" json:"top_k"`

	// Mode selects lexical, semantic, or hybrid retrieval.
	Mode string `yaml:"mode" json:"mode"`
}

// BenchConfig configures the benchmark harness defaults.
type BenchConfig struct {
	// OutDir receives matrix, regression, and summary reports.
	OutDir string `yaml:"out_dir" json:"out_dir"`
	// ManifestPath is the promoted-baseline manifest.
	ManifestPath string `yaml:"manifest_path" json:"manifest_path"`
	// Seed drives the synthetic dataset generation.
	Seed int64 `yaml:"seed" json:"seed"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Database: filepath.Join(".sfxvault", "catalog.db"),
		},
		Search: SearchConfig{
			LexicalWeight:  1.0,
			SemanticWeight: 1.0,
			RRFConstant:    search.DefaultRRFConstant,
			TopK:           search.DefaultTopK,
			Mode:           string(search.ModeHybrid),
		},
		Bench: BenchConfig{
			OutDir:       filepath.Join(".sfxvault", "bench"),
			ManifestPath: filepath.Join(".sfxvault", "bench", "manifest.json"),
			Seed:         42,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration for a project directory. A missing config file
// is not an error; defaults plus environment overrides apply.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(dir, ConfigFileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, sferrors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, sferrors.ConfigError(fmt.Sprintf("read %s", path), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers SFXVAULT_* environment variables on top of the
// file values. Unparseable values are ignored rather than fatal.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SFXVAULT_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("SFXVAULT_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("SFXVAULT_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("SFXVAULT_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("SFXVAULT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Search.LexicalWeight < 0 {
		return sferrors.ConfigError(fmt.Sprintf("search.lexical_weight must be >= 0, got %v", c.Search.LexicalWeight), nil)
	}
	if c.Search.SemanticWeight < 0 {
		return sferrors.ConfigError(fmt.Sprintf("search.semantic_weight must be >= 0, got %v", c.Search.SemanticWeight), nil)
	}
	if c.Search.RRFConstant <= 0 {
		return sferrors.ConfigError(fmt.Sprintf("search.rrf_constant must be > 0, got %d", c.Search.RRFConstant), nil)
	}
	if c.Search.TopK <= 0 {
		return sferrors.ConfigError(fmt.Sprintf("search.top_k must be > 0, got %d", c.Search.TopK), nil)
	}
	switch search.Mode(c.Search.Mode) {
	case search.ModeLexical, search.ModeSemantic, search.ModeHybrid:
	default:
		return sferrors.ConfigError(fmt.Sprintf("search.mode must be lexical, semantic, or hybrid, got %q", c.Search.Mode), nil)
	}
	return nil
}

// Plan converts the search configuration into an execution plan.
func (c *Config) Plan() search.Plan {
	return search.Plan{
		Mode:           search.Mode(c.Search.Mode),
		TopK:           c.Search.TopK,
		RRFK:           c.Search.RRFConstant,
		LexicalWeight:  c.Search.LexicalWeight,
		SemanticWeight: c.Search.SemanticWeight,
	}
}

// WriteYAML writes the configuration to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
