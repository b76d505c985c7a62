// Package config loads and validates sortcore configuration.
// Configuration comes from a YAML file with environment variable overrides
// (SORTCORE_*), falling back to documented defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sortcore configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Vector  VectorConfig  `yaml:"vector" json:"vector"`
	Lexical LexicalConfig `yaml:"lexical" json:"lexical"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig configures where indexes and records live.
type PathsConfig struct {
	// DataDir is the root directory for the record store, vector index
	// snapshot, and logs. Default: ~/.sortcore.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// Weights is the per-strategy score weight table used during fusion.
// The original system used fixed ad hoc constants; these defaults keep the
// same relative ordering but are tunable per deployment.
type Weights struct {
	Semantic float64 `yaml:"semantic" json:"semantic"`
	Lexical  float64 `yaml:"lexical" json:"lexical"`
	Keyword  float64 `yaml:"keyword" json:"keyword"`
	Metadata float64 `yaml:"metadata" json:"metadata"`
	Tag      float64 `yaml:"tag" json:"tag"`
}

// SearchConfig configures ranking and result shaping.
type SearchConfig struct {
	// Weights is the per-strategy weight table.
	Weights Weights `yaml:"weights" json:"weights"`

	// AgreementBonus is added per extra strategy that matched a resource,
	// so results confirmed by several independent strategies outrank
	// single-strategy matches at equal score.
	AgreementBonus float64 `yaml:"agreement_bonus" json:"agreement_bonus"`

	// MetadataScore is the flat relevance assigned to a structured metadata
	// match (the original system's 0.3 constant, made configurable).
	MetadataScore float64 `yaml:"metadata_score" json:"metadata_score"`

	// TagScore is the flat relevance assigned to a tag substring match
	// (the original system's 0.4 constant, made configurable).
	TagScore float64 `yaml:"tag_score" json:"tag_score"`

	// MinSimilarity is the admission threshold for semantic and lexical
	// candidates (cosine similarity, 0-1).
	MinSimilarity float64 `yaml:"min_similarity" json:"min_similarity"`

	// CandidateLimit caps how many candidates each strategy contributes
	// before fusion.
	CandidateLimit int `yaml:"candidate_limit" json:"candidate_limit"`

	// MaxResults is the hard cap on top_k.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// PreviewLength is the maximum content preview length in characters.
	PreviewLength int `yaml:"preview_length" json:"preview_length"`
}

// VectorConfig configures the HNSW vector index.
type VectorConfig struct {
	// Dimensions is the embedding dimension. 0 disables the semantic
	// strategy unless an embedding provider fixes it at open time.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// M is HNSW max connections per layer.
	M int `yaml:"m" json:"m"`

	// EfSearch is HNSW query-time search width.
	EfSearch int `yaml:"ef_search" json:"ef_search"`

	// CompactionThreshold is the tombstone/live ratio that triggers a
	// synchronous rebuild of the index from the record store.
	CompactionThreshold float64 `yaml:"compaction_threshold" json:"compaction_threshold"`
}

// LexicalConfig configures the TF-IDF index.
type LexicalConfig struct {
	// MinDocFreq is the minimum number of documents a term must appear in
	// to enter the vocabulary.
	MinDocFreq int `yaml:"min_doc_freq" json:"min_doc_freq"`

	// MaxDocRatio excludes terms appearing in more than this fraction of
	// the corpus.
	MaxDocRatio float64 `yaml:"max_doc_ratio" json:"max_doc_ratio"`

	// MaxVocabulary caps vocabulary size, keeping the highest-frequency terms.
	MaxVocabulary int `yaml:"max_vocabulary" json:"max_vocabulary"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Paths: PathsConfig{
			DataDir: filepath.Join(home, ".sortcore"),
		},
		Search: SearchConfig{
			Weights: Weights{
				Semantic: 1.0,
				Lexical:  0.8,
				Keyword:  0.6,
				Metadata: 0.5,
				Tag:      0.5,
			},
			AgreementBonus: 0.05,
			MetadataScore:  0.3,
			TagScore:       0.4,
			MinSimilarity:  0.3,
			CandidateLimit: 50,
			MaxResults:     100,
			PreviewLength:  300,
		},
		Vector: VectorConfig{
			Dimensions:          0,
			M:                   16,
			EfSearch:            20,
			CompactionThreshold: 0.20,
		},
		Lexical: LexicalConfig{
			MinDocFreq:    2,
			MaxDocRatio:   0.8,
			MaxVocabulary: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, applies env overrides, and validates.
// A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SORTCORE_* environment variables.
// Env vars take priority over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SORTCORE_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("SORTCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SORTCORE_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.MinSimilarity = f
		}
	}
	if v := os.Getenv("SORTCORE_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Weights.Semantic = f
		}
	}
	if v := os.Getenv("SORTCORE_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Weights.Lexical = f
		}
	}
	if v := os.Getenv("SORTCORE_VECTOR_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vector.Dimensions = n
		}
	}
	if v := os.Getenv("SORTCORE_COMPACTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Vector.CompactionThreshold = f
		}
	}
}

// Validate checks invariants and returns a descriptive error on violation.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	w := c.Search.Weights
	for name, val := range map[string]float64{
		"semantic": w.Semantic,
		"lexical":  w.Lexical,
		"keyword":  w.Keyword,
		"metadata": w.Metadata,
		"tag":      w.Tag,
	} {
		if val < 0 {
			return fmt.Errorf("search.weights.%s must be >= 0, got %v", name, val)
		}
	}
	if c.Search.MetadataScore < 0 || c.Search.MetadataScore > 1 {
		return fmt.Errorf("search.metadata_score must be in [0,1], got %v", c.Search.MetadataScore)
	}
	if c.Search.TagScore < 0 || c.Search.TagScore > 1 {
		return fmt.Errorf("search.tag_score must be in [0,1], got %v", c.Search.TagScore)
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be in [0,1], got %v", c.Search.MinSimilarity)
	}
	if c.Search.CandidateLimit <= 0 {
		return fmt.Errorf("search.candidate_limit must be > 0, got %d", c.Search.CandidateLimit)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0, got %d", c.Search.MaxResults)
	}
	if c.Vector.Dimensions < 0 {
		return fmt.Errorf("vector.dimensions must be >= 0, got %d", c.Vector.Dimensions)
	}
	if c.Vector.CompactionThreshold <= 0 || c.Vector.CompactionThreshold > 1 {
		return fmt.Errorf("vector.compaction_threshold must be in (0,1], got %v", c.Vector.CompactionThreshold)
	}
	if c.Lexical.MinDocFreq < 1 {
		return fmt.Errorf("lexical.min_doc_freq must be >= 1, got %d", c.Lexical.MinDocFreq)
	}
	if c.Lexical.MaxDocRatio <= 0 || c.Lexical.MaxDocRatio > 1 {
		return fmt.Errorf("lexical.max_doc_ratio must be in (0,1], got %v", c.Lexical.MaxDocRatio)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
