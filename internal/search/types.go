// Package search fuses results from multiple retrieval strategies into a
// single ranked list. The engine maintains a record store plus four index
// structures (vector, TF-IDF, keyword, metadata/tag) and degrades gracefully
// when a strategy is unavailable.
package search

import (
	"time"

	"github.com/Melik1986/sortcore/internal/store"
)

// Strategy identifies one retrieval path through the engine.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyLexical  Strategy = "lexical"
	StrategyKeyword  Strategy = "keyword"
	StrategyMetadata Strategy = "metadata"
	StrategyTag      Strategy = "tag"
)

// AllStrategies returns every strategy in fusion order.
func AllStrategies() []Strategy {
	return []Strategy{StrategySemantic, StrategyLexical, StrategyKeyword, StrategyMetadata, StrategyTag}
}

// QuerySpec carries the query text and, optionally, a precomputed embedding.
// When Embedding is nil the engine asks its provider to embed the normalized
// text; if no provider is configured the semantic strategy is skipped.
type QuerySpec struct {
	Text      string
	Embedding []float32
}

// FilterSet holds post-fusion result filters. All fields are optional; zero
// values disable the corresponding filter. List filters are case-insensitive.
type FilterSet struct {
	Categories    []string
	Subcategories []string
	Languages     []string
	Frameworks    []string
	Tags          []string
	Difficulty    []string
	ContentTypes  []string

	// MinConfidence excludes resources below the threshold. Zero disables.
	MinConfidence float64

	// DateFrom and DateTo bound the resource creation date. Resources whose
	// date cannot be parsed are excluded when either bound is set.
	DateFrom time.Time
	DateTo   time.Time

	// FileExtensions match the extension of the resource file path,
	// e.g. ".py". Resources without a file path are excluded.
	FileExtensions []string
}

// Empty reports whether no filter is active.
func (f FilterSet) Empty() bool {
	return len(f.Categories) == 0 && len(f.Subcategories) == 0 &&
		len(f.Languages) == 0 && len(f.Frameworks) == 0 &&
		len(f.Tags) == 0 && len(f.Difficulty) == 0 &&
		len(f.ContentTypes) == 0 && f.MinConfidence == 0 &&
		f.DateFrom.IsZero() && f.DateTo.IsZero() &&
		len(f.FileExtensions) == 0
}

// SearchOptions tune a single query.
type SearchOptions struct {
	Filters FilterSet

	// TopK caps the result count. Zero means the configured default.
	TopK int

	// MinSimilarity overrides the configured similarity floor for the
	// semantic and lexical strategies. Zero means the configured default.
	MinSimilarity float64

	// Strategies restricts the query to a subset. Nil means all available.
	Strategies []Strategy
}

// RankedResult is one fused search hit.
type RankedResult struct {
	Resource *store.Resource

	// Score is the fused relevance in [0, 1] plus any agreement bonus.
	Score float64

	// MatchedStrategies lists the strategies that surfaced this resource,
	// in fusion order.
	MatchedStrategies []Strategy
}

// EngineStats is a point-in-time snapshot of engine state.
type EngineStats struct {
	TotalResources int            `json:"total_resources"`
	Categories     map[string]int `json:"categories"`
	Languages      map[string]int `json:"languages"`

	SemanticAvailable bool   `json:"semantic_available"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`

	Vector      store.VectorStats `json:"vector"`
	LexicalDocs int               `json:"lexical_docs"`
	KeywordDocs int               `json:"keyword_docs"`
	TaggedDocs  int               `json:"tagged_docs"`

	SkippedRecords int `json:"skipped_records"`
}
