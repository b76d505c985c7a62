// Package store provides the persistence and index layer for sortcore:
// the SQLite record store (ground truth), the HNSW vector index, the TF-IDF
// lexical index, and the incremental keyword and tag indexes.
package store

import (
	"context"
	"fmt"
)

// Resource is the unit of indexing: one classified snippet, link, or document
// with its metadata. The record store is authoritative for every field.
type Resource struct {
	ID             string   // Unique, immutable once assigned
	Title          string   //
	Content        string   // Full text used for lexical/keyword indexing
	ContentPreview string   // Derived, truncated at word boundary
	Category       string   //
	Subcategory    string   // Optional
	Confidence     float64  // Classification confidence in [0,1]
	Tags           []string //
	Languages      []string // Programming languages
	Frameworks     []string //
	Topics         []string //
	Difficulty     string   // Optional difficulty level
	ContentType    string   // snippet, link, document, ...
	FilePath       string   // Optional source path; used for extension filtering
	CreatedDate    string   // Optional ISO 8601 timestamp
	ModifiedDate   string   // Optional ISO 8601 timestamp
	IndexedDate    string   // Set by the record store on Put
	Embedding      []float32
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Languages = append([]string(nil), r.Languages...)
	cp.Frameworks = append([]string(nil), r.Frameworks...)
	cp.Topics = append([]string(nil), r.Topics...)
	cp.Embedding = append([]float32(nil), r.Embedding...)
	return &cp
}

// RecordStore is durable keyed storage of resources, the ground truth every
// other index is rebuilt from.
type RecordStore interface {
	// Put overwrites any prior record with the same id.
	Put(ctx context.Context, r *Resource) error

	// Get returns the resource or nil if absent.
	Get(ctx context.Context, id string) (*Resource, error)

	// Delete removes the record, reporting whether one existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListByCategory returns all resources in a category.
	ListByCategory(ctx context.Context, category string) ([]*Resource, error)

	// IterateAll invokes fn for every readable record. Records that fail to
	// deserialize are skipped and logged rather than failing the iteration.
	IterateAll(ctx context.Context, fn func(*Resource) error) error

	// Count returns the number of stored resources.
	Count(ctx context.Context) (int, error)

	// CategoryCounts returns per-category resource counts.
	CategoryCounts(ctx context.Context) (map[string]int, error)

	// LanguageCounts returns per-programming-language resource counts.
	LanguageCounts(ctx context.Context) (map[string]int, error)

	// TitlesLike returns distinct titles containing the fragment, for
	// search suggestions.
	TitlesLike(ctx context.Context, fragment string, limit int) ([]string, error)

	// SkippedRecords reports how many corrupt records were skipped during
	// iterations since open.
	SkippedRecords() int

	Close() error
}

// Hit is one strategy match: a resource id with that strategy's score.
type Hit struct {
	ID    string
	Score float64
}

// Document is a (id, text) pair handed to the lexical index on rebuild.
type Document struct {
	ID   string
	Text string
}

// VectorIndexConfig configures the HNSW vector index.
type VectorIndexConfig struct {
	// Dimensions is the fixed embedding dimension. Vectors with any other
	// dimension are rejected, never truncated.
	Dimensions int

	// M is HNSW max connections per layer (default: 16).
	M int

	// EfSearch is HNSW query-time search width (default: 20).
	EfSearch int
}

// DefaultVectorIndexConfig returns sensible defaults for the given dimension.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}

// TFIDFConfig configures the lexical index vocabulary.
type TFIDFConfig struct {
	// MinDocFreq is the minimum document frequency for a term to enter the
	// vocabulary (default: 2).
	MinDocFreq int

	// MaxDocRatio excludes terms present in more than this fraction of the
	// corpus (default: 0.8).
	MaxDocRatio float64

	// MaxVocabulary caps vocabulary size, keeping the most frequent terms
	// (default: 5000).
	MaxVocabulary int
}

// DefaultTFIDFConfig returns the defaults used by the original system.
func DefaultTFIDFConfig() TFIDFConfig {
	return TFIDFConfig{
		MinDocFreq:    2,
		MaxDocRatio:   0.8,
		MaxVocabulary: 5000,
	}
}

// DimensionError reports an embedding whose dimension does not match the
// index's configured dimension. The offending add is rejected; the index is
// left untouched.
type DimensionError struct {
	Expected int
	Got      int
}

func (e DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
