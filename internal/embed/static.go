package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// DefaultStaticDimensions is the dimension used when none is requested.
const DefaultStaticDimensions = 256

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticProvider generates embeddings by hashing tokens and character
// n-grams into a fixed-size vector. No network, no model download,
// deterministic output; semantic quality is reduced but related texts still
// land near each other through shared tokens and n-grams.
type StaticProvider struct {
	mu         sync.RWMutex
	dimensions int
	closed     bool
}

// NewStaticProvider creates a static embedder with the given dimension.
// A non-positive dimension falls back to DefaultStaticDimensions.
func NewStaticProvider(dimensions int) *StaticProvider {
	if dimensions <= 0 {
		dimensions = DefaultStaticDimensions
	}
	return &StaticProvider{dimensions: dimensions}
}

// Embed generates an embedding for a single text.
func (p *StaticProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	p.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, p.dimensions), nil
	}

	vector := make([]float32, p.dimensions)

	for _, token := range staticTokens(trimmed) {
		vector[hashToIndex(token, p.dimensions)] += tokenWeight
	}

	normalized := normalizeForNgrams(trimmed)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, p.dimensions)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// Dimensions returns the embedding dimension.
func (p *StaticProvider) Dimensions() int {
	return p.dimensions
}

// ModelName returns the model identifier.
func (p *StaticProvider) ModelName() string {
	return fmt.Sprintf("static-%d", p.dimensions)
}

// Available reports readiness (always true until closed).
func (p *StaticProvider) Available(_ context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// Close releases resources.
func (p *StaticProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// staticTokens lowercases and splits text into word tokens.
func staticTokens(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

// normalizeForNgrams keeps only lowercase letters and digits.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to a vector index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// normalizeVector scales a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Verify interface implementation.
var _ Provider = (*StaticProvider)(nil)
