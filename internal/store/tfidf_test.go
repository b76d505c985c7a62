package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLexical(t *testing.T, cfg TFIDFConfig, corpus []Document) *TFIDFIndex {
	t.Helper()
	idx := NewTFIDFIndex(cfg)
	idx.Rebuild(corpus)
	return idx
}

func TestTFIDFIndex_DirtyLifecycle(t *testing.T) {
	idx := NewTFIDFIndex(TFIDFConfig{})
	assert.False(t, idx.Dirty())

	idx.MarkDirty()
	assert.True(t, idx.Dirty())

	idx.Rebuild(nil)
	assert.False(t, idx.Dirty())
	assert.Equal(t, 0, idx.DocCount())
}

func TestTFIDFIndex_SearchRanking(t *testing.T) {
	corpus := []Document{
		{ID: "scraping-1", Text: "python web scraping with beautifulsoup and requests"},
		{ID: "scraping-2", Text: "web scraping tutorial using python selenium"},
		{ID: "golang-1", Text: "golang http server middleware patterns"},
		{ID: "golang-2", Text: "golang http client retries"},
	}
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 1}, corpus)
	assert.Equal(t, 4, idx.DocCount())

	hits := idx.Search("python web scraping", 10)
	require.NotEmpty(t, hits)

	// Both scraping documents outrank golang ones, which do not match at all.
	ids := make(map[string]bool)
	for _, h := range hits {
		ids[h.ID] = true
		assert.Greater(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0+1e-9)
	}
	assert.True(t, ids["scraping-1"])
	assert.True(t, ids["scraping-2"])
	assert.False(t, ids["golang-1"])
	assert.False(t, ids["golang-2"])
}

func TestTFIDFIndex_BigramsBoostPhrases(t *testing.T) {
	corpus := []Document{
		{ID: "phrase", Text: "machine learning fundamentals machine learning"},
		{ID: "split", Text: "machine shop tools and learning piano"},
	}
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 1}, corpus)

	hits := idx.Search("machine learning", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "phrase", hits[0].ID)
}

func TestTFIDFIndex_MinDocFreqExcludesRareTerms(t *testing.T) {
	corpus := []Document{
		{ID: "d1", Text: "kubernetes deployment guide"},
		{ID: "d2", Text: "kubernetes service mesh"},
		{ID: "d3", Text: "xylophone lessons"},
	}
	// MinDocFreq 2: "xylophone" appears in one document only.
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 2}, corpus)

	assert.Empty(t, idx.Search("xylophone", 10))
	assert.NotEmpty(t, idx.Search("kubernetes", 10))
}

func TestTFIDFIndex_MaxVocabularyCaps(t *testing.T) {
	corpus := []Document{
		{ID: "d1", Text: "alpha beta gamma delta alpha alpha"},
		{ID: "d2", Text: "alpha beta gamma delta beta"},
	}
	// Only the two highest-frequency terms survive the cap.
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 1, MaxDocRatio: 1.0, MaxVocabulary: 2}, corpus)

	assert.NotEmpty(t, idx.Search("alpha", 10))
	assert.Empty(t, idx.Search("delta", 10))
}

func TestTFIDFIndex_SearchBeforeRebuild(t *testing.T) {
	idx := NewTFIDFIndex(TFIDFConfig{})
	assert.Empty(t, idx.Search("anything", 5))
}

func TestTFIDFIndex_UnknownTerms(t *testing.T) {
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 1}, []Document{
		{ID: "d1", Text: "rust ownership borrowing"},
	})
	assert.Empty(t, idx.Search("quantum chromodynamics", 5))
}

func TestTFIDFIndex_LimitRespected(t *testing.T) {
	corpus := []Document{
		{ID: "d1", Text: "testing in go with testify"},
		{ID: "d2", Text: "testing http handlers in go"},
		{ID: "d3", Text: "go testing benchmarks"},
	}
	idx := buildLexical(t, TFIDFConfig{MinDocFreq: 1}, corpus)

	hits := idx.Search("go testing", 2)
	assert.LessOrEqual(t, len(hits), 2)
}
