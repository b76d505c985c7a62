package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T, dims int) *HNSWIndex {
	t.Helper()
	idx, err := NewHNSWIndex(VectorIndexConfig{Dimensions: dims})
	require.NoError(t, err)
	return idx
}

func TestHNSWIndex_InvalidDimensions(t *testing.T) {
	_, err := NewHNSWIndex(VectorIndexConfig{Dimensions: 0})
	require.Error(t, err)
}

func TestHNSWIndex_AddSearch(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "x-axis", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "y-axis", []float32{0, 1, 0}))
	require.NoError(t, idx.Add(ctx, "near-x", []float32{0.9, 0.1, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Exact match first, then the nearby vector.
	assert.Equal(t, "x-axis", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "near-x", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	err := idx.Add(ctx, "bad", []float32{1, 0})
	require.Error(t, err)

	var dimErr DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
	assert.Equal(t, 0, idx.Count())

	_, err = idx.Search(ctx, []float32{1, 0}, 5)
	require.Error(t, err)
}

func TestHNSWIndex_RemoveTombstones(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "keep", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "drop", []float32{0.95, 0.05, 0}))

	assert.True(t, idx.Remove("drop"))
	assert.False(t, idx.Remove("drop"))
	assert.False(t, idx.Contains("drop"))

	// The removed vector never surfaces, even though it is still in the graph.
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep", hits[0].ID)

	stats := idx.Stats()
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, 2, stats.GraphNodes)
	assert.Equal(t, 1, stats.Tombstones)
}

func TestHNSWIndex_AddReplaces(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "res", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "res", []float32{0, 1, 0}))

	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "res", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestHNSWIndex_NeedsCompaction(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, idx.Add(ctx, id, []float32{1, 0, 0}))
	}
	assert.False(t, idx.NeedsCompaction(0.2))

	idx.Remove("a")
	// 1 tombstone / 4 live = 0.25 > 0.2
	assert.True(t, idx.NeedsCompaction(0.2))
	assert.False(t, idx.NeedsCompaction(0.5))
}

func TestHNSWIndex_SaveLoad(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "x-axis", []float32{1, 0, 0}))
	require.NoError(t, idx.Add(ctx, "y-axis", []float32{0, 1, 0}))
	require.NoError(t, idx.Add(ctx, "gone", []float32{0, 0, 1}))
	idx.Remove("gone")

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadHNSWIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dimensions())
	assert.Equal(t, 2, loaded.Count())
	assert.False(t, loaded.Contains("gone"))

	hits, err := loaded.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "x-axis", hits[0].ID)
}

func TestHNSWIndex_LoadMissing(t *testing.T) {
	_, err := LoadHNSWIndex(filepath.Join(t.TempDir(), "absent.hnsw"))
	require.Error(t, err)
}

func TestHNSWIndex_SearchEmpty(t *testing.T) {
	idx := newTestVectorIndex(t, 3)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
