package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex is the nearest-neighbor index over L2-normalized embeddings,
// built on the pure Go coder/hnsw graph.
//
// The underlying graph has no reliable deletion, so Remove tombstones: the
// id mapping is dropped and search skips nodes without a mapping, while the
// physical vector stays in the graph until the engine compacts (rebuilds a
// fresh index from the record store and swaps it in).
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorIndexConfig

	// ID mapping (string <-> uint64). A graph node whose key has no entry
	// in keyMap is a tombstone.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// hnswSidecar stores ID mappings and config for persistence.
type hnswSidecar struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  VectorIndexConfig
}

// NewHNSWIndex creates a vector index with the dimension fixed for its
// lifetime.
func NewHNSWIndex(cfg VectorIndexConfig) (*HNSWIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector index requires positive dimensions, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

// Dimensions returns the fixed embedding dimension.
func (x *HNSWIndex) Dimensions() int {
	return x.config.Dimensions
}

// Add inserts a vector under id, replacing any existing vector for that id
// (the old node becomes a tombstone). A vector of the wrong dimension is
// rejected with DimensionError and the index is left untouched.
func (x *HNSWIndex) Add(ctx context.Context, id string, vector []float32) error {
	if len(vector) != x.config.Dimensions {
		return DimensionError{Expected: x.config.Dimensions, Got: len(vector)}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("vector index is closed")
	}

	if existingKey, exists := x.idMap[id]; exists {
		// Tombstone the old node instead of graph deletion; deleting the
		// last node breaks the coder/hnsw graph.
		delete(x.keyMap, existingKey)
		delete(x.idMap, id)
	}

	key := x.nextKey
	x.nextKey++

	// Normalize so inner-product search equals cosine similarity.
	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeVectorInPlace(vec)

	x.graph.Add(hnsw.MakeNode(key, vec))
	x.idMap[id] = key
	x.keyMap[key] = id

	return nil
}

// Search returns up to k live neighbors ordered by descending cosine
// similarity. Tombstoned nodes are excluded client-side.
func (x *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != x.config.Dimensions {
		return nil, DimensionError{Expected: x.config.Dimensions, Got: len(query)}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if x.graph.Len() == 0 || k <= 0 {
		return []Hit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	// Over-fetch to compensate for tombstones filtered below.
	fetch := k
	if tombs := x.graph.Len() - len(x.idMap); tombs > 0 {
		fetch += tombs
	}

	nodes := x.graph.Search(normalized, fetch)

	results := make([]Hit, 0, k)
	for _, node := range nodes {
		id, live := x.keyMap[node.Key]
		if !live {
			continue // tombstone
		}
		distance := x.graph.Distance(normalized, node.Value)
		results = append(results, Hit{
			ID:    id,
			Score: cosineDistanceToScore(distance),
		})
		if len(results) == k {
			break
		}
	}

	return results, nil
}

// Remove tombstones id, reporting whether it was present. The vector stays
// in the graph until compaction but never appears in search results.
func (x *HNSWIndex) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return false
	}

	key, exists := x.idMap[id]
	if !exists {
		return false
	}
	delete(x.keyMap, key)
	delete(x.idMap, id)
	return true
}

// Available reports whether the index can serve searches.
func (x *HNSWIndex) Available() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return !x.closed
}

// Contains reports whether id is live in the index.
func (x *HNSWIndex) Contains(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, exists := x.idMap[id]
	return exists
}

// Count returns the number of live vectors.
func (x *HNSWIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

// VectorStats describes index occupancy for compaction decisions.
type VectorStats struct {
	Live       int // live id mappings
	GraphNodes int // total graph nodes, tombstones included
	Tombstones int // GraphNodes - Live
}

// Stats returns occupancy statistics.
func (x *HNSWIndex) Stats() VectorStats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return VectorStats{}
	}
	live := len(x.idMap)
	nodes := x.graph.Len()
	return VectorStats{
		Live:       live,
		GraphNodes: nodes,
		Tombstones: nodes - live,
	}
}

// NeedsCompaction reports whether the tombstone ratio against live entries
// exceeds threshold.
func (x *HNSWIndex) NeedsCompaction(threshold float64) bool {
	s := x.Stats()
	if s.Live == 0 {
		return s.Tombstones > 0
	}
	return float64(s.Tombstones)/float64(s.Live) > threshold
}

// Save persists the graph and id mappings using temp-file + rename.
func (x *HNSWIndex) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := x.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	if err := x.saveSidecar(path + ".meta"); err != nil {
		return fmt.Errorf("save index sidecar: %w", err)
	}
	return nil
}

func (x *HNSWIndex) saveSidecar(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	meta := hnswSidecar{
		IDMap:   x.idMap,
		NextKey: x.nextKey,
		Config:  x.config,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadHNSWIndex restores a saved index from path. Returns os.ErrNotExist
// (wrapped) when no snapshot is present.
func LoadHNSWIndex(path string) (*HNSWIndex, error) {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return nil, fmt.Errorf("open index sidecar: %w", err)
	}
	defer metaFile.Close()

	var meta hnswSidecar
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode index sidecar: %w", err)
	}

	x, err := NewHNSWIndex(meta.Config)
	if err != nil {
		return nil, err
	}
	x.idMap = meta.IDMap
	x.nextKey = meta.NextKey
	for id, key := range x.idMap {
		x.keyMap[key] = id
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}

	slog.Debug("loaded vector index snapshot",
		slog.String("path", path),
		slog.Int("live", len(x.idMap)),
		slog.Int("nodes", x.graph.Len()))

	return x, nil
}

// Close releases resources. The index is unusable afterwards.
func (x *HNSWIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	x.graph = nil
	return nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// cosineDistanceToScore converts cosine distance (0-2) to similarity (0-1).
func cosineDistanceToScore(distance float32) float64 {
	return float64(1.0 - distance/2.0)
}
