package store

import (
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"
)

// TFIDFIndex answers cosine-similarity queries over a TF-IDF weighted
// document-term matrix rebuilt from the full live corpus.
//
// Mutations never touch the matrix; they mark the index dirty and the engine
// rebuilds eagerly before the next query, so searches never observe stale
// lexical results. A rebuild constructs an immutable snapshot and publishes
// it with an atomic pointer swap, so concurrent searches keep reading the
// previous snapshot untouched.
type TFIDFIndex struct {
	config   TFIDFConfig
	snapshot atomic.Pointer[tfidfSnapshot]
	dirty    atomic.Bool
}

// tfidfSnapshot is an immutable vocabulary + document matrix.
type tfidfSnapshot struct {
	vocabulary map[string]int // term -> column
	idf        []float64      // per column, smoothed
	docIDs     []string
	docVecs    []map[int]float64 // sparse L2-normalized tf-idf rows
}

// NewTFIDFIndex creates an empty lexical index.
func NewTFIDFIndex(cfg TFIDFConfig) *TFIDFIndex {
	if cfg.MinDocFreq <= 0 {
		cfg.MinDocFreq = 2
	}
	if cfg.MaxDocRatio <= 0 || cfg.MaxDocRatio > 1 {
		cfg.MaxDocRatio = 0.8
	}
	if cfg.MaxVocabulary <= 0 {
		cfg.MaxVocabulary = 5000
	}
	return &TFIDFIndex{config: cfg}
}

// MarkDirty records that the corpus changed since the last rebuild.
func (x *TFIDFIndex) MarkDirty() {
	x.dirty.Store(true)
}

// Dirty reports whether the matrix is stale relative to the corpus.
func (x *TFIDFIndex) Dirty() bool {
	return x.dirty.Load()
}

// Available reports whether a snapshot has been built.
func (x *TFIDFIndex) Available() bool {
	return x.snapshot.Load() != nil
}

// DocCount returns the number of documents in the current snapshot.
func (x *TFIDFIndex) DocCount() int {
	snap := x.snapshot.Load()
	if snap == nil {
		return 0
	}
	return len(snap.docIDs)
}

// Rebuild recomputes the vocabulary and document-term matrix from the given
// corpus and atomically swaps it in, clearing the dirty flag.
func (x *TFIDFIndex) Rebuild(corpus []Document) {
	start := time.Now()

	snap := buildSnapshot(corpus, x.config)
	x.snapshot.Store(snap)
	x.dirty.Store(false)

	slog.Debug("lexical index rebuilt",
		slog.Int("documents", len(snap.docIDs)),
		slog.Int("vocabulary", len(snap.vocabulary)),
		slog.Duration("elapsed", time.Since(start)))
}

// Search scores query text against the current snapshot and returns up to k
// hits with cosine similarity above zero, ordered descending.
func (x *TFIDFIndex) Search(query string, k int) []Hit {
	snap := x.snapshot.Load()
	if snap == nil || len(snap.docIDs) == 0 || k <= 0 {
		return []Hit{}
	}

	queryVec := snap.vectorize(lexicalTerms(query))
	if len(queryVec) == 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, len(snap.docIDs))
	for i, docVec := range snap.docVecs {
		score := sparseDot(queryVec, docVec)
		if score > 0 {
			hits = append(hits, Hit{ID: snap.docIDs[i], Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// lexicalTerms produces unigram and bigram terms with stop words removed.
func lexicalTerms(text string) []string {
	tokens := Tokenize(text)
	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			kept = append(kept, t)
		}
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// buildSnapshot computes the vocabulary and L2-normalized tf-idf rows.
func buildSnapshot(corpus []Document, cfg TFIDFConfig) *tfidfSnapshot {
	n := len(corpus)
	snap := &tfidfSnapshot{vocabulary: make(map[string]int)}
	if n == 0 {
		return snap
	}

	// Term frequencies per document and document frequencies per term.
	docTerms := make([]map[string]int, n)
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)
	for i, doc := range corpus {
		counts := make(map[string]int)
		for _, term := range lexicalTerms(doc.Text) {
			counts[term]++
		}
		docTerms[i] = counts
		for term, c := range counts {
			docFreq[term]++
			totalFreq[term] += c
		}
	}

	// Vocabulary selection: document-frequency band, then a total-frequency
	// cap to bound matrix width.
	maxDF := int(cfg.MaxDocRatio * float64(n))
	if maxDF < cfg.MinDocFreq {
		maxDF = cfg.MinDocFreq
	}
	type candidate struct {
		term string
		freq int
	}
	var candidates []candidate
	for term, df := range docFreq {
		if df < cfg.MinDocFreq || df > maxDF {
			continue
		}
		candidates = append(candidates, candidate{term: term, freq: totalFreq[term]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].freq != candidates[j].freq {
			return candidates[i].freq > candidates[j].freq
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > cfg.MaxVocabulary {
		candidates = candidates[:cfg.MaxVocabulary]
	}

	for i, c := range candidates {
		snap.vocabulary[c.term] = i
	}

	// Smoothed inverse document frequency.
	snap.idf = make([]float64, len(snap.vocabulary))
	for term, col := range snap.vocabulary {
		snap.idf[col] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	// L2-normalized tf-idf rows.
	snap.docIDs = make([]string, n)
	snap.docVecs = make([]map[int]float64, n)
	for i, doc := range corpus {
		snap.docIDs[i] = doc.ID
		vec := make(map[int]float64)
		for term, count := range docTerms[i] {
			col, ok := snap.vocabulary[term]
			if !ok {
				continue
			}
			vec[col] = float64(count) * snap.idf[col]
		}
		normalizeSparse(vec)
		snap.docVecs[i] = vec
	}

	return snap
}

// vectorize transforms query terms with the snapshot vocabulary and idf,
// returning an L2-normalized sparse vector.
func (s *tfidfSnapshot) vectorize(terms []string) map[int]float64 {
	counts := make(map[int]float64)
	for _, term := range terms {
		if col, ok := s.vocabulary[term]; ok {
			counts[col]++
		}
	}
	for col := range counts {
		counts[col] *= s.idf[col]
	}
	normalizeSparse(counts)
	return counts
}

// normalizeSparse scales a sparse vector to unit length in place.
func normalizeSparse(vec map[int]float64) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sumSquares)
	for col := range vec {
		vec[col] *= inv
	}
}

// sparseDot computes the dot product of two sparse vectors, iterating the
// smaller one.
func sparseDot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for col, av := range a {
		if bv, ok := b[col]; ok {
			dot += av * bv
		}
	}
	return dot
}
