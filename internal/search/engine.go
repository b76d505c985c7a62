package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Melik1986/sortcore/internal/config"
	"github.com/Melik1986/sortcore/internal/embed"
	"github.com/Melik1986/sortcore/internal/errors"
	"github.com/Melik1986/sortcore/internal/store"
)

const (
	recordsFile = "resources.db"
	vectorFile  = "vectors.hnsw"
	lockFile    = "sortcore.lock"
)

// Engine orchestrates the record store and the four retrieval indexes. All
// mutations go through the engine so the indexes stay consistent with the
// store; the store is written first, making it the source of truth when an
// index write fails partway.
type Engine struct {
	cfg      *config.Config
	records  store.RecordStore
	lexical  *store.TFIDFIndex
	keyword  *store.KeywordIndex
	tags     *store.TagIndex
	provider embed.Provider
	fuser    *Fuser
	logger   *slog.Logger

	// mu serializes mutations and guards vector replacement during
	// compaction. Searches take the read side.
	mu     sync.RWMutex
	vector *store.HNSWIndex

	flk        *flock.Flock
	vectorPath string
}

// Open initializes an engine over the configured data directory. The
// directory is created if missing and guarded by a file lock so only one
// process mutates it at a time. provider may be nil, which disables the
// semantic strategy entirely.
func Open(ctx context.Context, cfg *config.Config, provider embed.Provider, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dataDir := cfg.Paths.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreOpen, errors.CategoryStorage,
			fmt.Sprintf("creating data directory %s", dataDir))
	}

	flk := flock.New(filepath.Join(dataDir, lockFile))
	locked, err := flk.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreOpen, errors.CategoryStorage, "acquiring data directory lock")
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeStoreLocked, errors.CategoryStorage,
			fmt.Sprintf("data directory %s is locked by another process", dataDir))
	}

	records, err := store.OpenRecordStore(filepath.Join(dataDir, recordsFile))
	if err != nil {
		flk.Unlock()
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		records:    records,
		lexical:    store.NewTFIDFIndex(lexicalConfig(cfg)),
		keyword:    store.NewKeywordIndex(),
		tags:       store.NewTagIndex(),
		provider:   provider,
		fuser:      NewFuser(cfg.Search.Weights, cfg.Search.AgreementBonus),
		logger:     logger,
		flk:        flk,
		vectorPath: filepath.Join(dataDir, vectorFile),
	}

	if err := e.loadIndexes(ctx); err != nil {
		records.Close()
		flk.Unlock()
		return nil, err
	}
	return e, nil
}

// NewEngine wires an engine from pre-built components. Intended for tests;
// production callers use Open.
func NewEngine(cfg *config.Config, records store.RecordStore, vector *store.HNSWIndex, provider embed.Provider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		records:  records,
		lexical:  store.NewTFIDFIndex(lexicalConfig(cfg)),
		keyword:  store.NewKeywordIndex(),
		tags:     store.NewTagIndex(),
		provider: provider,
		fuser:    NewFuser(cfg.Search.Weights, cfg.Search.AgreementBonus),
		logger:   logger,
		vector:   vector,
	}
}

func lexicalConfig(cfg *config.Config) store.TFIDFConfig {
	return store.TFIDFConfig{
		MinDocFreq:    cfg.Lexical.MinDocFreq,
		MaxDocRatio:   cfg.Lexical.MaxDocRatio,
		MaxVocabulary: cfg.Lexical.MaxVocabulary,
	}
}

// loadIndexes rebuilds the in-memory indexes from the record store and
// restores or reconstructs the vector index.
func (e *Engine) loadIndexes(ctx context.Context) error {
	vector, err := e.restoreVectorIndex()
	if err != nil {
		return err
	}
	e.vector = vector

	count := 0
	err = e.records.IterateAll(ctx, func(r *store.Resource) error {
		e.keyword.Add(r.ID, r.Title, r.Content)
		e.tags.Add(r)
		if e.vector != nil && len(r.Embedding) > 0 && !e.vector.Contains(r.ID) {
			if addErr := e.vector.Add(ctx, r.ID, r.Embedding); addErr != nil {
				e.logger.Warn("skipping stored embedding", "id", r.ID, "error", addErr)
			}
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	e.lexical.MarkDirty()
	e.logger.Info("indexes loaded",
		"resources", count,
		"semantic", e.vector != nil,
		"skipped_records", e.records.SkippedRecords())
	return nil
}

// restoreVectorIndex loads the persisted vector index when present, else
// builds a fresh one when dimensions are configured or a provider is set.
// Returns nil when the semantic strategy cannot be served.
func (e *Engine) restoreVectorIndex() (*store.HNSWIndex, error) {
	if _, err := os.Stat(e.vectorPath); err == nil {
		idx, loadErr := store.LoadHNSWIndex(e.vectorPath)
		if loadErr == nil {
			return idx, nil
		}
		e.logger.Warn("vector index load failed, rebuilding", "path", e.vectorPath, "error", loadErr)
	}

	dims := e.cfg.Vector.Dimensions
	if dims == 0 && e.provider != nil {
		dims = e.provider.Dimensions()
	}
	if dims == 0 {
		return nil, nil
	}
	return store.NewHNSWIndex(store.VectorIndexConfig{
		Dimensions: dims,
		M:          e.cfg.Vector.M,
		EfSearch:   e.cfg.Vector.EfSearch,
	})
}

// AddResource validates, persists and indexes a resource, returning its id.
// A missing id is generated. When the resource has no embedding and a
// provider is available one is computed; embedding failures only disable the
// semantic strategy for this resource.
func (e *Engine) AddResource(ctx context.Context, r *store.Resource) (string, error) {
	if err := validateResource(r); err != nil {
		return "", err
	}
	r = r.Clone()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ContentPreview == "" {
		r.ContentPreview = MakePreview(r.Content, e.cfg.Search.PreviewLength)
	}
	if len(r.Embedding) == 0 && e.provider != nil && e.provider.Available(ctx) {
		emb, err := e.provider.Embed(ctx, EmbeddingText(r))
		if err != nil {
			e.logger.Warn("embedding failed, resource will not match semantically", "id", r.ID, "error", err)
		} else {
			r.Embedding = emb
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(r.Embedding) > 0 {
		if e.vector == nil {
			// First embedded resource fixes the index dimensionality.
			idx, err := store.NewHNSWIndex(store.VectorIndexConfig{
				Dimensions: len(r.Embedding),
				M:          e.cfg.Vector.M,
				EfSearch:   e.cfg.Vector.EfSearch,
			})
			if err != nil {
				return "", err
			}
			e.vector = idx
		} else if got := len(r.Embedding); got != e.vector.Dimensions() {
			return "", store.DimensionError{Expected: e.vector.Dimensions(), Got: got}
		}
	}

	if err := e.records.Put(ctx, r); err != nil {
		return "", err
	}
	if e.vector != nil && len(r.Embedding) > 0 {
		if err := e.vector.Add(ctx, r.ID, r.Embedding); err != nil {
			e.logger.Warn("vector index add failed", "id", r.ID, "error", err)
		}
	}
	e.keyword.Add(r.ID, r.Title, r.Content)
	e.tags.Add(r)
	e.lexical.MarkDirty()
	return r.ID, nil
}

// GetResource returns the stored resource, or nil when absent.
func (e *Engine) GetResource(ctx context.Context, id string) (*store.Resource, error) {
	return e.records.Get(ctx, id)
}

// UpdateResource replaces the resource stored under id. The previous version
// is removed from every index before the new one is added, so stale index
// entries cannot survive an update.
func (e *Engine) UpdateResource(ctx context.Context, id string, r *store.Resource) error {
	existing, err := e.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.New(errors.ErrCodeUnknownResource, errors.CategoryValidation,
			fmt.Sprintf("resource %s not found", id))
	}
	if _, err := e.RemoveResource(ctx, id); err != nil {
		return err
	}
	r = r.Clone()
	r.ID = id
	if r.CreatedDate == "" {
		r.CreatedDate = existing.CreatedDate
	}
	_, err = e.AddResource(ctx, r)
	return err
}

// RemoveResource deletes a resource from the store and all indexes. The
// vector index uses tombstones; when the tombstone ratio crosses the
// configured threshold the index is compacted in place.
func (e *Engine) RemoveResource(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existed, err := e.records.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	e.keyword.Remove(id)
	e.tags.Remove(id)
	if e.vector != nil {
		e.vector.Remove(id)
		if e.vector.NeedsCompaction(e.cfg.Vector.CompactionThreshold) {
			if cerr := e.compactLocked(ctx); cerr != nil {
				e.logger.Warn("vector compaction failed", "error", cerr)
			}
		}
	}
	if existed {
		e.lexical.MarkDirty()
	}
	return existed, nil
}

func validateResource(r *store.Resource) error {
	if r == nil || (strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Content) == "") {
		return errors.New(errors.ErrCodeEmptyResource, errors.CategoryValidation,
			"resource must have a title or content")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return errors.Newf(errors.ErrCodeInvalidConfidence, errors.CategoryValidation,
			"confidence must be in [0,1], got %v", r.Confidence)
	}
	return nil
}

// Search runs the query through every enabled strategy in parallel, fuses the
// per-strategy hits, resolves resources from the store, applies filters and
// returns the top results. A strategy that fails logs a warning and drops out
// rather than failing the query.
func (e *Engine) Search(ctx context.Context, query QuerySpec, opts SearchOptions) ([]*RankedResult, error) {
	text := store.NormalizeQuery(query.Text)
	if text == "" && len(query.Embedding) == 0 {
		return nil, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 20
	}
	if topK > e.cfg.Search.MaxResults {
		topK = e.cfg.Search.MaxResults
	}
	minSim := opts.MinSimilarity
	if minSim <= 0 {
		minSim = e.cfg.Search.MinSimilarity
	}

	if err := e.maybeRebuildLexical(ctx); err != nil {
		return nil, err
	}

	e.mu.RLock()
	vector := e.vector
	e.mu.RUnlock()

	queryEmb := query.Embedding
	enabled := e.enabledStrategies(opts.Strategies, vector != nil && vector.Available())
	if enabled[StrategySemantic] && len(queryEmb) == 0 {
		if e.provider == nil || !e.provider.Available(ctx) {
			delete(enabled, StrategySemantic)
		} else {
			emb, err := e.provider.Embed(ctx, text)
			if err != nil {
				e.logger.Warn("query embedding failed, skipping semantic strategy", "error", err)
				delete(enabled, StrategySemantic)
			} else {
				queryEmb = emb
			}
		}
	}

	limit := e.cfg.Search.CandidateLimit
	var (
		hitsMu sync.Mutex
		hits   = make(map[Strategy][]store.Hit, len(enabled))
	)
	record := func(s Strategy, h []store.Hit) {
		if len(h) == 0 {
			return
		}
		hitsMu.Lock()
		hits[s] = h
		hitsMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	if enabled[StrategySemantic] {
		g.Go(func() error {
			found, err := vector.Search(gctx, queryEmb, limit)
			if err != nil {
				e.logger.Warn("semantic search failed", "error", err)
				return nil
			}
			record(StrategySemantic, aboveThreshold(found, minSim))
			return nil
		})
	}
	if enabled[StrategyLexical] && e.lexical.Available() {
		g.Go(func() error {
			record(StrategyLexical, aboveThreshold(e.lexical.Search(text, limit), minSim))
			return nil
		})
	}
	if enabled[StrategyKeyword] {
		g.Go(func() error {
			record(StrategyKeyword, e.keyword.Search(store.KeywordTokens(text), limit))
			return nil
		})
	}
	if enabled[StrategyMetadata] {
		g.Go(func() error {
			record(StrategyMetadata, scaleHits(e.tags.MatchMetadata(store.Tokenize(text), limit), e.cfg.Search.MetadataScore))
			return nil
		})
	}
	if enabled[StrategyTag] {
		g.Go(func() error {
			record(StrategyTag, scaleHits(e.tags.MatchTags(text, limit), e.cfg.Search.TagScore))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := e.resolve(ctx, e.fuser.Fuse(hits))
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Resource.Confidence != results[j].Resource.Confidence {
			return results[i].Resource.Confidence > results[j].Resource.Confidence
		}
		return results[i].Resource.ID < results[j].Resource.ID
	})
	results = ApplyFilters(results, opts.Filters)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// enabledStrategies intersects the requested subset with what the engine can
// currently serve.
func (e *Engine) enabledStrategies(requested []Strategy, semanticUp bool) map[Strategy]bool {
	enabled := make(map[Strategy]bool, 5)
	if requested == nil {
		for _, s := range AllStrategies() {
			enabled[s] = true
		}
	} else {
		for _, s := range requested {
			enabled[s] = true
		}
	}
	if !semanticUp {
		delete(enabled, StrategySemantic)
	}
	return enabled
}

// resolve maps fused candidates back to stored resources. Candidates whose
// resource has since been removed are dropped, so results never contain
// dangling ids.
func (e *Engine) resolve(ctx context.Context, candidates []fusedCandidate) []*RankedResult {
	results := make([]*RankedResult, 0, len(candidates))
	for _, c := range candidates {
		r, err := e.records.Get(ctx, c.id)
		if err != nil {
			e.logger.Warn("resolving search hit failed", "id", c.id, "error", err)
			continue
		}
		if r == nil {
			continue
		}
		results = append(results, &RankedResult{
			Resource:          r,
			Score:             c.score,
			MatchedStrategies: orderStrategies(c.strategies),
		})
	}
	return results
}

func orderStrategies(matched []Strategy) []Strategy {
	set := make(map[Strategy]bool, len(matched))
	for _, s := range matched {
		set[s] = true
	}
	out := make([]Strategy, 0, len(matched))
	for _, s := range AllStrategies() {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func aboveThreshold(hits []store.Hit, min float64) []store.Hit {
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= min {
			out = append(out, h)
		}
	}
	return out
}

func scaleHits(hits []store.Hit, factor float64) []store.Hit {
	for i := range hits {
		hits[i].Score *= factor
	}
	return hits
}

// maybeRebuildLexical rebuilds the TF-IDF snapshot when mutations have
// invalidated it. The corpus is the same composed text resources are
// embedded under, so lexical and semantic retrieval see identical documents.
func (e *Engine) maybeRebuildLexical(ctx context.Context) error {
	if !e.lexical.Dirty() {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.lexical.Dirty() {
		return nil
	}
	var corpus []store.Document
	err := e.records.IterateAll(ctx, func(r *store.Resource) error {
		corpus = append(corpus, store.Document{ID: r.ID, Text: EmbeddingText(r)})
		return nil
	})
	if err != nil {
		return err
	}
	e.lexical.Rebuild(corpus)
	e.logger.Debug("lexical index rebuilt", "documents", len(corpus))
	return nil
}

// Compact rebuilds the vector index from live records, dropping tombstones.
func (e *Engine) Compact(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compactLocked(ctx)
}

func (e *Engine) compactLocked(ctx context.Context) error {
	if e.vector == nil {
		return nil
	}
	before := e.vector.Stats()
	fresh, err := store.NewHNSWIndex(store.VectorIndexConfig{
		Dimensions: e.vector.Dimensions(),
		M:          e.cfg.Vector.M,
		EfSearch:   e.cfg.Vector.EfSearch,
	})
	if err != nil {
		return err
	}
	err = e.records.IterateAll(ctx, func(r *store.Resource) error {
		if len(r.Embedding) == 0 {
			return nil
		}
		if addErr := fresh.Add(ctx, r.ID, r.Embedding); addErr != nil {
			e.logger.Warn("compaction skipped embedding", "id", r.ID, "error", addErr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.vector = fresh
	e.logger.Info("vector index compacted",
		"tombstones_dropped", before.Tombstones,
		"live", fresh.Count())
	return nil
}

// Stats reports engine-wide counts and strategy availability.
func (e *Engine) Stats(ctx context.Context) (*EngineStats, error) {
	total, err := e.records.Count(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := e.records.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	languages, err := e.records.LanguageCounts(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	vector := e.vector
	e.mu.RUnlock()

	stats := &EngineStats{
		TotalResources:    total,
		Categories:        categories,
		Languages:         languages,
		SemanticAvailable: vector != nil,
		LexicalDocs:       e.lexical.DocCount(),
		KeywordDocs:       e.keyword.Count(),
		TaggedDocs:        e.tags.Count(),
		SkippedRecords:    e.records.SkippedRecords(),
	}
	if vector != nil {
		stats.Vector = vector.Stats()
	}
	if e.provider != nil {
		stats.EmbeddingModel = e.provider.ModelName()
	}
	return stats, nil
}

// Close persists the vector index, releases the data directory lock and
// closes the store and provider. Safe to call once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.vector != nil && e.vectorPath != "" {
		if err := e.vector.Save(e.vectorPath); err != nil {
			errs = append(errs, err)
		}
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.records.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.flk != nil {
		if err := e.flk.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
