package store

import (
	"sort"
	"sync"
)

// KeywordIndex is an inverted index from normalized tokens to resource ids,
// updated incrementally on add and remove (no rebuild). Title tokens score
// double content tokens, mirroring the original ranking.
type KeywordIndex struct {
	mu sync.RWMutex

	titlePostings   map[string]map[string]struct{} // token -> ids
	contentPostings map[string]map[string]struct{}

	// Reverse maps so Remove needs only the id.
	titleTokens   map[string][]string
	contentTokens map[string][]string
}

// NewKeywordIndex creates an empty keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{
		titlePostings:   make(map[string]map[string]struct{}),
		contentPostings: make(map[string]map[string]struct{}),
		titleTokens:     make(map[string][]string),
		contentTokens:   make(map[string][]string),
	}
}

// Add indexes the resource's title and content tokens. An existing id is
// fully replaced.
func (x *KeywordIndex) Add(id, title, content string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(id)

	titleTokens := uniqueTokens(Tokenize(title))
	contentTokens := uniqueTokens(Tokenize(content))

	for _, t := range titleTokens {
		ids, ok := x.titlePostings[t]
		if !ok {
			ids = make(map[string]struct{})
			x.titlePostings[t] = ids
		}
		ids[id] = struct{}{}
	}
	for _, t := range contentTokens {
		ids, ok := x.contentPostings[t]
		if !ok {
			ids = make(map[string]struct{})
			x.contentPostings[t] = ids
		}
		ids[id] = struct{}{}
	}

	x.titleTokens[id] = titleTokens
	x.contentTokens[id] = contentTokens
}

// Remove deletes all postings for id, reporting whether it was indexed.
func (x *KeywordIndex) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(id)
}

func (x *KeywordIndex) removeLocked(id string) bool {
	_, hadTitle := x.titleTokens[id]
	_, hadContent := x.contentTokens[id]
	if !hadTitle && !hadContent {
		return false
	}

	for _, t := range x.titleTokens[id] {
		if ids := x.titlePostings[t]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(x.titlePostings, t)
			}
		}
	}
	for _, t := range x.contentTokens[id] {
		if ids := x.contentPostings[t]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(x.contentPostings, t)
			}
		}
	}

	delete(x.titleTokens, id)
	delete(x.contentTokens, id)
	return true
}

// Search matches query tokens against the postings. Relevance per id is
// min(1, (2*titleHits + contentHits) / (2*len(tokens))), so a resource
// matching every token in its title scores 1.0.
func (x *KeywordIndex) Search(tokens []string, limit int) []Hit {
	if len(tokens) == 0 || limit <= 0 {
		return []Hit{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	scores := make(map[string]int)
	for _, t := range tokens {
		for id := range x.titlePostings[t] {
			scores[id] += 2
		}
		for id := range x.contentPostings[t] {
			scores[id]++
		}
	}

	denom := float64(2 * len(tokens))
	hits := make([]Hit, 0, len(scores))
	for id, raw := range scores {
		score := float64(raw) / denom
		if score > 1 {
			score = 1
		}
		hits = append(hits, Hit{ID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Count returns the number of indexed resources.
func (x *KeywordIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	ids := make(map[string]struct{}, len(x.titleTokens))
	for id := range x.titleTokens {
		ids[id] = struct{}{}
	}
	for id := range x.contentTokens {
		ids[id] = struct{}{}
	}
	return len(ids)
}

// uniqueTokens deduplicates while preserving first-seen order.
func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
