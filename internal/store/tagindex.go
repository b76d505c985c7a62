package store

import (
	"sort"
	"strings"
	"sync"
)

// TagIndex is the field-level index over category, subcategory, tags,
// languages, frameworks, topics, and content type. It backs the metadata and
// tag search strategies and is updated incrementally on add and remove.
type TagIndex struct {
	mu sync.RWMutex

	byCategory    map[string]map[string]struct{}
	bySubcategory map[string]map[string]struct{}
	byTag         map[string]map[string]struct{}
	byLanguage    map[string]map[string]struct{}
	byFramework   map[string]map[string]struct{}
	byTopic       map[string]map[string]struct{}
	byContentType map[string]map[string]struct{}

	// Reverse map so Remove needs only the id.
	fields map[string]*tagFields
}

type tagFields struct {
	category    string
	subcategory string
	tags        []string
	languages   []string
	frameworks  []string
	topics      []string
	contentType string
}

// NewTagIndex creates an empty metadata/tag index.
func NewTagIndex() *TagIndex {
	return &TagIndex{
		byCategory:    make(map[string]map[string]struct{}),
		bySubcategory: make(map[string]map[string]struct{}),
		byTag:         make(map[string]map[string]struct{}),
		byLanguage:    make(map[string]map[string]struct{}),
		byFramework:   make(map[string]map[string]struct{}),
		byTopic:       make(map[string]map[string]struct{}),
		byContentType: make(map[string]map[string]struct{}),
		fields:        make(map[string]*tagFields),
	}
}

// Add indexes the resource's structured fields. An existing id is fully
// replaced. All values are matched case-insensitively.
func (x *TagIndex) Add(r *Resource) {
	if r == nil || r.ID == "" {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(r.ID)

	f := &tagFields{
		category:    strings.ToLower(r.Category),
		subcategory: strings.ToLower(r.Subcategory),
		tags:        lowerAll(r.Tags),
		languages:   lowerAll(r.Languages),
		frameworks:  lowerAll(r.Frameworks),
		topics:      lowerAll(r.Topics),
		contentType: strings.ToLower(r.ContentType),
	}

	addPosting(x.byCategory, f.category, r.ID)
	addPosting(x.bySubcategory, f.subcategory, r.ID)
	addPosting(x.byContentType, f.contentType, r.ID)
	for _, v := range f.tags {
		addPosting(x.byTag, v, r.ID)
	}
	for _, v := range f.languages {
		addPosting(x.byLanguage, v, r.ID)
	}
	for _, v := range f.frameworks {
		addPosting(x.byFramework, v, r.ID)
	}
	for _, v := range f.topics {
		addPosting(x.byTopic, v, r.ID)
	}

	x.fields[r.ID] = f
}

// Remove deletes all field postings for id, reporting whether it was indexed.
func (x *TagIndex) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(id)
}

func (x *TagIndex) removeLocked(id string) bool {
	f, ok := x.fields[id]
	if !ok {
		return false
	}

	dropPosting(x.byCategory, f.category, id)
	dropPosting(x.bySubcategory, f.subcategory, id)
	dropPosting(x.byContentType, f.contentType, id)
	for _, v := range f.tags {
		dropPosting(x.byTag, v, id)
	}
	for _, v := range f.languages {
		dropPosting(x.byLanguage, v, id)
	}
	for _, v := range f.frameworks {
		dropPosting(x.byFramework, v, id)
	}
	for _, v := range f.topics {
		dropPosting(x.byTopic, v, id)
	}

	delete(x.fields, id)
	return true
}

// MatchMetadata returns ids whose category, subcategory, topic, language,
// framework, or content type exactly matches any query token.
func (x *TagIndex) MatchMetadata(tokens []string, limit int) []Hit {
	if len(tokens) == 0 || limit <= 0 {
		return []Hit{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	matched := make(map[string]struct{})
	for _, t := range tokens {
		t = strings.ToLower(t)
		for _, m := range []map[string]map[string]struct{}{
			x.byCategory, x.bySubcategory, x.byTopic,
			x.byLanguage, x.byFramework, x.byContentType,
		} {
			for id := range m[t] {
				matched[id] = struct{}{}
			}
		}
	}

	return idsToHits(matched, limit)
}

// MatchTags returns ids with at least one tag containing the query as a
// case-insensitive substring.
func (x *TagIndex) MatchTags(query string, limit int) []Hit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return []Hit{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	matched := make(map[string]struct{})
	for tag, ids := range x.byTag {
		if !strings.Contains(tag, query) {
			continue
		}
		for id := range ids {
			matched[id] = struct{}{}
		}
	}

	return idsToHits(matched, limit)
}

// TagsLike returns distinct tags containing the fragment, for suggestions.
func (x *TagIndex) TagsLike(fragment string, limit int) []string {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" || limit <= 0 {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var tags []string
	for tag := range x.byTag {
		if strings.Contains(tag, fragment) {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

// Count returns the number of indexed resources.
func (x *TagIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.fields)
}

// idsToHits converts a matched id set into deterministic unit-score hits;
// the strategy weight supplies the score during fusion.
func idsToHits(matched map[string]struct{}, limit int) []Hit {
	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	hits := make([]Hit, len(ids))
	for i, id := range ids {
		hits[i] = Hit{ID: id, Score: 1.0}
	}
	return hits
}

func addPosting(m map[string]map[string]struct{}, key, id string) {
	if key == "" {
		return
	}
	ids, ok := m[key]
	if !ok {
		ids = make(map[string]struct{})
		m[key] = ids
	}
	ids[id] = struct{}{}
}

func dropPosting(m map[string]map[string]struct{}, key, id string) {
	if key == "" {
		return
	}
	if ids := m[key]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m, key)
		}
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
