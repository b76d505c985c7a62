package search

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Melik1986/sortcore/internal/store"
)

// filterFunc reports whether a resource passes one filter criterion.
type filterFunc func(*store.Resource) bool

// ApplyFilters removes results that fail any active filter. Filters are
// conjunctive. When a filter targets a field the resource does not carry
// (an unparseable date, a missing file path) the resource is excluded rather
// than passed through.
func ApplyFilters(results []*RankedResult, f FilterSet) []*RankedResult {
	if f.Empty() {
		return results
	}
	fns := buildFilters(f)
	out := results[:0]
	for _, r := range results {
		if passesAll(r.Resource, fns) {
			out = append(out, r)
		}
	}
	return out
}

func passesAll(r *store.Resource, fns []filterFunc) bool {
	for _, fn := range fns {
		if !fn(r) {
			return false
		}
	}
	return true
}

func buildFilters(f FilterSet) []filterFunc {
	var fns []filterFunc

	if len(f.Categories) > 0 {
		want := lowerSet(f.Categories)
		fns = append(fns, func(r *store.Resource) bool {
			return want[strings.ToLower(r.Category)]
		})
	}
	if len(f.Subcategories) > 0 {
		want := lowerSet(f.Subcategories)
		fns = append(fns, func(r *store.Resource) bool {
			return want[strings.ToLower(r.Subcategory)]
		})
	}
	if len(f.Difficulty) > 0 {
		want := lowerSet(f.Difficulty)
		fns = append(fns, func(r *store.Resource) bool {
			return want[strings.ToLower(r.Difficulty)]
		})
	}
	if len(f.ContentTypes) > 0 {
		want := lowerSet(f.ContentTypes)
		fns = append(fns, func(r *store.Resource) bool {
			return want[strings.ToLower(r.ContentType)]
		})
	}
	if len(f.Languages) > 0 {
		want := lowerSet(f.Languages)
		fns = append(fns, func(r *store.Resource) bool {
			return intersects(want, r.Languages)
		})
	}
	if len(f.Frameworks) > 0 {
		want := lowerSet(f.Frameworks)
		fns = append(fns, func(r *store.Resource) bool {
			return intersects(want, r.Frameworks)
		})
	}
	if len(f.Tags) > 0 {
		want := lowerSet(f.Tags)
		fns = append(fns, func(r *store.Resource) bool {
			return intersects(want, r.Tags)
		})
	}
	if f.MinConfidence > 0 {
		min := f.MinConfidence
		fns = append(fns, func(r *store.Resource) bool {
			return r.Confidence >= min
		})
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		from, to := f.DateFrom, f.DateTo
		fns = append(fns, func(r *store.Resource) bool {
			ts, ok := parseDate(r.CreatedDate)
			if !ok {
				return false
			}
			if !from.IsZero() && ts.Before(from) {
				return false
			}
			if !to.IsZero() && ts.After(to) {
				return false
			}
			return true
		})
	}
	if len(f.FileExtensions) > 0 {
		want := lowerSet(f.FileExtensions)
		fns = append(fns, func(r *store.Resource) bool {
			if r.FilePath == "" {
				return false
			}
			return want[strings.ToLower(filepath.Ext(r.FilePath))]
		})
	}
	return fns
}

func lowerSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[strings.ToLower(v)] = true
	}
	return set
}

func intersects(want map[string]bool, have []string) bool {
	for _, v := range have {
		if want[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
