package search

import (
	"context"
	"sort"
	"strings"
)

// Suggest returns query completions for a partial input, drawn from resource
// titles and tags. Results are deduplicated case-insensitively and sorted so
// repeated calls with the same corpus return the same list.
func (e *Engine) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	partial = strings.TrimSpace(strings.ToLower(partial))
	if partial == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	titles, err := e.records.TitlesLike(ctx, partial, limit)
	if err != nil {
		return nil, err
	}
	tags := e.tags.TagsLike(partial, limit)

	seen := make(map[string]bool, len(titles)+len(tags))
	out := make([]string, 0, limit)
	for _, s := range append(titles, tags...) {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
