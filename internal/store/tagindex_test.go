package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taggedResource(id string) *Resource {
	return &Resource{
		ID:          id,
		Title:       "FastAPI Basics",
		Category:    "Programming",
		Subcategory: "Web",
		Tags:        []string{"Python", "FastAPI", "rest-api"},
		Languages:   []string{"python"},
		Frameworks:  []string{"fastapi"},
		Topics:      []string{"http"},
		ContentType: "tutorial",
	}
}

func TestTagIndex_MatchMetadata(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))

	tests := []struct {
		name   string
		tokens []string
		want   int
	}{
		{"category", []string{"programming"}, 1},
		{"category case-insensitive", []string{"PROGRAMMING"}, 1},
		{"subcategory", []string{"web"}, 1},
		{"language", []string{"python"}, 1},
		{"framework", []string{"fastapi"}, 1},
		{"topic", []string{"http"}, 1},
		{"content type", []string{"tutorial"}, 1},
		{"no match", []string{"cooking"}, 0},
		{"empty tokens", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := idx.MatchMetadata(tt.tokens, 10)
			assert.Len(t, hits, tt.want)
		})
	}
}

func TestTagIndex_MatchMetadataUnitScore(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))

	hits := idx.MatchMetadata([]string{"programming"}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, 1.0, hits[0].Score)
}

func TestTagIndex_MatchTagsSubstring(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))

	// "api" is a substring of both "fastapi" and "rest-api" tags.
	hits := idx.MatchTags("api", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "res-1", hits[0].ID)

	assert.Empty(t, idx.MatchTags("golang", 10))
	assert.Empty(t, idx.MatchTags("", 10))
}

func TestTagIndex_AddReplaces(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))

	updated := taggedResource("res-1")
	updated.Category = "DevOps"
	updated.Tags = []string{"docker"}
	idx.Add(updated)

	assert.Empty(t, idx.MatchMetadata([]string{"programming"}, 10))
	assert.Len(t, idx.MatchMetadata([]string{"devops"}, 10), 1)
	assert.Empty(t, idx.MatchTags("python", 10))
	assert.Equal(t, 1, idx.Count())
}

func TestTagIndex_Remove(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))

	assert.True(t, idx.Remove("res-1"))
	assert.False(t, idx.Remove("res-1"))
	assert.Empty(t, idx.MatchMetadata([]string{"programming"}, 10))
	assert.Empty(t, idx.MatchTags("python", 10))
	assert.Equal(t, 0, idx.Count())
}

func TestTagIndex_TagsLike(t *testing.T) {
	idx := NewTagIndex()
	idx.Add(taggedResource("res-1"))
	other := taggedResource("res-2")
	other.Tags = []string{"graphql-api"}
	idx.Add(other)

	tags := idx.TagsLike("api", 10)
	assert.Equal(t, []string{"fastapi", "graphql-api", "rest-api"}, tags)

	assert.Len(t, idx.TagsLike("api", 2), 2)
	assert.Nil(t, idx.TagsLike("", 10))
}

func TestTagIndex_LimitAndDeterminism(t *testing.T) {
	idx := NewTagIndex()
	for _, id := range []string{"c-res", "a-res", "b-res"} {
		r := taggedResource(id)
		idx.Add(r)
	}

	hits := idx.MatchMetadata([]string{"programming"}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-res", hits[0].ID)
	assert.Equal(t, "b-res", hits[1].ID)
}
