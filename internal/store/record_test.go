package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorterr "github.com/Melik1986/sortcore/internal/errors"
)

func newTestRecordStore(t *testing.T) *SQLiteRecordStore {
	t.Helper()
	s, err := OpenRecordStore(filepath.Join(t.TempDir(), "resources.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testResource(id string) *Resource {
	return &Resource{
		ID:          id,
		Title:       "Go Concurrency Patterns",
		Content:     "Goroutines and channels form the basis of concurrency in Go.",
		Category:    "programming",
		Subcategory: "concurrency",
		Confidence:  0.9,
		Tags:        []string{"go", "concurrency"},
		Languages:   []string{"go"},
		Frameworks:  []string{},
		Topics:      []string{"channels"},
		Difficulty:  "intermediate",
		ContentType: "article",
		CreatedDate: "2026-01-15T10:00:00Z",
		Embedding:   []float32{0.1, 0.2, 0.3},
	}
}

func TestRecordStore_PutGet(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	r := testResource("res-1")
	require.NoError(t, s.Put(ctx, r))

	got, err := s.Get(ctx, "res-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.Title, got.Title)
	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.Tags, got.Tags)
	assert.Equal(t, r.Languages, got.Languages)
	assert.Equal(t, r.Confidence, got.Confidence)
	assert.Equal(t, r.Embedding, got.Embedding)
	assert.NotEmpty(t, got.IndexedDate)
}

func TestRecordStore_GetMissing(t *testing.T) {
	s := newTestRecordStore(t)

	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordStore_PutOverwrites(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testResource("res-1")))

	updated := testResource("res-1")
	updated.Title = "Updated Title"
	updated.Tags = []string{"go"}
	require.NoError(t, s.Put(ctx, updated))

	got, err := s.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", got.Title)
	assert.Equal(t, []string{"go"}, got.Tags)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordStore_Delete(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testResource("res-1")))

	existed, err := s.Delete(ctx, "res-1")
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := s.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again reports absence, not an error.
	existed, err = s.Delete(ctx, "res-1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRecordStore_EmptyID(t *testing.T) {
	s := newTestRecordStore(t)

	err := s.Put(context.Background(), &Resource{Title: "no id"})
	require.Error(t, err)
	assert.True(t, sorterr.IsCode(err, sorterr.ErrCodeEmptyResource))
}

func TestRecordStore_ListByCategory(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := testResource(fmt.Sprintf("res-%d", i))
		if i == 2 {
			r.Category = "devops"
		}
		require.NoError(t, s.Put(ctx, r))
	}

	got, err := s.ListByCategory(ctx, "programming")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "res-0", got[0].ID)
	assert.Equal(t, "res-1", got[1].ID)
}

func TestRecordStore_IterateAllSkipsCorrupt(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testResource("good-1")))
	require.NoError(t, s.Put(ctx, testResource("good-2")))

	// Inject a record with unparseable tags directly.
	_, err := s.DB().Exec(
		`INSERT INTO resources (id, title, content, tags) VALUES (?, ?, ?, ?)`,
		"bad-1", "broken", "broken", "{not json")
	require.NoError(t, err)

	var ids []string
	err = s.IterateAll(ctx, func(r *Resource) error {
		ids = append(ids, r.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"good-1", "good-2"}, ids)
	assert.Equal(t, 1, s.SkippedRecords())
}

func TestRecordStore_Counts(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	py := testResource("py-1")
	py.Category = "data-science"
	py.Languages = []string{"python"}
	require.NoError(t, s.Put(ctx, py))
	require.NoError(t, s.Put(ctx, testResource("go-1")))
	require.NoError(t, s.Put(ctx, testResource("go-2")))

	cats, err := s.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"programming": 2, "data-science": 1}, cats)

	langs, err := s.LanguageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"go": 2, "python": 1}, langs)
}

func TestRecordStore_TitlesLike(t *testing.T) {
	s := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testResource("res-1")))
	other := testResource("res-2")
	other.Title = "Python Basics"
	require.NoError(t, s.Put(ctx, other))

	titles, err := s.TitlesLike(ctx, "concurrency", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Concurrency Patterns"}, titles)
}
