package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(id, title string, vec []float32, opts ...func(*domain.Chunk)) domain.ChunkVector {
	c := domain.Chunk{ID: id, Title: title, Text: "text of " + title, SourceType: domain.SourceTypeDocumentation}
	for _, opt := range opts {
		opt(&c)
	}
	return domain.ChunkVector{Chunk: c, Embedding: vec}
}

func withMonth(m string) func(*domain.Chunk) { return func(c *domain.Chunk) { c.Month = m } }

func withTags(tags ...string) func(*domain.Chunk) { return func(c *domain.Chunk) { c.Tags = tags } }

func withSource(st domain.SourceType) func(*domain.Chunk) {
	return func(c *domain.Chunk) { c.SourceType = st }
}

func TestMemoryStore_SearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("a", "far", []float32{0, 1}),
		point("b", "near", []float32{1, 0}),
		point("c", "middle", []float32{1, 1}),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, domain.SearchParams{TopK: 2})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "c", results[1].Chunk.ID)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("second", "x", []float32{1, 0}),
		point("first", "y", []float32{2, 0}),
	}))
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{point("third", "z", []float32{3, 0})}))

	results, err := store.Search(ctx, []float32{1, 0}, domain.SearchParams{TopK: 5})

	require.NoError(t, err)
	ids := []string{results[0].Chunk.ID, results[1].Chunk.ID, results[2].Chunk.ID}
	assert.Equal(t, []string{"second", "first", "third"}, ids)
}

func TestMemoryStore_UpsertOverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("a", "old", []float32{1, 0}),
		point("b", "other", []float32{1, 0}),
	}))
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{point("a", "new", []float32{1, 0})}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	results, err := store.Search(ctx, []float32{1, 0}, domain.SearchParams{TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "new", results[0].Chunk.Title)
}

func TestMemoryStore_Filters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("jan", "Release notes", []float32{1, 0}, withMonth("2025-01")),
		point("feb", "Release notes", []float32{1, 0}, withMonth("2025-02")),
		point("export", "Export guide", []float32{1, 0}, withMonth("2025-01")),
		point("tagged", "Misc", []float32{1, 0}, withMonth("2025-01"), withTags("export")),
		point("blog", "Export post", []float32{1, 0}, withSource(domain.SourceTypeBlog)),
	}))

	ids := func(filter domain.QueryFilter) []string {
		results, err := store.Search(ctx, []float32{1, 0}, domain.SearchParams{TopK: 10, Filter: filter})
		require.NoError(t, err)
		var out []string
		for _, r := range results {
			out = append(out, r.Chunk.ID)
		}
		return out
	}

	assert.Equal(t, []string{"jan", "export", "tagged"}, ids(domain.QueryFilter{Month: "2025-01"}))
	assert.Equal(t, []string{"export", "tagged", "blog"}, ids(domain.QueryFilter{Keywords: []string{"export"}}))
	assert.Equal(t, []string{"export", "tagged"}, ids(domain.QueryFilter{Month: "2025-01", Keywords: []string{"export"}}))
	assert.Equal(t, []string{"blog"}, ids(domain.QueryFilter{SourceType: domain.SourceTypeBlog}))
	assert.Empty(t, ids(domain.QueryFilter{Month: "2024-12"}))
}

func TestMemoryStore_MinScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("same", "a", []float32{1, 0}),
		point("orthogonal", "b", []float32{0, 1}),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, domain.SearchParams{TopK: 10, MinScore: 0.3})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "same", results[0].Chunk.ID)
}

func TestMemoryStore_RejectsWrongDimensions(t *testing.T) {
	store := NewMemoryStore(3)

	err := store.Upsert(context.Background(), []domain.ChunkVector{point("a", "x", []float32{1, 0})})

	assert.True(t, domain.HasCode(err, domain.ErrCodeRetrieval))
	dims, _ := store.Dimensions(context.Background())
	assert.Equal(t, 3, dims)
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("a", "x", []float32{1}, func(c *domain.Chunk) { c.URL = "https://a"; c.Text = "abcd" }),
		point("b", "y", []float32{1}, func(c *domain.Chunk) { c.URL = "https://a"; c.Text = "ab" }),
		point("c", "z", []float32{1}, withSource(domain.SourceTypeBlog), func(c *domain.Chunk) { c.URL = "https://b"; c.Text = "abc" }),
	}))

	stats, err := store.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueURLs)
	assert.InDelta(t, 3.0, stats.AverageChunkChars, 1e-9)
	assert.Equal(t, 2, stats.BySourceType[domain.SourceTypeDocumentation])
	assert.Equal(t, 1, stats.BySourceType[domain.SourceTypeBlog])
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore(0).Search(ctx, []float32{1}, domain.SearchParams{TopK: 1})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_DeleteStaleChunks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	fromFile := func(f string) func(*domain.Chunk) { return func(c *domain.Chunk) { c.SourceFile = f } }
	require.NoError(t, store.Upsert(ctx, []domain.ChunkVector{
		point("a", "one", []float32{1, 0}, fromFile("docs/a.json")),
		point("b", "two", []float32{1, 0}, fromFile("docs/a.json")),
		point("c", "three", []float32{1, 0}, fromFile("docs/b.json")),
	}))

	n, err := store.DeleteStaleChunks(ctx, "docs/a.json", []string{"b"})

	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	count, _ := store.Count(ctx)
	assert.EqualValues(t, 2, count)

	n, err = store.DeleteStaleChunks(ctx, "docs/a.json", nil)

	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	count, _ = store.Count(ctx)
	assert.EqualValues(t, 1, count)
}
