package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChunkIndexer struct {
	mock.Mock
}

func (m *MockChunkIndexer) Index(ctx context.Context, chunks []domain.Chunk) (IndexResult, error) {
	args := m.Called(ctx, chunks)
	return args.Get(0).(IndexResult), args.Error(1)
}

func TestIngestionService_SkipsBadDocuments(t *testing.T) {
	indexer := new(MockChunkIndexer)
	indexer.On("Index", mock.Anything, mock.MatchedBy(func(chunks []domain.Chunk) bool {
		return len(chunks) == 2
	})).Return(IndexResult{Chunks: 2, Batches: 1}, nil).Once()

	svc := NewIngestionService(NewChunker(ChunkConfig{MaxChars: 200, Overlap: 20}), indexer)
	docs := []domain.Document{
		{Text: "Exports are available as JSON.", URL: "https://docs.example.com/a", SourceType: domain.SourceTypeDocumentation},
		{Text: "   ", URL: "https://docs.example.com/empty", SourceType: domain.SourceTypeDocumentation},
		{Text: "Has text", URL: "https://docs.example.com/bad", SourceType: "podcast"},
		{Text: "Watch the release walkthrough.", URL: "https://video.example.com/1", SourceType: domain.SourceTypeYouTube},
	}

	report, err := svc.Ingest(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 2, report.Stats.TotalChunks)
	assert.Equal(t, 1, report.Stats.BySourceType[domain.SourceTypeYouTube])
	require.Len(t, report.ChunkIDs, 2)
	assert.NotEqual(t, report.ChunkIDs[0], report.ChunkIDs[1])
	indexer.AssertExpectations(t)
}

func TestIngestionService_NothingToIndex(t *testing.T) {
	indexer := new(MockChunkIndexer)
	svc := NewIngestionService(NewChunker(DefaultChunkConfig()), indexer)

	report, err := svc.Ingest(context.Background(), []domain.Document{{Text: "", SourceType: domain.SourceTypeText}})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	indexer.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}

func TestIngestionService_IndexFailureAborts(t *testing.T) {
	indexer := new(MockChunkIndexer)
	indexer.On("Index", mock.Anything, mock.Anything).
		Return(IndexResult{Chunks: 100, Batches: 1}, errors.New("upsert failed")).Once()
	svc := NewIngestionService(NewChunker(DefaultChunkConfig()), indexer)

	report, err := svc.Ingest(context.Background(), []domain.Document{
		{Text: "text", URL: "u", SourceType: domain.SourceTypeText},
	})

	require.Error(t, err)
	assert.Equal(t, 100, report.Chunks)
	assert.Empty(t, report.ChunkIDs)
}

func TestSummaryStats(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "abcd", URL: "u1", SourceType: domain.SourceTypeBlog},
		{Text: "ab", URL: "u1", SourceType: domain.SourceTypeBlog},
		{Text: "abcdef", URL: "u2", SourceType: domain.SourceTypeHTML},
	}

	stats := SummaryStats(chunks)

	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueURLs)
	assert.InDelta(t, 4.0, stats.AverageChunkChars, 1e-9)
	assert.Equal(t, map[domain.SourceType]int{domain.SourceTypeBlog: 2, domain.SourceTypeHTML: 1}, stats.BySourceType)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeBlog, domain.SourceTypeHTML}, stats.SortedSourceTypes())

	empty := SummaryStats(nil)
	assert.Zero(t, empty.TotalChunks)
	assert.Zero(t, empty.AverageChunkChars)
}
