package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Upsert(ctx context.Context, points []domain.ChunkVector) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, params domain.SearchParams) ([]domain.SearchResult, error) {
	args := m.Called(ctx, vector, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockVectorStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func filteredParams(topK int, filter domain.QueryFilter) domain.SearchParams {
	return domain.SearchParams{TopK: topK, Filter: filter, MinScore: 0.3}
}

func fallbackParams(topK int) domain.SearchParams {
	return domain.SearchParams{TopK: topK, MinScore: 0}
}

func result(id string, score float64) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{ID: id}, Score: score}
}

func TestRetriever_FilteredResults(t *testing.T) {
	store := new(MockVectorStore)
	vec := []float32{1, 0}
	filter := domain.QueryFilter{Month: "2025-05"}
	store.On("Search", mock.Anything, vec, filteredParams(3, filter)).
		Return([]domain.SearchResult{result("a", 0.9), result("b", 0.6)}, nil).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), vec, 3, filter)

	assert.Equal(t, []domain.SearchResult{result("a", 0.9), result("b", 0.6)}, got)
	store.AssertNumberOfCalls(t, "Search", 1)
}

func TestRetriever_FallsBackWhenFilteredIsEmpty(t *testing.T) {
	store := new(MockVectorStore)
	vec := []float32{1, 0}
	filter := domain.QueryFilter{Keywords: []string{"release"}}
	store.On("Search", mock.Anything, vec, filteredParams(2, filter)).Return([]domain.SearchResult{}, nil).Once()
	store.On("Search", mock.Anything, vec, fallbackParams(2)).
		Return([]domain.SearchResult{result("x", 0.2)}, nil).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), vec, 2, filter)

	assert.Equal(t, []domain.SearchResult{result("x", 0.2)}, got)
	store.AssertExpectations(t)
}

func TestRetriever_FallbackDropsSourceTypeToo(t *testing.T) {
	store := new(MockVectorStore)
	vec := []float32{0, 1}
	filter := domain.QueryFilter{SourceType: domain.SourceTypeBlog}
	store.On("Search", mock.Anything, vec, filteredParams(1, filter)).Return(nil, nil).Once()
	store.On("Search", mock.Anything, vec, fallbackParams(1)).Return([]domain.SearchResult{result("y", 0.5)}, nil).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), vec, 1, filter)

	assert.Len(t, got, 1)
	store.AssertExpectations(t)
}

func TestRetriever_StoreErrorYieldsEmpty(t *testing.T) {
	store := new(MockVectorStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), []float32{1}, 5, domain.QueryFilter{})

	assert.Empty(t, got)
	store.AssertNumberOfCalls(t, "Search", 1)
}

func TestRetriever_FallbackErrorYieldsEmpty(t *testing.T) {
	store := new(MockVectorStore)
	vec := []float32{1}
	store.On("Search", mock.Anything, vec, filteredParams(5, domain.QueryFilter{})).Return([]domain.SearchResult{}, nil).Once()
	store.On("Search", mock.Anything, vec, fallbackParams(5)).Return(nil, errors.New("timeout")).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), vec, 5, domain.QueryFilter{})

	assert.Empty(t, got)
}

func TestRetriever_OrdersByScoreStably(t *testing.T) {
	store := new(MockVectorStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SearchResult{
		result("low", 0.4), result("tie-1", 0.8), result("high", 0.95), result("tie-2", 0.8),
	}, nil).Once()

	got := NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), []float32{1}, 3, domain.QueryFilter{})

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.Chunk.ID
	}
	assert.Equal(t, []string{"high", "tie-1", "tie-2"}, ids)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRetriever_NonPositiveTopK(t *testing.T) {
	store := new(MockVectorStore)
	assert.Empty(t, NewRetriever(store, DefaultRetrieverConfig()).Retrieve(context.Background(), []float32{1}, 0, domain.QueryFilter{}))
	store.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}
