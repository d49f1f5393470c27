package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/api/handlers"
	"github.com/cloo-solutions/docsrag/internal/api/middleware"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/repository"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// constantEncoder maps every text onto the same unit vector.
type constantEncoder struct{}

func (constantEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (constantEncoder) Dimensions() int { return 2 }

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Complete(ctx context.Context, system, prompt string) (*domain.Completion, error) {
	args := m.Called(ctx, system, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Completion), args.Error(1)
}

type testServer struct {
	handler http.Handler
	store   *repository.MemoryStore
	model   *MockModel
}

func newTestServer(t *testing.T, auth middleware.AuthValidator) *testServer {
	t.Helper()

	store := repository.NewMemoryStore(2)
	indexer := service.NewEmbeddingIndexer(constantEncoder{}, store, service.DefaultIndexerConfig())
	model := new(MockModel)
	rag := service.NewRAGService(
		service.NewQueryAnalyzer(service.DefaultVocabulary()),
		indexer,
		service.NewRetriever(store, service.DefaultRetrieverConfig()),
		service.NewPromptBuilder(0),
		service.NewGenerationClient(model, service.DefaultGenerationConfig()),
		service.NewConversationStore(),
		service.DefaultRAGConfig(),
	)

	handler := NewRouter(RouterConfig{
		AuthValidator:       auth,
		HealthHandler:       handlers.NewHealthHandler(store, handlers.HealthInfo{VectorBackend: "memory"}),
		SearchHandler:       handlers.NewSearchHandler(rag),
		RAGHandler:          handlers.NewRAGHandler(rag),
		ConversationHandler: handlers.NewConversationHandler(rag.History()),
	})
	return &testServer{handler: handler, store: store, model: model}
}

func (s *testServer) seed(t *testing.T, chunks ...domain.Chunk) {
	t.Helper()
	points := make([]domain.ChunkVector, len(chunks))
	for i, c := range chunks {
		points[i] = domain.ChunkVector{Chunk: c, Embedding: []float32{1, 0}}
	}
	require.NoError(t, s.store.Upsert(context.Background(), points))
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.seed(t, domain.Chunk{ID: "c-1", Text: "x"})

	w := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.IndexedChunks)
}

func TestRouter_RAGRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.seed(t, domain.Chunk{ID: "c-1", Title: "Export guide", URL: "https://docs/export", Text: "Exports support JSON."})
	srv.model.On("Complete", mock.Anything, service.SystemInstruction, mock.Anything).
		Return(&domain.Completion{Text: "Use JSON.\n\nSources:\n- Export guide"}, nil).Once()

	body, _ := json.Marshal(handlers.RAGRequest{Message: "how do I export?"})
	w := srv.do(httptest.NewRequest(http.MethodPost, "/rag", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RAGResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Use JSON.\n\nSources:\n- Export guide", resp.Response)
	require.Len(t, resp.ContextUsed, 1)
	assert.Equal(t, "c-1", resp.ContextUsed[0].ChunkID)
	require.NotEmpty(t, resp.ConversationID)

	w = srv.do(httptest.NewRequest(http.MethodGet, "/conversations/"+resp.ConversationID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history handlers.ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "how do I export?", history.Turns[0].Query)
	assert.Equal(t, 1, history.Turns[0].SourceCount)

	w = srv.do(httptest.NewRequest(http.MethodDelete, "/conversations/"+resp.ConversationID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	srv.model.AssertExpectations(t)
}

func TestRouter_RAGEmptyCorpusSkipsModel(t *testing.T) {
	srv := newTestServer(t, nil)

	body, _ := json.Marshal(handlers.RAGRequest{Message: "anything"})
	w := srv.do(httptest.NewRequest(http.MethodPost, "/rag", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RAGResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.NoContextAnswer, resp.Response)
	srv.model.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_Search(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.seed(t,
		domain.Chunk{ID: "c-1", Title: "One", Text: "first"},
		domain.Chunk{ID: "c-2", Title: "Two", Text: "second"},
	)

	w := srv.do(httptest.NewRequest(http.MethodGet, "/search?q=anything&k=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var items []handlers.SearchResultItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "c-1", items[0].ChunkID)

	w = srv.do(httptest.NewRequest(http.MethodGet, "/search?q=anything&k=21", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_APIKey(t *testing.T) {
	srv := newTestServer(t, middleware.StaticKey("secret"))

	w := srv.do(httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = srv.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownConversation(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(httptest.NewRequest(http.MethodGet, "/conversations/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
