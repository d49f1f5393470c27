package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/api/middleware"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRAGService struct {
	mock.Mock
}

func (m *MockRAGService) Answer(ctx context.Context, req service.RAGRequest) (*service.RAGResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RAGResponse), args.Error(1)
}

func postRAG(t *testing.T, handler *RAGHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	handler.Answer(w, httptest.NewRequest(http.MethodPost, "/rag", bytes.NewReader(raw)))
	return w
}

func TestRAGHandler_Answer(t *testing.T) {
	mockSvc := new(MockRAGService)
	long := strings.Repeat("a", 1200)
	mockSvc.On("Answer", mock.Anything, service.RAGRequest{
		Message:        "how do I export?",
		ContextK:       3,
		ConversationID: "conv-1",
		SourceType:     domain.SourceTypeDocumentation,
	}).Return(&service.RAGResponse{
		Response: "Use the export button.\n\nSources:\n- Export",
		ContextUsed: []domain.SearchResult{
			{Chunk: domain.Chunk{ID: "c-1", Title: "Export", Text: long}, Score: 0.8},
		},
		ConversationID:   "conv-1",
		ProcessingTimeMS: 12.3456,
	}, nil)

	w := postRAG(t, NewRAGHandler(mockSvc), RAGRequest{
		Message:        "how do I export?",
		ContextK:       3,
		ConversationID: "conv-1",
		SourceType:     "documentation",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv-1", w.Header().Get(middleware.ConversationIDHeader))

	var resp RAGResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Response, "Sources:")
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, 12.35, resp.ProcessingTimeMS)
	require.Len(t, resp.ContextUsed, 1)
	assert.Len(t, resp.ContextUsed[0].Content, 1000)
	assert.True(t, strings.HasSuffix(resp.ContextUsed[0].Content, "..."))
	assert.InDelta(t, 0.2, resp.ContextUsed[0].Distance, 1e-9)
	mockSvc.AssertExpectations(t)
}

func TestRAGHandler_EmptyContext(t *testing.T) {
	mockSvc := new(MockRAGService)
	mockSvc.On("Answer", mock.Anything, mock.Anything).Return(&service.RAGResponse{
		Response:       service.NoContextAnswer,
		ConversationID: "generated",
	}, nil)

	w := postRAG(t, NewRAGHandler(mockSvc), RAGRequest{Message: "unknown topic"})

	assert.Equal(t, http.StatusOK, w.Code)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, service.NoContextAnswer, raw["response"])
	assert.Equal(t, []interface{}{}, raw["context_used"])
}

func TestRAGHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing message", err: domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "message is required", domain.ErrMissingRequiredField), status: http.StatusBadRequest},
		{name: "generation exhausted", err: domain.NewGenerationError(3, errors.New("upstream 503")), status: http.StatusBadGateway},
		{name: "encoder down", err: domain.NewEncodingError("embed query", errors.New("timeout")), status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockRAGService)
			mockSvc.On("Answer", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postRAG(t, NewRAGHandler(mockSvc), RAGRequest{Message: "q"})

			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Header().Get(middleware.ConversationIDHeader))
		})
	}
}

func TestRAGHandler_InvalidBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewRAGHandler(new(MockRAGService)).Answer(w, httptest.NewRequest(http.MethodPost, "/rag", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
