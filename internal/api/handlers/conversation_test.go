package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestConversationHandler_Get(t *testing.T) {
	store := service.NewConversationStore()
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.Append("conv-1", domain.ConversationTurn{Query: "q1", Response: "a1", SourceCount: 2, CreatedAt: created})
	store.Append("conv-1", domain.ConversationTurn{Query: "q2", Response: "a2", CreatedAt: created})
	handler := NewConversationHandler(store)

	w := httptest.NewRecorder()
	handler.Get(w, withURLParam(httptest.NewRequest(http.MethodGet, "/conversations/conv-1", nil), "id", "conv-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.Turns, 2)
	assert.Equal(t, "q1", resp.Turns[0].Query)
	assert.Equal(t, 2, resp.Turns[0].SourceCount)
	assert.Equal(t, "q2", resp.Turns[1].Query)
}

func TestConversationHandler_GetUnknown(t *testing.T) {
	handler := NewConversationHandler(service.NewConversationStore())

	w := httptest.NewRecorder()
	handler.Get(w, withURLParam(httptest.NewRequest(http.MethodGet, "/conversations/nope", nil), "id", "nope"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationHandler_Delete(t *testing.T) {
	store := service.NewConversationStore()
	store.Append("conv-1", domain.ConversationTurn{Query: "q"})
	handler := NewConversationHandler(store)

	w := httptest.NewRecorder()
	handler.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/conversations/conv-1", nil), "id", "conv-1"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/conversations/conv-1", nil), "id", "conv-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
