package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/cloo-solutions/docsrag/internal/api"
	"github.com/cloo-solutions/docsrag/internal/api/middleware"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/service"
)

// contextContentChars bounds each context_used item's content.
const contextContentChars = 1000

type RAGService interface {
	Answer(ctx context.Context, req service.RAGRequest) (*service.RAGResponse, error)
}

type RAGHandler struct {
	svc RAGService
}

func NewRAGHandler(svc RAGService) *RAGHandler {
	return &RAGHandler{svc: svc}
}

type RAGRequest struct {
	Message        string `json:"message"`
	ContextK       int    `json:"context_k,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SourceType     string `json:"source_type,omitempty"`
}

type RAGResponse struct {
	Response         string             `json:"response"`
	ContextUsed      []SearchResultItem `json:"context_used"`
	ConversationID   string             `json:"conversation_id"`
	ProcessingTimeMS float64            `json:"processing_time_ms"`
}

// Answer handles POST /rag.
func (h *RAGHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req RAGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Answer(r.Context(), service.RAGRequest{
		Message:        req.Message,
		ContextK:       req.ContextK,
		ConversationID: req.ConversationID,
		SourceType:     domain.SourceType(req.SourceType),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]SearchResultItem, 0, len(resp.ContextUsed))
	for _, res := range resp.ContextUsed {
		items = append(items, toResultItem(res, contextContentChars))
	}

	w.Header().Set(middleware.ConversationIDHeader, resp.ConversationID)
	api.JSON(w, http.StatusOK, RAGResponse{
		Response:         resp.Response,
		ContextUsed:      items,
		ConversationID:   resp.ConversationID,
		ProcessingTimeMS: math.Round(resp.ProcessingTimeMS*100) / 100,
	})
}
