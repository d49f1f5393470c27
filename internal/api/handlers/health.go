package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/cloo-solutions/docsrag/internal/api"
)

type ChunkCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthInfo describes the running configuration.
type HealthInfo struct {
	EmbeddingModel string
	ChatModel      string
	VectorBackend  string
}

type HealthHandler struct {
	store ChunkCounter
	info  HealthInfo
}

func NewHealthHandler(store ChunkCounter, info HealthInfo) *HealthHandler {
	return &HealthHandler{store: store, info: info}
}

type HealthResponse struct {
	Status         string `json:"status"`
	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`
	VectorBackend  string `json:"vector_backend"`
	IndexedChunks  int64  `json:"indexed_chunks"`
}

// Health reports "degraded" with 503 when the vector store cannot be reached.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:         "healthy",
		EmbeddingModel: h.info.EmbeddingModel,
		ChatModel:      h.info.ChatModel,
		VectorBackend:  h.info.VectorBackend,
	}

	n, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("health: vector store count failed: %v", err)
		resp.Status = "degraded"
		api.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.IndexedChunks = n
	api.JSON(w, http.StatusOK, resp)
}

// Root lists the available endpoints.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]interface{}{
		"name":   "docsrag",
		"status": "ok",
		"endpoints": map[string]string{
			"health":        "/health",
			"search":        "/search",
			"chat":          "/rag",
			"conversations": "/conversations/{id}",
		},
	})
}
