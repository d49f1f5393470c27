package handlers

import (
	"net/http"

	"github.com/cloo-solutions/docsrag/internal/api"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ConversationHistory interface {
	Get(conversationID string) ([]domain.ConversationTurn, error)
	Clear(conversationID string) error
}

type ConversationHandler struct {
	history ConversationHistory
}

func NewConversationHandler(history ConversationHistory) *ConversationHandler {
	return &ConversationHandler{history: history}
}

type ConversationResponse struct {
	ConversationID string                    `json:"conversation_id"`
	Turns          []domain.ConversationTurn `json:"turns"`
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := h.history.Get(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, ConversationResponse{ConversationID: id, Turns: turns})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
