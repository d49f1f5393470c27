package service

import (
	"sync"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// ConversationStore keeps per-conversation history for the lifetime of the process.
type ConversationStore struct {
	mu    sync.RWMutex
	turns map[string][]domain.ConversationTurn
}

// NewConversationStore creates a new ConversationStore instance
func NewConversationStore() *ConversationStore {
	return &ConversationStore{turns: make(map[string][]domain.ConversationTurn)}
}

// Append adds a turn to the end of a conversation.
func (s *ConversationStore) Append(conversationID string, turn domain.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[conversationID] = append(s.turns[conversationID], turn)
}

// Get returns a copy of a conversation's turns in insertion order.
func (s *ConversationStore) Get(conversationID string) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.turns[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear removes a conversation.
func (s *ConversationStore) Clear(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.turns[conversationID]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(s.turns, conversationID)
	return nil
}
