package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/telemetry"
	"github.com/google/uuid"
)

// QueryEmbedder encodes a query into a normalized vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer for a built prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// RAGConfig bounds request sizes.
type RAGConfig struct {
	DefaultTopK       int
	MaxTopK           int
	DefaultSearchTopK int
}

// DefaultRAGConfig provides sane defaults for the orchestrator.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		DefaultTopK:       5,
		MaxTopK:           20,
		DefaultSearchTopK: 8,
	}
}

// RAGRequest is a single question against the corpus.
type RAGRequest struct {
	Message        string
	ContextK       int
	ConversationID string
	SourceType     domain.SourceType
}

// RAGResponse is the assembled answer with the context it was grounded on.
type RAGResponse struct {
	Response         string
	ContextUsed      []domain.SearchResult
	ConversationID   string
	ProcessingTimeMS float64
}

// RAGService sequences analysis, query embedding, retrieval, prompt building
// and generation for one request. Its collaborators are constructed once at
// startup and shared read-only between requests; only the conversation store
// is written to.
type RAGService struct {
	analyzer  *QueryAnalyzer
	embedder  QueryEmbedder
	retriever *Retriever
	prompts   *PromptBuilder
	generator Generator
	history   *ConversationStore
	cfg       RAGConfig
	now       func() time.Time
}

// NewRAGService creates a new RAGService instance
func NewRAGService(
	analyzer *QueryAnalyzer,
	embedder QueryEmbedder,
	retriever *Retriever,
	prompts *PromptBuilder,
	generator Generator,
	history *ConversationStore,
	cfg RAGConfig,
) *RAGService {
	def := DefaultRAGConfig()
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = def.MaxTopK
	}
	if cfg.DefaultTopK <= 0 || cfg.DefaultTopK > cfg.MaxTopK {
		cfg.DefaultTopK = min(def.DefaultTopK, cfg.MaxTopK)
	}
	if cfg.DefaultSearchTopK <= 0 || cfg.DefaultSearchTopK > cfg.MaxTopK {
		cfg.DefaultSearchTopK = min(def.DefaultSearchTopK, cfg.MaxTopK)
	}
	return &RAGService{
		analyzer:  analyzer,
		embedder:  embedder,
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		history:   history,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Config returns the effective request bounds.
func (s *RAGService) Config() RAGConfig {
	return s.cfg
}

// History returns the conversation store.
func (s *RAGService) History() *ConversationStore {
	return s.history
}

func (s *RAGService) resolveTopK(k, def int) (int, error) {
	if k == 0 {
		return def, nil
	}
	if k < 1 || k > s.cfg.MaxTopK {
		return 0, domain.NewDomainErrorWithCause(
			domain.ErrCodeValidation,
			fmt.Sprintf("top_k must be between 1 and %d", s.cfg.MaxTopK),
			domain.ErrInvalidTopK,
		)
	}
	return k, nil
}

// Search returns the passages most similar to query without metadata filtering.
func (s *RAGService) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "query is required", domain.ErrMissingRequiredField)
	}
	k, err := s.resolveTopK(topK, s.cfg.DefaultSearchTopK)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "search", telemetry.SpanAttributes{Operation: "search"})
	defer span.End()

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	results := s.retriever.Retrieve(ctx, vector, k, domain.QueryFilter{})
	span.SetData("result_count", len(results))
	return results, nil
}

// Answer runs the full pipeline:
// ANALYZE, EMBED_QUERY, RETRIEVE, then either the canned no-context answer or
// BUILD_PROMPT and GENERATE, and finally ASSEMBLE.
func (s *RAGService) Answer(ctx context.Context, req RAGRequest) (*RAGResponse, error) {
	start := s.now()

	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "message is required", domain.ErrMissingRequiredField)
	}
	k, err := s.resolveTopK(req.ContextK, s.cfg.DefaultTopK)
	if err != nil {
		return nil, err
	}
	if req.SourceType != "" && !req.SourceType.IsValid() {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeValidation,
			fmt.Sprintf("unknown source type %q", req.SourceType),
			domain.ErrInvalidSourceType,
		)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, span := telemetry.StartSpan(ctx, "rag", telemetry.SpanAttributes{
		ConversationID: conversationID,
		Operation:      "rag",
	})
	defer span.End()

	_, analyzeSpan := telemetry.StartSpan(ctx, "rag.analyze", telemetry.SpanAttributes{Stage: "analyze"})
	filter := s.analyzer.Analyze(req.Message)
	filter.SourceType = req.SourceType
	enhanced := s.analyzer.Enhance(req.Message)
	analyzeSpan.End()

	embedCtx, embedSpan := telemetry.StartSpan(ctx, "rag.embed_query", telemetry.SpanAttributes{Stage: "embed_query"})
	vector, err := s.embedder.EmbedQuery(embedCtx, enhanced)
	if err != nil {
		embedSpan.SetError(err)
		embedSpan.End()
		return nil, err
	}
	embedSpan.End()

	retrieveCtx, retrieveSpan := telemetry.StartSpan(ctx, "rag.retrieve", telemetry.SpanAttributes{Stage: "retrieve"})
	results := s.retriever.Retrieve(retrieveCtx, vector, k, filter)
	retrieveSpan.SetData("result_count", len(results))
	retrieveSpan.End()

	answer := NoContextAnswer
	if prompt, ok := s.prompts.Build(req.Message, results); ok {
		genCtx, genSpan := telemetry.StartSpan(ctx, "rag.generate", telemetry.SpanAttributes{Stage: "generate", ResultCount: len(results)})
		answer, err = s.generator.Generate(genCtx, prompt)
		if err != nil {
			genSpan.SetError(err)
			genSpan.End()
			span.SetError(err)
			return nil, err
		}
		genSpan.End()
	} else {
		telemetry.AddBreadcrumb(ctx, "rag", "no context retrieved, returning canned answer")
	}

	s.history.Append(conversationID, domain.ConversationTurn{
		Query:       req.Message,
		Response:    answer,
		SourceCount: len(results),
		CreatedAt:   s.now().UTC(),
	})

	elapsed := float64(s.now().Sub(start).Microseconds()) / 1000.0
	log.Printf("rag: conversation=%s retrieved=%d month=%q keywords=%v elapsed_ms=%.1f",
		conversationID, len(results), filter.Month, filter.Keywords, elapsed)

	return &RAGResponse{
		Response:         answer,
		ContextUsed:      results,
		ConversationID:   conversationID,
		ProcessingTimeMS: elapsed,
	}, nil
}
