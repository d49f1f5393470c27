package openai

import (
	"context"

	"github.com/cloo-solutions/docsrag/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is used when no chat model is configured.
const DefaultChatModel = openai.GPT4oMini

// ChatAPI is the subset of the go-openai client used for generation.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatConfig configures a ChatModel.
type ChatConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// ChatModel sends one system and one user message per completion.
type ChatModel struct {
	api         ChatAPI
	model       string
	temperature float32
	maxTokens   int
}

// NewChatModel creates a ChatModel for any OpenAI-compatible endpoint.
func NewChatModel(cfg ChatConfig) *ChatModel {
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	return &ChatModel{
		api:         newAPIClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}
}

// Name returns the configured model name.
func (m *ChatModel) Name() string {
	return m.model
}

// Complete returns the raw response mapped onto both answer shapes: the first
// choice's plain content as Text, and every choice's text parts as candidates.
// Interpreting the result is left to the caller.
func (m *ChatModel) Complete(ctx context.Context, system, prompt string) (*domain.Completion, error) {
	resp, err := m.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return toCompletion(resp), nil
}

func toCompletion(resp openai.ChatCompletionResponse) *domain.Completion {
	completion := &domain.Completion{}
	if len(resp.Choices) > 0 {
		completion.Text = resp.Choices[0].Message.Content
	}

	for _, choice := range resp.Choices {
		candidate := domain.Candidate{FinishReason: string(choice.FinishReason)}
		var parts []domain.ContentPart
		for _, part := range choice.Message.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				parts = append(parts, domain.ContentPart{Text: part.Text})
			}
		}
		if len(parts) == 0 && choice.Message.Content != "" {
			parts = append(parts, domain.ContentPart{Text: choice.Message.Content})
		}
		if len(parts) > 0 {
			candidate.Content = &domain.CandidateContent{Parts: parts}
		}
		completion.Candidates = append(completion.Candidates, candidate)
	}
	return completion
}
