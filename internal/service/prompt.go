package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// NoContextAnswer is returned without calling the model when retrieval found nothing.
const NoContextAnswer = "I don't have enough information to answer that question accurately."

// SystemInstruction is the behavioral contract given to the model.
const SystemInstruction = `You are a documentation assistant. Answer the user's question using only the numbered sources provided.
If the sources do not contain the answer, say that you don't know instead of guessing.
Keep answers concise and accurate.
End your answer with a "Sources:" section listing the title and URL of each source you actually used.`

const defaultMaxBlockChars = 1500

// Prompt is a system instruction plus a user message split into the
// retrieved context and the question suffix. Only Context may be cut to fit
// the model's input ceiling.
type Prompt struct {
	System   string
	Context  string
	Question string
}

// User renders the user message sent to the model.
func (p Prompt) User() string {
	return p.Context + p.Question
}

// PromptBuilder renders ranked results into citation-labeled context blocks.
type PromptBuilder struct {
	maxBlockChars int
}

// NewPromptBuilder creates a new PromptBuilder instance
func NewPromptBuilder(maxBlockChars int) *PromptBuilder {
	if maxBlockChars <= 0 {
		maxBlockChars = defaultMaxBlockChars
	}
	return &PromptBuilder{maxBlockChars: maxBlockChars}
}

// Build returns the prompt for query over results, preserving ranking order.
// It reports false when there is no context, in which case the caller must
// answer with NoContextAnswer instead of invoking the model.
func (b *PromptBuilder) Build(query string, results []domain.SearchResult) (Prompt, bool) {
	if len(results) == 0 {
		return Prompt{}, false
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, b.block(i+1, r.Chunk))
	}

	return Prompt{
		System:   SystemInstruction,
		Context:  "Context:\n\n" + strings.Join(blocks, "\n\n"),
		Question: "\n\nQuestion: " + query + "\n\nAnswer:",
	}, true
}

// block renders one source in at most maxBlockChars runes. The header takes
// up to a third of the budget and the text gets the rest.
func (b *PromptBuilder) block(n int, c domain.Chunk) string {
	header := fmt.Sprintf("Source %d: %s", n, c.Label(fmt.Sprintf("Source %d", n)))
	if c.URL != "" {
		header += " (" + c.URL + ")"
	}
	header = truncateRunes(header, b.maxBlockChars/3)
	textLimit := b.maxBlockChars - utf8.RuneCountInString(header) - 1
	return header + "\n" + truncateRunes(c.Text, textLimit)
}
