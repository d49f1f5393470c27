package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// sentenceSnapRatio is how far into a window a period must sit before the
// window edge snaps back to it.
const sentenceSnapRatio = 0.7

// ChunkConfig controls passage splitting.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		Overlap:  150,
	}
}

// Chunker splits normalized documents into overlapping passages with stable ids.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker creates a Chunker. An overlap at or above the window size is
// accepted but produces near-duplicate chunks, so it is logged.
func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultChunkConfig().MaxChars
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.MaxChars {
		log.Printf("chunker: overlap %d >= max chars %d, windows will advance one character at a time", cfg.Overlap, cfg.MaxChars)
	}
	return &Chunker{cfg: cfg}
}

// Config returns the chunker's effective configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Split returns the ordered chunk texts for text.
func (c *Chunker) Split(text string) []string {
	return chunkText(text, c.cfg)
}

// ChunkDocument splits a document and assigns ids and positions.
// Documents that yield nothing are reported as ingestion errors.
func (c *Chunker) ChunkDocument(doc domain.Document) ([]domain.Chunk, error) {
	if err := doc.Validate(); err != nil {
		return nil, domain.NewIngestionError(fmt.Sprintf("invalid document %q", doc.URL), err)
	}

	texts := c.Split(doc.Text)
	if len(texts) == 0 {
		return nil, domain.NewIngestionError(fmt.Sprintf("document %q produced no chunks", doc.URL), domain.ErrEmptyDocument)
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:           domain.ChunkID(doc.URL, doc.Heading, i, doc.SourceType),
			Text:         text,
			Title:        doc.Title,
			URL:          doc.URL,
			Heading:      doc.Heading,
			SourceType:   doc.SourceType,
			ChunkIndex:   i,
			HeadingLevel: doc.Level,
			PageTitle:    doc.PageTitle,
			Month:        doc.Month,
			Tags:         doc.Tags,
			SourceFile:   doc.SourceFile,
		})
	}
	return chunks, nil
}

func chunkText(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(runes)/cfg.MaxChars+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			if p := lastPeriod(runes, start, end); p >= 0 && float64(p) > float64(start)+float64(cfg.MaxChars)*sentenceSnapRatio {
				end = p + 1
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end - cfg.Overlap
		if nextStart < start+1 {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks
}

// lastPeriod returns the index of the last '.' in runes[start:end], or -1.
func lastPeriod(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == '.' {
			return i
		}
	}
	return -1
}
