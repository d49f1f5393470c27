package service

import (
	"context"
	"log"
	"sort"
	"unicode/utf8"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// ChunkIndexer embeds and stores chunks.
type ChunkIndexer interface {
	Index(ctx context.Context, chunks []domain.Chunk) (IndexResult, error)
}

// IngestStats summarizes a set of chunks.
type IngestStats struct {
	TotalChunks       int                       `json:"total_chunks"`
	BySourceType      map[domain.SourceType]int `json:"by_source_type"`
	AverageChunkChars float64                   `json:"average_chunk_chars"`
	UniqueURLs        int                       `json:"unique_urls"`
}

// IngestReport describes one ingestion run.
type IngestReport struct {
	Documents int
	Skipped   int
	Chunks    int
	Batches   int
	Stats     IngestStats
	// ChunkIDs lists every chunk the run indexed. Empty when indexing failed.
	ChunkIDs []string
}

// IngestionService turns normalized documents into indexed chunks.
type IngestionService struct {
	chunker *Chunker
	indexer ChunkIndexer
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(chunker *Chunker, indexer ChunkIndexer) *IngestionService {
	return &IngestionService{chunker: chunker, indexer: indexer}
}

// Ingest chunks every document and indexes the result. Documents that fail
// to chunk are logged and skipped; an indexing failure aborts the run.
func (s *IngestionService) Ingest(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	report := &IngestReport{}
	var chunks []domain.Chunk

	for i := range docs {
		docChunks, err := s.chunker.ChunkDocument(docs[i])
		if err != nil {
			if domain.HasCode(err, domain.ErrCodeIngestion) {
				log.Printf("ingest: skipping document %d (%s): %v", i, docs[i].URL, err)
				report.Skipped++
				continue
			}
			return report, err
		}
		report.Documents++
		chunks = append(chunks, docChunks...)
	}

	report.Stats = SummaryStats(chunks)
	if len(chunks) == 0 {
		return report, nil
	}

	result, err := s.indexer.Index(ctx, chunks)
	report.Chunks = result.Chunks
	report.Batches = result.Batches
	if err != nil {
		return report, err
	}
	report.ChunkIDs = make([]string, len(chunks))
	for i := range chunks {
		report.ChunkIDs[i] = chunks[i].ID
	}

	log.Printf("ingest: indexed %d chunks from %d documents (%d skipped) in %d batches",
		report.Chunks, report.Documents, report.Skipped, report.Batches)
	return report, nil
}

// SummaryStats computes corpus statistics over chunks.
func SummaryStats(chunks []domain.Chunk) IngestStats {
	stats := IngestStats{BySourceType: make(map[domain.SourceType]int)}
	if len(chunks) == 0 {
		return stats
	}

	urls := make(map[string]struct{})
	totalChars := 0
	for _, c := range chunks {
		stats.BySourceType[c.SourceType]++
		totalChars += utf8.RuneCountInString(c.Text)
		if c.URL != "" {
			urls[c.URL] = struct{}{}
		}
	}
	stats.TotalChunks = len(chunks)
	stats.AverageChunkChars = float64(totalChars) / float64(len(chunks))
	stats.UniqueURLs = len(urls)
	return stats
}

// SortedSourceTypes returns the source types present in stats in name order.
func (s IngestStats) SortedSourceTypes() []domain.SourceType {
	out := make([]domain.SourceType, 0, len(s.BySourceType))
	for st := range s.BySourceType {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
