package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// Encoder defines the interface for turning texts into fixed-dimension vectors
type Encoder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorStore is the external nearest-neighbour service chunks are upserted into.
type VectorStore interface {
	Upsert(ctx context.Context, points []domain.ChunkVector) error
	Search(ctx context.Context, vector []float32, params domain.SearchParams) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int64, error)
}

// DimensionReporter is implemented by stores with a fixed vector dimension.
type DimensionReporter interface {
	Dimensions(ctx context.Context) (int, error)
}

// IndexerConfig bounds batch sizes and upsert retries.
type IndexerConfig struct {
	BatchSize       int
	UpsertBatchSize int
	UpsertAttempts  int
	UpsertBackoff   time.Duration
	Concurrency     int
}

// DefaultIndexerConfig provides sane defaults for indexing.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:       32,
		UpsertBatchSize: 100,
		UpsertAttempts:  3,
		UpsertBackoff:   500 * time.Millisecond,
		Concurrency:     4,
	}
}

// IndexResult summarizes one Index call.
type IndexResult struct {
	Chunks  int
	Batches int
}

// EmbeddingIndexer batch-encodes chunks into normalized vectors and upserts them.
// The encoder is shared by every in-flight request; calls into it are bounded
// by a semaphore, and a concurrency of 1 serializes them.
type EmbeddingIndexer struct {
	encoder Encoder
	store   VectorStore
	cfg     IndexerConfig
	sem     chan struct{}
	sleep   sleepFunc
}

// NewEmbeddingIndexer creates a new EmbeddingIndexer instance
func NewEmbeddingIndexer(encoder Encoder, store VectorStore, cfg IndexerConfig) *EmbeddingIndexer {
	def := DefaultIndexerConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = def.UpsertBatchSize
	}
	if cfg.UpsertAttempts <= 0 {
		cfg.UpsertAttempts = def.UpsertAttempts
	}
	if cfg.UpsertBackoff < 0 {
		cfg.UpsertBackoff = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &EmbeddingIndexer{
		encoder: encoder,
		store:   store,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.Concurrency),
		sleep:   sleepContext,
	}
}

// Dimensions returns the encoder's output dimension.
func (x *EmbeddingIndexer) Dimensions() int {
	return x.encoder.Dimensions()
}

// Verify calls the encoder once and checks its dimension against the store.
// Any failure here is an EncodingError and must stop the process from serving.
func (x *EmbeddingIndexer) Verify(ctx context.Context) error {
	if _, err := x.EmbedQuery(ctx, "dimension check"); err != nil {
		return err
	}

	reporter, ok := x.store.(DimensionReporter)
	if !ok {
		return nil
	}
	storeDims, err := reporter.Dimensions(ctx)
	if err != nil {
		return domain.NewEncodingError("failed to read vector store dimension", err)
	}
	if storeDims != x.encoder.Dimensions() {
		return domain.NewEncodingError(
			fmt.Sprintf("encoder produces %d dimensions, store expects %d", x.encoder.Dimensions(), storeDims),
			domain.ErrDimensionMismatch,
		)
	}
	return nil
}

// EmbedQuery encodes a single query text.
func (x *EmbeddingIndexer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := x.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed encodes texts in batches and unit-normalizes every vector.
// The first failing batch aborts the call.
func (x *EmbeddingIndexer) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += x.cfg.BatchSize {
		end := start + x.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := x.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, domain.NewEncodingError(fmt.Sprintf("failed to encode batch %d-%d", start, end), err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (x *EmbeddingIndexer) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case x.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	vectors, err := x.encoder.EmbedBatch(ctx, texts)
	<-x.sem
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	dims := x.encoder.Dimensions()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d: %w", i, len(v), dims, domain.ErrDimensionMismatch)
		}
		if err := normalize(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return vectors, nil
}

// Index embeds and upserts chunks. Each upsert batch commits on its own and
// is retried in place; earlier batches are never rolled back.
func (x *EmbeddingIndexer) Index(ctx context.Context, chunks []domain.Chunk) (IndexResult, error) {
	var result IndexResult
	for start := 0; start < len(chunks); start += x.cfg.UpsertBatchSize {
		end := start + x.cfg.UpsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = buildChunkEmbeddingText(batch[i])
		}
		vectors, err := x.Embed(ctx, texts)
		if err != nil {
			return result, err
		}

		points := make([]domain.ChunkVector, len(batch))
		for i := range batch {
			points[i] = domain.ChunkVector{Chunk: batch[i], Embedding: vectors[i]}
		}
		if err := x.upsertWithRetry(ctx, points); err != nil {
			return result, fmt.Errorf("failed to upsert chunks %d-%d: %w", start, end, err)
		}

		result.Batches++
		result.Chunks += len(batch)
	}
	return result, nil
}

func (x *EmbeddingIndexer) upsertWithRetry(ctx context.Context, points []domain.ChunkVector) error {
	var lastErr error
	for attempt := 1; attempt <= x.cfg.UpsertAttempts; attempt++ {
		lastErr = x.store.Upsert(ctx, points)
		if lastErr == nil {
			return nil
		}
		log.Printf("indexer: upsert of %d points failed (attempt %d/%d): %v", len(points), attempt, x.cfg.UpsertAttempts, lastErr)
		if attempt < x.cfg.UpsertAttempts {
			if err := x.sleep(ctx, x.cfg.UpsertBackoff*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// buildChunkEmbeddingText prefixes chunk text with its title and section so
// the vector carries document context.
func buildChunkEmbeddingText(c domain.Chunk) string {
	text := ""
	if c.Title != "" {
		text += "Title: " + c.Title + "\n"
	}
	if c.Heading != "" && c.Heading != c.Title {
		text += "Section: " + c.Heading + "\n"
	}
	return text + "Content: " + c.Text
}

// normalize scales v to unit L2 norm in place.
func normalize(v []float32) error {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("cannot normalize vector with norm %v", math.Sqrt(sum))
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		v[i] = float32(float64(f) / norm)
	}
	return nil
}
