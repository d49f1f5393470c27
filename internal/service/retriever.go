package service

import (
	"context"
	"log"
	"sort"

	"github.com/cloo-solutions/docsrag/internal/domain"
)

// RetrieverConfig holds the similarity thresholds for the two search passes.
type RetrieverConfig struct {
	MinScore         float64
	FallbackMinScore float64
}

// DefaultRetrieverConfig provides sane defaults for retrieval.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		MinScore:         0.3,
		FallbackMinScore: 0,
	}
}

// Retriever runs a filtered search and falls back to an unfiltered one when
// the filtered pass returns nothing. Results from the two passes are never merged.
type Retriever struct {
	store VectorStore
	cfg   RetrieverConfig
}

// NewRetriever creates a new Retriever instance
func NewRetriever(store VectorStore, cfg RetrieverConfig) *Retriever {
	return &Retriever{store: store, cfg: cfg}
}

// Retrieve returns up to topK results in descending score order. Store
// failures are logged as retrieval errors and yield an empty result.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, topK int, filter domain.QueryFilter) []domain.SearchResult {
	if topK <= 0 {
		return nil
	}

	results, err := r.store.Search(ctx, vector, domain.SearchParams{
		TopK:     topK,
		Filter:   filter,
		MinScore: r.cfg.MinScore,
	})
	if err != nil {
		log.Printf("retriever: %v", domain.NewRetrievalError("filtered search failed", err))
		return nil
	}

	if len(results) == 0 {
		results, err = r.store.Search(ctx, vector, domain.SearchParams{
			TopK:     topK,
			MinScore: r.cfg.FallbackMinScore,
		})
		if err != nil {
			log.Printf("retriever: %v", domain.NewRetrievalError("fallback search failed", err))
			return nil
		}
		if len(results) > 0 {
			log.Printf("retriever: filter %+v matched nothing, fallback returned %d results", filter, len(results))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
