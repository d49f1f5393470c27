package repository

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/service"
)

type memoryEntry struct {
	seq    int64
	chunk  domain.Chunk
	vector []float32
}

// MemoryStore is an in-process vector store using exhaustive cosine search.
// It applies the same filter semantics as ChunkRepository.
type MemoryStore struct {
	mu      sync.RWMutex
	dims    int
	nextSeq int64
	entries map[string]*memoryEntry
}

// NewMemoryStore creates a store for vectors of the given dimension.
// A dimension of zero accepts any size.
func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{dims: dims, entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Upsert(ctx context.Context, points []domain.ChunkVector) error {
	if err := ctx.Err(); err != nil {
		return classifyError("upsert chunks", err)
	}
	for _, p := range points {
		if s.dims > 0 && len(p.Embedding) != s.dims {
			return domain.NewRetrievalError("upsert chunks",
				fmt.Errorf("chunk %s has %d dimensions, store expects %d", p.Chunk.ID, len(p.Embedding), s.dims))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		vec := slices.Clone(p.Embedding)
		if existing, ok := s.entries[p.Chunk.ID]; ok {
			existing.chunk = p.Chunk
			existing.vector = vec
			continue
		}
		s.nextSeq++
		s.entries[p.Chunk.ID] = &memoryEntry{seq: s.nextSeq, chunk: p.Chunk, vector: vec}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, params domain.SearchParams) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyError("search chunks", err)
	}
	if params.TopK <= 0 {
		return nil, nil
	}

	type scored struct {
		seq int64
		res domain.SearchResult
	}

	s.mu.RLock()
	var hits []scored
	for _, e := range s.entries {
		if !matchesFilter(e.chunk, params.Filter) {
			continue
		}
		score := cosine(vector, e.vector)
		if score < params.MinScore {
			continue
		}
		hits = append(hits, scored{seq: e.seq, res: domain.SearchResult{Chunk: e.chunk, Score: score}})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].res.Score != hits[j].res.Score {
			return hits[i].res.Score > hits[j].res.Score
		}
		return hits[i].seq < hits[j].seq
	})
	if len(hits) > params.TopK {
		hits = hits[:params.TopK]
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = h.res
	}
	return results, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Dimensions returns the configured vector size.
func (s *MemoryStore) Dimensions(ctx context.Context) (int, error) {
	return s.dims, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (service.IngestStats, error) {
	s.mu.RLock()
	chunks := make([]domain.Chunk, 0, len(s.entries))
	for _, e := range s.entries {
		chunks = append(chunks, e.chunk)
	}
	s.mu.RUnlock()
	return service.SummaryStats(chunks), nil
}

// DeleteStaleChunks removes the chunks ingested from sourceFile whose IDs
// are not in keep.
func (s *MemoryStore) DeleteStaleChunks(ctx context.Context, sourceFile string, keep []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classifyError("delete chunks", err)
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.entries {
		if _, ok := kept[e.chunk.ID]; ok {
			continue
		}
		if e.chunk.SourceFile == sourceFile {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

func matchesFilter(c domain.Chunk, f domain.QueryFilter) bool {
	if f.Month != "" && c.Month != f.Month {
		return false
	}
	if f.SourceType != "" && c.SourceType != f.SourceType {
		return false
	}
	if len(f.Keywords) == 0 {
		return true
	}
	title := strings.ToLower(c.Title)
	for _, kw := range f.Keywords {
		if strings.Contains(title, strings.ToLower(kw)) || slices.Contains(c.Tags, kw) {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
