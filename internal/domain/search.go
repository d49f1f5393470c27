package domain

import "time"

// QueryFilter holds the structured constraints derived from a query.
// A zero field means the dimension is unconstrained.
type QueryFilter struct {
	Month      string
	Keywords   []string
	SourceType SourceType
}

// IsEmpty reports whether the filter constrains nothing.
func (f QueryFilter) IsEmpty() bool {
	return f.Month == "" && len(f.Keywords) == 0 && f.SourceType == ""
}

// SearchParams describes a single nearest-neighbour search.
type SearchParams struct {
	TopK     int
	Filter   QueryFilter
	MinScore float64
}

// SearchResult pairs a chunk with its cosine similarity to the query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Distance returns 1 - score.
func (r SearchResult) Distance() float64 {
	return 1.0 - r.Score
}

// ChunkVector is a chunk and its embedding, ready to be upserted.
type ChunkVector struct {
	Chunk     Chunk
	Embedding []float32
}

// ConversationTurn is one exchange in a session's history.
type ConversationTurn struct {
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	SourceCount int       `json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}
