package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository stores chunk vectors in the pgvector-backed chunks table.
type ChunkRepository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool, db: pool}
}

const upsertChunkSQL = `
	INSERT INTO chunks (id, text, title, url, heading, source_type, chunk_index, page_title, heading_level, month, tags, source_file, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		text = EXCLUDED.text,
		title = EXCLUDED.title,
		url = EXCLUDED.url,
		heading = EXCLUDED.heading,
		source_type = EXCLUDED.source_type,
		chunk_index = EXCLUDED.chunk_index,
		page_title = EXCLUDED.page_title,
		heading_level = EXCLUDED.heading_level,
		month = EXCLUDED.month,
		tags = EXCLUDED.tags,
		source_file = EXCLUDED.source_file,
		embedding = EXCLUDED.embedding,
		updated_at = NOW()`

// Upsert writes points in a single transaction. Existing ids are overwritten
// in place and keep their original insertion order.
func (r *ChunkRepository) Upsert(ctx context.Context, points []domain.ChunkVector) error {
	if len(points) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range points {
			c := p.Chunk
			tags := c.Tags
			if tags == nil {
				tags = []string{}
			}
			batch.Queue(upsertChunkSQL,
				c.ID, c.Text, c.Title, c.URL, c.Heading, string(c.SourceType), c.ChunkIndex,
				c.PageTitle, c.HeadingLevel, nullableString(c.Month), tags, c.SourceFile,
				pgvector.NewVector(p.Embedding),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return classifyError("upsert chunks", err)
	}
	return nil
}

// Search returns the chunks nearest to vector by cosine similarity.
// Month and source type must match exactly; keywords match when any of them
// appears in the title or the tags.
//
// The HNSW index applies filters after its candidate list, so the scan runs
// iteratively in strict distance order until TopK rows pass the filters.
func (r *ChunkRepository) Search(ctx context.Context, vector []float32, params domain.SearchParams) ([]domain.SearchResult, error) {
	if params.TopK <= 0 {
		return nil, nil
	}

	query, args := buildSearchQuery(pgvector.NewVector(vector), params)
	var results []domain.SearchResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			SELECT set_config('hnsw.iterative_scan', 'strict_order', true),
			       set_config('hnsw.ef_search', $1, true)`,
			strconv.Itoa(efSearch(params.TopK))); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var res domain.SearchResult
			var month *string
			var sourceType string
			c := &res.Chunk
			if err := rows.Scan(&c.ID, &c.Text, &c.Title, &c.URL, &c.Heading, &sourceType, &c.ChunkIndex,
				&c.PageTitle, &c.HeadingLevel, &month, &c.Tags, &c.SourceFile, &res.Score); err != nil {
				return err
			}
			c.SourceType = domain.SourceType(sourceType)
			if month != nil {
				c.Month = *month
			}
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classifyError("search chunks", err)
	}
	return results, nil
}

// efSearch sizes the HNSW candidate list for a query returning topK rows,
// within pgvector's 1..1000 range.
func efSearch(topK int) int {
	return min(max(topK*4, minEfSearch), maxEfSearch)
}

const (
	minEfSearch = 100
	maxEfSearch = 1000
)

func buildSearchQuery(vec pgvector.Vector, params domain.SearchParams) (string, []any) {
	args := []any{vec, params.MinScore}
	conds := []string{"1 - (embedding <=> $1) >= $2"}

	f := params.Filter
	if f.Month != "" {
		args = append(args, f.Month)
		conds = append(conds, fmt.Sprintf("month = $%d", len(args)))
	}
	if f.SourceType != "" {
		args = append(args, string(f.SourceType))
		conds = append(conds, fmt.Sprintf("source_type = $%d", len(args)))
	}
	if len(f.Keywords) > 0 {
		args = append(args, f.Keywords)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(tags && $%d::text[] OR EXISTS (SELECT 1 FROM unnest($%d::text[]) AS kw WHERE strpos(lower(title), lower(kw)) > 0))", n, n))
	}

	args = append(args, params.TopK)
	query := `
		SELECT id, text, title, url, heading, source_type, chunk_index, page_title, heading_level, month, tags, source_file,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE ` + strings.Join(conds, " AND ") + fmt.Sprintf(`
		ORDER BY embedding <=> $1 ASC, seq ASC
		LIMIT $%d`, len(args))
	return query, args
}

func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, classifyError("count chunks", err)
	}
	return n, nil
}

// Dimensions reads the declared size of the embedding column.
func (r *ChunkRepository) Dimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.db.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`).Scan(&dims)
	if err != nil {
		return 0, classifyError("read embedding dimensions", err)
	}
	return dims, nil
}

// Stats summarizes the stored corpus.
func (r *ChunkRepository) Stats(ctx context.Context) (service.IngestStats, error) {
	stats := service.IngestStats{BySourceType: make(map[domain.SourceType]int)}

	var avg *float64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), AVG(char_length(text)), COUNT(DISTINCT NULLIF(url, ''))
		FROM chunks`).Scan(&stats.TotalChunks, &avg, &stats.UniqueURLs)
	if err != nil {
		return stats, classifyError("chunk stats", err)
	}
	if avg != nil {
		stats.AverageChunkChars = *avg
	}

	rows, err := r.db.Query(ctx, `SELECT source_type, COUNT(*) FROM chunks GROUP BY source_type`)
	if err != nil {
		return stats, classifyError("chunk stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return stats, classifyError("chunk stats", err)
		}
		stats.BySourceType[domain.SourceType(st)] = n
	}
	return stats, rows.Err()
}

// DeleteStaleChunks removes the chunks ingested from sourceFile whose IDs
// are not in keep.
func (r *ChunkRepository) DeleteStaleChunks(ctx context.Context, sourceFile string, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE source_file = $1 AND NOT (id::text = ANY($2::text[]))`,
		sourceFile, keep)
	if err != nil {
		return 0, classifyError("delete chunks", err)
	}
	return tag.RowsAffected(), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
