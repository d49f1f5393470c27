package admin

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/docsrag/internal/config"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/ingest"
	"github.com/cloo-solutions/docsrag/internal/repository"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEncoder struct{}

func (fixedEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fixedEncoder) Dimensions() int { return 3 }

func TestApplyFlagOverrides_OnlyChangedFlags(t *testing.T) {
	cmd := ServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9090", "--sync-interval", "5m"}))

	cfg := &config.Config{Port: "8080", VectorBackend: config.BackendPostgres, DatabaseURL: "postgres://env"}
	applyFlagOverrides(cmd.Flags(), cfg)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, config.BackendPostgres, cfg.VectorBackend, "unchanged flag defaults must not override env")
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
}

func TestIngestOptions_SourceSpecs(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		specs, err := ingestOptions{file: "docs.json", sourceType: "documentation"}.sourceSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 1)
		assert.Equal(t, ingest.SourceSpec{Path: "docs.json", Type: domain.SourceTypeDocumentation}, specs[0])
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := ingestOptions{s3Prefix: "blog/"}.sourceSpecs()
		assert.ErrorContains(t, err, "--type is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ingestOptions{file: "a.txt", sourceType: "podcast"}.sourceSpecs()
		assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))
	})

	t.Run("manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sources:\n  - path: notes.txt\n    type: text\n  - s3_prefix: blog/\n    type: blog\n"), 0o644))

		specs, err := ingestOptions{manifest: path}.sourceSpecs()
		require.NoError(t, err)
		require.Len(t, specs, 2)
		assert.Equal(t, "blog/", specs[1].S3Prefix)
	})
}

func TestIngestSources_IndexesLocalFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"heading": "Exports", "level": 2, "content": "Projects can be exported as JSON or CSV.", "url": "https://docs/export", "page_title": "Guide"},
		{"heading": "Empty", "content": ""}
	]`), 0o644))

	store := repository.NewMemoryStore(3)
	indexer := service.NewEmbeddingIndexer(fixedEncoder{}, store, service.DefaultIndexerConfig())
	cfg := &config.Config{ChunkSize: 1200, ChunkOverlap: 150}

	report, err := ingestSources(ctx, newLoader(&ingest.Parser{}, nil), newIngestionService(cfg, indexer),
		[]ingest.SourceSpec{{Path: path, Type: domain.SourceTypeDocumentation}})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Chunks)
	count, _ := store.Count(ctx)
	assert.EqualValues(t, 1, count)

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "Documents: 1 (skipped 1)")
	assert.Contains(t, out.String(), "documentation")
}

func TestNewSyncWorker_DisabledWithoutS3(t *testing.T) {
	worker, err := newSyncWorker(&config.Config{SyncInterval: time.Minute}, nil, nil, repository.NewMemoryStore(3))

	require.NoError(t, err)
	assert.Nil(t, worker)
}

func TestNewIndexer_RequiresEndpoint(t *testing.T) {
	_, err := newIndexer(&config.Config{}, repository.NewMemoryStore(3))
	assert.ErrorContains(t, err, "embeddings endpoint is required")
}
