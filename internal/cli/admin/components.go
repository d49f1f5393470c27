package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/docsrag/internal/config"
	"github.com/cloo-solutions/docsrag/internal/database"
	"github.com/cloo-solutions/docsrag/internal/ingest"
	"github.com/cloo-solutions/docsrag/internal/openai"
	"github.com/cloo-solutions/docsrag/internal/repository"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/cloo-solutions/docsrag/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// vectorStore is what the daemon needs from a backend beyond the
// service.VectorStore contract.
type vectorStore interface {
	service.VectorStore
	service.DimensionReporter
	Stats(ctx context.Context) (service.IngestStats, error)
	DeleteStaleChunks(ctx context.Context, sourceFile string, keep []string) (int64, error)
}

// loadConfig loads the environment, applies changed flags on top and validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags over environment values.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = f.Value.String()
		case "backend":
			cfg.VectorBackend = f.Value.String()
		case "database-url":
			cfg.DatabaseURL = f.Value.String()
		case "sync-interval":
			if d, err := flags.GetDuration("sync-interval"); err == nil {
				cfg.SyncInterval = d
			}
		}
	})
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", config.BackendPostgres, "Vector store backend (postgres or memory)")
	cmd.Flags().String("database-url", "", "Postgres connection URL (overrides DOCSRAG_DATABASE_URL)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")
	cmd.Flags().String("migrations", database.DefaultMigrationsDir, "Directory holding the SQL migrations")
}

// openStore builds the configured backend. The returned close func is never nil.
func openStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (vectorStore, func(), error) {
	if !cfg.UsesPostgres() {
		log.Printf("using in-memory vector store (%d dimensions)", cfg.EmbeddingDimensions)
		return repository.NewMemoryStore(cfg.EmbeddingDimensions), func() {}, nil
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		dir, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, dir); err != nil {
			return nil, func() {}, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")
	return repository.NewChunkRepository(pool), pool.Close, nil
}

// newIndexer wires the embeddings encoder in front of store.
func newIndexer(cfg *config.Config, store service.VectorStore) (*service.EmbeddingIndexer, error) {
	if !cfg.HasOpenAI() {
		return nil, errors.New("an embeddings endpoint is required: set DOCSRAG_OPENAI_API_KEY or DOCSRAG_OPENAI_BASE_URL")
	}
	encoder := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	return service.NewEmbeddingIndexer(encoder, store, service.IndexerConfig{
		BatchSize:       cfg.EmbedBatchSize,
		UpsertBatchSize: cfg.UpsertBatchSize,
		UpsertAttempts:  cfg.UpsertAttempts,
		UpsertBackoff:   service.DefaultIndexerConfig().UpsertBackoff,
		Concurrency:     cfg.EncoderConcurrency,
	}), nil
}

func newIngestionService(cfg *config.Config, indexer *service.EmbeddingIndexer) *service.IngestionService {
	chunker := service.NewChunker(service.ChunkConfig{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	return service.NewIngestionService(chunker, indexer)
}

// newObjectStore returns nil when S3 is not configured.
func newObjectStore(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

// newLoader keeps a missing S3 client out of the ObjectStore interface.
func newLoader(parser *ingest.Parser, objects *storage.S3Client) *ingest.Loader {
	if objects == nil {
		return ingest.NewLoader(parser, nil)
	}
	return ingest.NewLoader(parser, objects)
}
