package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/docsrag/internal/api/handlers"
	"github.com/cloo-solutions/docsrag/internal/api/middleware"
	"github.com/cloo-solutions/docsrag/internal/config"
	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/ingest"
	"github.com/cloo-solutions/docsrag/internal/jobs"
	"github.com/cloo-solutions/docsrag/internal/openai"
	"github.com/cloo-solutions/docsrag/internal/server"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/cloo-solutions/docsrag/internal/storage"
	"github.com/cloo-solutions/docsrag/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docsrag API server. The encoder is called once and its dimension checked against the store before the listener opens.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().String("manifest", "", "Ingest the sources of this manifest before serving")
	cmd.Flags().Duration("sync-interval", 0, "Re-ingest changed S3 objects at this interval (0 disables)")
	addStoreFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.HasSentry() {
		// 10% sampling in production, everything elsewhere
		sampleRate := 1.0
		if cfg.Environment == "production" {
			sampleRate = 0.1
		}
		flush, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer flush()
		}
	}

	store, closeStore, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	indexer, err := newIndexer(cfg, store)
	if err != nil {
		return err
	}
	if err := indexer.Verify(ctx); err != nil {
		return fmt.Errorf("encoder check failed: %w", err)
	}
	log.Printf("encoder ready: %s (%d dimensions)", cfg.EmbeddingModel, indexer.Dimensions())

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	ingestion := newIngestionService(cfg, indexer)

	if manifestPath, _ := cmd.Flags().GetString("manifest"); manifestPath != "" {
		manifest, err := ingest.LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		if _, err := ingestSources(ctx, newLoader(&ingest.Parser{}, objects), ingestion, manifest.Sources); err != nil {
			return err
		}
	}

	rag, err := newRAGService(cfg, indexer, store)
	if err != nil {
		return err
	}

	var worker *jobs.Worker
	if cfg.SyncInterval > 0 {
		worker, err = newSyncWorker(cfg, objects, ingestion, store)
		if err != nil {
			return err
		}
		if worker != nil {
			go worker.Start(ctx)
		}
	}

	routerCfg := server.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(store, handlers.HealthInfo{
			EmbeddingModel: cfg.EmbeddingModel,
			ChatModel:      cfg.ChatModel,
			VectorBackend:  cfg.VectorBackend,
		}),
		SearchHandler:       handlers.NewSearchHandler(rag),
		RAGHandler:          handlers.NewRAGHandler(rag),
		ConversationHandler: handlers.NewConversationHandler(rag.History()),
	}
	if cfg.HasAPIKey() {
		routerCfg.AuthValidator = middleware.StaticKey(cfg.APIKey)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newRAGService(cfg *config.Config, indexer *service.EmbeddingIndexer, store service.VectorStore) (*service.RAGService, error) {
	vocab, err := service.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, err
	}
	if !cfg.HasOpenAI() {
		return nil, errors.New("a chat endpoint is required: set DOCSRAG_OPENAI_API_KEY or DOCSRAG_OPENAI_BASE_URL")
	}

	model := openai.NewChatModel(openai.ChatConfig{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		Model:           cfg.ChatModel,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	})

	return service.NewRAGService(
		service.NewQueryAnalyzer(vocab),
		indexer,
		service.NewRetriever(store, service.RetrieverConfig{
			MinScore:         cfg.MinScore,
			FallbackMinScore: cfg.FallbackMinScore,
		}),
		service.NewPromptBuilder(cfg.MaxBlockChars),
		service.NewGenerationClient(model, service.GenerationConfig{
			MaxAttempts:       cfg.GenerationAttempts,
			Backoff:           cfg.GenerationBackoff,
			MaxPromptChars:    cfg.MaxPromptChars,
			RequestsPerSecond: cfg.GenerationRPS,
			Burst:             cfg.GenerationBurst,
		}),
		service.NewConversationStore(),
		service.RAGConfig{
			DefaultTopK: cfg.TopKDefault,
			MaxTopK:     cfg.TopKMax,
		},
	), nil
}

// newSyncWorker returns nil, without error, when S3 is not configured.
func newSyncWorker(cfg *config.Config, objects *storage.S3Client, ingestion *service.IngestionService, store vectorStore) (*jobs.Worker, error) {
	if objects == nil {
		log.Println("sync worker disabled: S3 is not configured")
		return nil, nil
	}
	spec := ingest.SourceSpec{S3Prefix: cfg.S3Prefix, Type: domain.SourceType(cfg.SyncSourceType)}
	processor, err := jobs.NewSourceSyncProcessor(spec, objects, ingest.NewLoader(&ingest.Parser{}, objects), ingestion, store)
	if err != nil {
		return nil, fmt.Errorf("invalid sync source: %w", err)
	}
	return jobs.NewWorker(processor, cfg.SyncInterval), nil
}
