package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// Optional static bearer key guarding the query endpoints.
	APIKey string `envconfig:"API_KEY"`

	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns    int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbedBatchSize      int    `envconfig:"EMBED_BATCH_SIZE" default:"32"`
	EncoderConcurrency  int    `envconfig:"ENCODER_CONCURRENCY" default:"4"`
	UpsertBatchSize     int    `envconfig:"UPSERT_BATCH_SIZE" default:"100"`
	UpsertAttempts      int    `envconfig:"UPSERT_ATTEMPTS" default:"3"`

	ChatModel       string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	Temperature     float32 `envconfig:"TEMPERATURE" default:"0.1"`
	MaxOutputTokens int     `envconfig:"MAX_OUTPUT_TOKENS" default:"800"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1200"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"150"`

	TopKDefault      int     `envconfig:"TOP_K_DEFAULT" default:"5"`
	TopKMax          int     `envconfig:"TOP_K_MAX" default:"20"`
	MinScore         float64 `envconfig:"MIN_SCORE" default:"0.3"`
	FallbackMinScore float64 `envconfig:"FALLBACK_MIN_SCORE" default:"0"`

	MaxBlockChars      int           `envconfig:"MAX_BLOCK_CHARS" default:"1500"`
	MaxPromptChars     int           `envconfig:"MAX_PROMPT_CHARS" default:"40000"`
	GenerationAttempts int           `envconfig:"GENERATION_ATTEMPTS" default:"3"`
	GenerationBackoff  time.Duration `envconfig:"GENERATION_BACKOFF" default:"600ms"`
	GenerationRPS      float64       `envconfig:"GENERATION_RPS" default:"5"`
	GenerationBurst    int           `envconfig:"GENERATION_BURST" default:"2"`

	VocabularyFile string `envconfig:"VOCABULARY_FILE"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docsrag-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	// Zero disables the periodic S3 re-ingestion worker.
	SyncInterval   time.Duration `envconfig:"SYNC_INTERVAL" default:"0"`
	SyncSourceType string        `envconfig:"SYNC_SOURCE_TYPE" default:"documentation"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCSRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings no component can run with. An overlap at or
// above the chunk size is only warned about.
func (c *Config) Validate() error {
	var errs []error
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions))
	}
	if c.TopKMax < 1 {
		errs = append(errs, fmt.Errorf("TOP_K_MAX must be at least 1, got %d", c.TopKMax))
	}
	if c.TopKDefault < 1 || c.TopKDefault > c.TopKMax {
		errs = append(errs, fmt.Errorf("TOP_K_DEFAULT must be in 1..%d, got %d", c.TopKMax, c.TopKDefault))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	switch c.VectorBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.VectorBackend))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.ChunkOverlap >= c.ChunkSize {
		log.Printf("config: CHUNK_OVERLAP %d >= CHUNK_SIZE %d, chunks will be near-duplicates", c.ChunkOverlap, c.ChunkSize)
	}
	if need := c.PromptBudget(); c.MaxPromptChars > 0 && need > c.MaxPromptChars {
		log.Printf("config: MAX_BLOCK_CHARS %d x TOP_K_MAX %d needs about %d prompt chars but MAX_PROMPT_CHARS is %d, large answers will lose trailing context",
			c.MaxBlockChars, c.TopKMax, need, c.MaxPromptChars)
	}
	return nil
}

// promptOverheadChars approximates the system instruction plus the context
// and question framing around the blocks.
const promptOverheadChars = 1000

// PromptBudget is the prompt size a full TOP_K_MAX answer can reach.
func (c *Config) PromptBudget() int {
	return c.MaxBlockChars*c.TopKMax + promptOverheadChars
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != "" || c.OpenAIBaseURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

func (c *Config) UsesPostgres() bool {
	return c.VectorBackend == BackendPostgres
}
