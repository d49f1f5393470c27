package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/cloo-solutions/docsrag/internal/database"
	"github.com/cloo-solutions/docsrag/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgvectorImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	pgCredential     = "docsrag"
	rustfsCredential = "rustfsadmin"
)

// imageFor lets CI pin images through DOCSRAG_TEST_<NAME>_IMAGE.
func imageFor(name, fallback string) string {
	if image := os.Getenv("DOCSRAG_TEST_" + name + "_IMAGE"); image != "" {
		return image
	}
	return fallback
}

// startContainer starts req and resolves the host and mapped port of its
// single exposed port. Integration tests are skipped under -short.
func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get %s endpoint: %v", req.Image, err)
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		t.Fatalf("unexpected %s endpoint %q: %v", req.Image, endpoint, err)
	}
	return container, host, port
}

// PostgresContainer is a pgvector-enabled Postgres for integration tests.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewPostgresContainer starts pgvector/pgvector and waits until it accepts connections.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        imageFor("PGVECTOR", pgvectorImage),
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	})

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

// ConnectionString returns the DOCSRAG_DATABASE_URL for the container.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgCredential, pgCredential, pc.Host, pc.Port, pgCredential)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// RustFSContainer is an S3-compatible object store for integration tests.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        imageFor("RUSTFS", rustfsImage),
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": rustfsCredential,
			"RUSTFS_SECRET_KEY": rustfsCredential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	})

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

// Endpoint returns the DOCSRAG_S3_ENDPOINT for the container.
func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool connects to the container, retrying while postgres finishes
// starting, and applies the migrations in migrationsDir.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for i := 0; i < 5; i++ {
		pool, err = database.NewPool(ctx, database.Config{URL: pc.ConnectionString(), MaxConns: 4})
		if err == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to create pool after retries: %v", err)
	}

	if err := database.Migrate(pc.ConnectionString(), migrationsDir); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pool
}

// NewTestS3Client returns a client for a fresh bucket on the container.
func NewTestS3Client(ctx context.Context, t *testing.T, rc *RustFSContainer, bucket string) *storage.S3Client {
	t.Helper()

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     rustfsCredential,
		SecretAccessKey: rustfsCredential,
		Bucket:          bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create s3 client: %v", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket %s: %v", bucket, err)
	}
	return client
}

// TruncateAll empties the chunks table for test isolation
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE chunks RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to truncate chunks: %w", err)
	}
	return nil
}
