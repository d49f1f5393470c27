package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/storage"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 4

// ObjectStore lists and reads source objects.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.Object, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// Loader reads sources from disk or object storage and parses them.
type Loader struct {
	parser      *Parser
	objects     ObjectStore
	concurrency int
}

// NewLoader creates a Loader. objects may be nil when only local files are used.
func NewLoader(parser *Parser, objects ObjectStore) *Loader {
	return &Loader{
		parser:      parser,
		objects:     objects,
		concurrency: defaultFetchConcurrency,
	}
}

// Load reads every source. Unreadable or undecodable sources are logged and
// skipped; listing failures and cancellation abort the run.
func (l *Loader) Load(ctx context.Context, specs []SourceSpec) ([]domain.Document, error) {
	var docs []domain.Document
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}

		var (
			loaded []domain.Document
			err    error
		)
		if spec.Path != "" {
			loaded, err = l.LoadFile(spec)
		} else {
			loaded, err = l.LoadPrefix(ctx, spec)
		}
		if err != nil {
			if domain.HasCode(err, domain.ErrCodeIngestion) {
				log.Printf("ingest: skipping source: %v", err)
				continue
			}
			return nil, err
		}
		log.Printf("ingest: %s produced %d documents", sourceName(spec), len(loaded))
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// LoadFile reads and parses a local file.
func (l *Loader) LoadFile(spec SourceSpec) ([]domain.Document, error) {
	data, err := os.ReadFile(spec.Path)
	if err != nil {
		return nil, domain.NewIngestionError(fmt.Sprintf("failed to read %s", spec.Path), err)
	}
	return l.parser.Parse(data, spec.Type, Origin{Path: spec.Path, URL: spec.URL, Title: spec.Title})
}

// LoadPrefix fetches every object under the source's prefix concurrently.
// Documents are returned in listing order.
func (l *Loader) LoadPrefix(ctx context.Context, spec SourceSpec) ([]domain.Document, error) {
	if l.objects == nil {
		return nil, errors.New("object storage is not configured")
	}
	objects, err := l.objects.ListObjects(ctx, spec.S3Prefix)
	if err != nil {
		return nil, err
	}

	results := make([][]domain.Document, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, obj := range objects {
		g.Go(func() error {
			docs, err := l.LoadObject(gctx, obj.Key, spec)
			if err != nil {
				if domain.HasCode(err, domain.ErrCodeIngestion) {
					log.Printf("ingest: skipping object: %v", err)
					return nil
				}
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, r := range results {
		docs = append(docs, r...)
	}
	return docs, nil
}

// LoadObject fetches and parses a single object as spec.Type.
func (l *Loader) LoadObject(ctx context.Context, key string, spec SourceSpec) ([]domain.Document, error) {
	if l.objects == nil {
		return nil, errors.New("object storage is not configured")
	}
	data, err := l.objects.GetObject(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewIngestionError(fmt.Sprintf("failed to fetch %s", key), err)
	}
	return l.parser.Parse(data, spec.Type, Origin{Path: key, URL: spec.URL, Title: spec.Title})
}

func sourceName(spec SourceSpec) string {
	if spec.Path != "" {
		return spec.Path
	}
	return "s3://" + spec.S3Prefix
}
