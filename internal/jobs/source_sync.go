package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/ingest"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/cloo-solutions/docsrag/internal/storage"
)

// MaxRetries is how many ticks an object version may fail before it is
// skipped until its ETag changes again.
const MaxRetries = 3

type ObjectLister interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.Object, error)
}

type ObjectLoader interface {
	LoadObject(ctx context.Context, key string, spec ingest.SourceSpec) ([]domain.Document, error)
}

type DocumentIngester interface {
	Ingest(ctx context.Context, docs []domain.Document) (*service.IngestReport, error)
}

// SourcePruner drops the chunks of a source that a successful re-ingest did
// not rewrite, so sections removed from a changed object do not linger in
// the index.
type SourcePruner interface {
	DeleteStaleChunks(ctx context.Context, sourceFile string, keep []string) (int64, error)
}

type objectState struct {
	etag     string
	synced   bool
	failures int
}

// SourceSyncProcessor re-ingests S3 objects whose ETag changed since the
// last successful sync.
type SourceSyncProcessor struct {
	spec     ingest.SourceSpec
	lister   ObjectLister
	loader   ObjectLoader
	ingester DocumentIngester
	pruner   SourcePruner

	mu    sync.Mutex
	state map[string]*objectState
}

// NewSourceSyncProcessor creates a processor for spec, which must name an
// S3 prefix. pruner may be nil.
func NewSourceSyncProcessor(spec ingest.SourceSpec, lister ObjectLister, loader ObjectLoader, ingester DocumentIngester, pruner SourcePruner) (*SourceSyncProcessor, error) {
	if spec.Path != "" {
		return nil, fmt.Errorf("source sync needs an s3 prefix, got path %q", spec.Path)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &SourceSyncProcessor{
		spec:     spec,
		lister:   lister,
		loader:   loader,
		ingester: ingester,
		pruner:   pruner,
		state:    make(map[string]*objectState),
	}, nil
}

func (p *SourceSyncProcessor) Name() string {
	return "source-sync"
}

// Process implements the Processor interface. Per-object failures are
// counted and logged; only listing failures are returned.
func (p *SourceSyncProcessor) Process(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	objects, err := p.lister.ListObjects(ctx, p.spec.S3Prefix)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", p.spec.S3Prefix, err)
	}

	synced := 0
	for _, obj := range objects {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st := p.state[obj.Key]
		if st != nil && st.etag == obj.ETag && (st.synced || st.failures >= MaxRetries) {
			continue
		}
		if st == nil || st.etag != obj.ETag {
			st = &objectState{etag: obj.ETag}
			p.state[obj.Key] = st
		}

		if err := p.syncObject(ctx, obj.Key); err != nil {
			st.failures++
			if st.failures >= MaxRetries {
				log.Printf("sync: giving up on %s (etag %s) after %d attempts: %v", obj.Key, obj.ETag, st.failures, err)
			} else {
				log.Printf("sync: %s failed (attempt %d/%d): %v", obj.Key, st.failures, MaxRetries, err)
			}
			continue
		}
		st.synced = true
		synced++
	}

	if synced > 0 {
		log.Printf("sync: re-ingested %d of %d objects under %s", synced, len(objects), p.spec.S3Prefix)
	}
	return nil
}

func (p *SourceSyncProcessor) syncObject(ctx context.Context, key string) error {
	docs, err := p.loader.LoadObject(ctx, key, p.spec)
	if err != nil {
		return err
	}
	// Chunk IDs are stable, so the ingest overwrites in place and the old
	// chunks keep serving until it succeeds.
	report, err := p.ingester.Ingest(ctx, docs)
	if err != nil {
		return err
	}
	if p.pruner == nil {
		return nil
	}
	pruned, err := p.pruner.DeleteStaleChunks(ctx, key, report.ChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to prune stale chunks: %w", err)
	}
	if pruned > 0 {
		log.Printf("sync: pruned %d stale chunks of %s", pruned, key)
	}
	return nil
}
