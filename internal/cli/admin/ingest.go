package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/cloo-solutions/docsrag/internal/ingest"
	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	manifest    string
	file        string
	s3Prefix    string
	sourceType  string
	url         string
	title       string
	updatesOnly bool
	outputJSON  bool
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and store documentation sources",
		Long: `Reads sources from a YAML manifest, a single local file, or an S3 prefix,
chunks every document, embeds the chunks and upserts them into the vector store.
Re-ingesting the same source overwrites its chunks in place.`,
		Example: `  docsragd ingest --manifest sources.yaml
  docsragd ingest --file docs.json --type documentation
  docsragd ingest --s3-prefix blog/ --type blog --updates-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "YAML manifest listing the sources")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Single local source file")
	cmd.Flags().StringVar(&opts.s3Prefix, "s3-prefix", "", "Ingest every object under this S3 prefix")
	cmd.Flags().StringVarP(&opts.sourceType, "type", "t", "", "Source type for --file or --s3-prefix")
	cmd.Flags().StringVar(&opts.url, "url", "", "URL to attribute text and html files to")
	cmd.Flags().StringVar(&opts.title, "title", "", "Title for text and html files")
	cmd.Flags().BoolVar(&opts.updatesOnly, "updates-only", false, "Keep only records that look like product updates")
	cmd.Flags().BoolVar(&opts.outputJSON, "output", false, "Print the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("manifest", "file", "s3-prefix")
	cmd.MarkFlagsOneRequired("manifest", "file", "s3-prefix")
	addStoreFlags(cmd)

	return cmd
}

// sourceSpecs turns the command line into the list of sources to ingest.
func (o ingestOptions) sourceSpecs() ([]ingest.SourceSpec, error) {
	if o.manifest != "" {
		m, err := ingest.LoadManifest(o.manifest)
		if err != nil {
			return nil, err
		}
		return m.Sources, nil
	}
	if o.sourceType == "" {
		return nil, errors.New("--type is required with --file or --s3-prefix")
	}
	st, err := domain.ParseSourceType(o.sourceType)
	if err != nil {
		return nil, err
	}
	spec := ingest.SourceSpec{Path: o.file, S3Prefix: o.s3Prefix, Type: st, URL: o.url, Title: o.title}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return []ingest.SourceSpec{spec}, nil
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	ctx := cmd.Context()

	specs, err := opts.sourceSpecs()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.UsesPostgres() {
		return errors.New("the memory backend does not outlive this command; use `docsragd serve --manifest` instead")
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

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	loader := newLoader(&ingest.Parser{UpdatesOnly: opts.updatesOnly}, objects)
	report, err := ingestSources(ctx, loader, newIngestionService(cfg, indexer), specs)
	if err != nil {
		return err
	}

	if opts.outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// ingestSources loads every source and indexes the resulting documents.
func ingestSources(ctx context.Context, loader *ingest.Loader, ingestion *service.IngestionService, specs []ingest.SourceSpec) (*service.IngestReport, error) {
	docs, err := loader.Load(ctx, specs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	if len(docs) == 0 {
		log.Println("ingest: sources produced no documents")
		return &service.IngestReport{Stats: service.SummaryStats(nil)}, nil
	}

	report, err := ingestion.Ingest(ctx, docs)
	if err != nil {
		return report, fmt.Errorf("ingestion failed: %w", err)
	}
	return report, nil
}

func printReport(out io.Writer, report *service.IngestReport) {
	fmt.Fprintf(out, "Documents: %d (skipped %d)\n", report.Documents, report.Skipped)
	fmt.Fprintf(out, "Chunks:    %d in %d batches\n", report.Chunks, report.Batches)
	printStats(out, report.Stats)
}

func printStats(out io.Writer, stats service.IngestStats) {
	fmt.Fprintf(out, "Average chunk length: %.0f chars\n", stats.AverageChunkChars)
	fmt.Fprintf(out, "Unique URLs:          %d\n", stats.UniqueURLs)
	if len(stats.BySourceType) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSOURCE TYPE\tCHUNKS")
	for _, st := range stats.SortedSourceTypes() {
		fmt.Fprintf(w, "%s\t%d\n", st, stats.BySourceType[st])
	}
	w.Flush()
}
