package admin

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/cloo-solutions/docsrag/internal/config"
	"github.com/spf13/cobra"
)

// UploadCmd returns the upload command
func UploadCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Put a source file into the S3 bucket",
		Long:  "Uploads a source file under DOCSRAG_S3_PREFIX, where the sync worker and `ingest --s3-prefix` pick it up.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// no store is opened, so the backend settings are not validated
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			objects, err := newObjectStore(ctx, cfg)
			if err != nil {
				return err
			}
			if objects == nil {
				return errors.New("S3 is not configured: set DOCSRAG_S3_ENDPOINT, DOCSRAG_S3_ACCESS_KEY_ID and DOCSRAG_S3_SECRET_ACCESS_KEY")
			}
			if err := objects.EnsureBucket(ctx); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if key == "" {
				key = path.Join(cfg.S3Prefix, filepath.Base(args[0]))
			}
			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			if err := objects.PutObject(ctx, key, data, contentType); err != nil {
				return err
			}
			meta, err := objects.HeadObject(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded s3://%s/%s (%d bytes, etag %s)\n", cfg.S3Bucket, key, meta.ContentLength, meta.ETag)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Object key (default: S3 prefix + file name)")

	return cmd
}
