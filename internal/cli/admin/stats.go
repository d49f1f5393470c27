package admin

import (
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/docsrag/internal/service"
	"github.com/spf13/cobra"
)

// StatsCmd returns the stats command
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the indexed corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			count, err := store.Count(ctx)
			if err != nil {
				return fmt.Errorf("failed to count chunks: %w", err)
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to summarize chunks: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					IndexedChunks int64 `json:"indexed_chunks"`
					service.IngestStats
				}{count, stats})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed chunks:       %d\n", count)
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().Bool("output", false, "Print as JSON")
	addStoreFlags(cmd)

	return cmd
}
