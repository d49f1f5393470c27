package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docsrag/internal/cli"
	"github.com/cloo-solutions/docsrag/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsragd",
		Short: "docsrag daemon and ingestion CLI",
		Long:  "docsrag daemon for serving retrieval-augmented answers over documentation and for ingesting sources into the vector store",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.StatsCmd())
	rootCmd.AddCommand(admin.UploadCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
