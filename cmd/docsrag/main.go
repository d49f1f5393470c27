package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docsrag/internal/cli"
	"github.com/cloo-solutions/docsrag/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsrag",
		Short: "docsrag CLI - ask questions about your documentation",
		Long: `docsrag CLI queries a running docsragd server.

Environment variables:
  DOCSRAG_API_URL   API base URL (default: http://localhost:8080)
  DOCSRAG_API_KEY   Bearer key, when the server requires one`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HistoryCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
