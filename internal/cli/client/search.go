package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// SearchResult mirrors one item of the /search response.
type SearchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	Distance   float64 `json:"distance"`
	SourceFile string  `json:"source_file,omitempty"`
	ChunkID    string  `json:"chunk_id"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation index",
		Long:  "Returns the passages most similar to the query, without metadata filtering.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd.Context(), api, strings.Join(args, " "), limit, outputJSON, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default when 0)")

	return cmd
}

func runSearch(ctx context.Context, api *APIClient, query string, limit int, outputJSON bool, out io.Writer) error {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("k", strconv.Itoa(limit))
	}

	var results []SearchResult
	if err := api.Get(ctx, "/search?"+params.Encode(), &results); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputJSON {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (distance %.3f)\n", i+1, r.Title, r.Distance)
		if r.URL != "" {
			fmt.Fprintf(out, "   %s\n", r.URL)
		}
		fmt.Fprintf(out, "   %s\n", preview(r.Content, 160))
		if i < len(results)-1 {
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
	}
	return nil
}

func preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
