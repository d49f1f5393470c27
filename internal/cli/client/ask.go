package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest is the /rag request body.
type AskRequest struct {
	Message        string `json:"message"`
	ContextK       int    `json:"context_k,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SourceType     string `json:"source_type,omitempty"`
}

// AskResponse is the /rag response body.
type AskResponse struct {
	Response         string         `json:"response"`
	ContextUsed      []SearchResult `json:"context_used"`
	ConversationID   string         `json:"conversation_id"`
	ProcessingTimeMS float64        `json:"processing_time_ms"`
}

type askOptions struct {
	contextK       int
	conversationID string
	resume         bool
	sourceType     string
	showSources    bool
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from the documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if opts.resume && opts.conversationID == "" {
				config, err := LoadGlobalConfig()
				if err != nil {
					return err
				}
				if config == nil || config.LastConversationID == "" {
					return errors.New("no previous conversation to continue")
				}
				opts.conversationID = config.LastConversationID
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			resp, err := runAsk(cmd.Context(), api, strings.Join(args, " "), opts, outputJSON, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			rememberConversation(resp.ConversationID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.contextK, "context", "k", 0, "Number of passages to ground the answer on (server default when 0)")
	cmd.Flags().StringVar(&opts.conversationID, "conversation", "", "Conversation id to append to")
	cmd.Flags().BoolVarP(&opts.resume, "continue", "c", false, "Continue the last conversation")
	cmd.Flags().StringVarP(&opts.sourceType, "type", "t", "", "Restrict context to one source type (documentation, website, blog, youtube, text, html)")
	cmd.Flags().BoolVar(&opts.showSources, "sources", false, "List the passages the answer was grounded on")

	return cmd
}

func runAsk(ctx context.Context, api *APIClient, question string, opts askOptions, outputJSON bool, out io.Writer) (*AskResponse, error) {
	req := AskRequest{
		Message:        question,
		ContextK:       opts.contextK,
		ConversationID: opts.conversationID,
		SourceType:     opts.sourceType,
	}

	var resp AskResponse
	if err := api.Post(ctx, "/rag", req, &resp); err != nil {
		return nil, fmt.Errorf("ask failed: %w", err)
	}

	if outputJSON {
		return &resp, writeJSON(out, resp)
	}

	fmt.Fprintln(out, resp.Response)
	if opts.showSources && len(resp.ContextUsed) > 0 {
		fmt.Fprintf(out, "\n%s\n", strings.Repeat("-", 40))
		for i, c := range resp.ContextUsed {
			fmt.Fprintf(out, "[%d] %s", i+1, c.Title)
			if c.URL != "" {
				fmt.Fprintf(out, " <%s>", c.URL)
			}
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintf(out, "\nconversation %s (%.0f ms)\n", resp.ConversationID, resp.ProcessingTimeMS)
	return &resp, nil
}
