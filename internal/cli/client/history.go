package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// Turn is one exchange of a conversation.
type Turn struct {
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	SourceCount int       `json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse is the /conversations/{id} response body.
type HistoryResponse struct {
	ConversationID string `json:"conversation_id"`
	Turns          []Turn `json:"turns"`
}

// HistoryCmd creates the history command group.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear conversation history",
	}
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyClearCmd())
	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [conversation-id]",
		Short: "Print the turns of a conversation (defaults to the last one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationArg(args)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHistoryShow(cmd.Context(), api, id, outputJSON, cmd.OutOrStdout())
		},
	}
}

func historyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [conversation-id]",
		Short: "Delete a conversation (defaults to the last one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := conversationArg(args)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if err := api.Delete(cmd.Context(), "/conversations/"+url.PathEscape(id)); err != nil {
				return fmt.Errorf("clear failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s\n", id)
			return nil
		},
	}
}

func conversationArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	config, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if config == nil || config.LastConversationID == "" {
		return "", errors.New("no conversation id given and none remembered")
	}
	return config.LastConversationID, nil
}

func runHistoryShow(ctx context.Context, api *APIClient, id string, outputJSON bool, out io.Writer) error {
	var resp HistoryResponse
	if err := api.Get(ctx, "/conversations/"+url.PathEscape(id), &resp); err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	if outputJSON {
		return writeJSON(out, resp)
	}

	fmt.Fprintf(out, "Conversation %s (%d turns)\n", resp.ConversationID, len(resp.Turns))
	for i, turn := range resp.Turns {
		fmt.Fprintf(out, "\n[%d] %s\n", i+1, turn.CreatedAt.Local().Format(time.DateTime))
		fmt.Fprintf(out, "Q: %s\n", turn.Query)
		fmt.Fprintf(out, "A: %s\n", turn.Response)
		fmt.Fprintf(out, "   (%d sources)\n", turn.SourceCount)
	}
	return nil
}
