package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strrl/chat-history/internal/chats"
)

// NewSearchCommand creates the search command
func NewSearchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the chats of a character or group",
		Long: `Search the chats of the selected scope through the host's search
endpoint. Every match is printed; search results are not paged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be empty")
			}

			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.ctrl.Load(cmd.Context(), chats.LoadRequest{Query: query, Sort: a.sort})
			if err != nil {
				return fmt.Errorf("failed to search chats: %w", err)
			}
			printChats(cmd.OutOrStdout(), a.scope, result, result.ToRender, "")
			return nil
		},
	}
}
