package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strrl/chat-history/internal/chats"
	"github.com/strrl/chat-history/pkg/models"
)

// NewListCommand creates the list command
func NewListCommand(flags *globalFlags) *cobra.Command {
	var pages int
	var all bool
	var current string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chats of a character or group without TUI",
		Long: `List the chats of the selected scope, sorted, one page at a time.
Use --pages to show more pages and --all to print every chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			for i := 1; i < pages; i++ {
				a.ctrl.ShowMore()
			}
			result, err := a.ctrl.Load(cmd.Context(), chats.LoadRequest{Sort: a.sort, CurrentChatID: current})
			if err != nil {
				return fmt.Errorf("failed to list chats: %w", err)
			}
			items := result.ToRender
			if all {
				items = result.SortedItems
			}
			printChats(cmd.OutOrStdout(), a.scope, result, items, current)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to show")
	cmd.Flags().BoolVar(&all, "all", false, "print every chat; only the first pages carry previews and creation dates")
	cmd.Flags().StringVar(&current, "current", "", "chat to mark and resolve first")
	return cmd
}

// printChats writes one numbered block per chat.
func printChats(w io.Writer, scope models.Scope, result *chats.LoadResult, items []*models.ChatRecord, current string) {
	if len(items) == 0 {
		if result.IsSearchMode {
			fmt.Fprintf(w, "No chats match the search in %s\n", scope)
		} else {
			fmt.Fprintf(w, "No chats found for %s\n", scope)
		}
		return
	}

	fmt.Fprintf(w, "Chats for %s (%s):\n", scope, result.Mode())
	fmt.Fprintln(w, strings.Repeat("=", 40))
	for i, rec := range items {
		marker := ""
		if current != "" && rec.Key() == models.ChatKey(current) {
			marker = " (current)"
		}
		fmt.Fprintf(w, "%d. %s%s\n", i+1, rec.FileName, marker)
		fmt.Fprintf(w, "   Messages: %d\n", rec.MessageCount)
		fmt.Fprintf(w, "   Last Activity: %s\n", lastActivity(rec))
		if rec.FileSizeLabel != "" {
			fmt.Fprintf(w, "   Size: %s\n", rec.FileSizeLabel)
		}
		if at, raw := rec.CreatedAt(); at != nil {
			fmt.Fprintf(w, "   Created: %s\n", at.Local().Format("2006-01-02 15:04"))
		} else if raw != "" {
			fmt.Fprintf(w, "   Created: %s\n", raw)
		}
		if p := rec.Preview(); p != nil {
			fmt.Fprintf(w, "   Background: %s\n", p.OriginalURL)
		}
		if rec.LastMessagePreview != "" {
			fmt.Fprintf(w, "   Last Message: %s\n", truncate(strings.Join(strings.Fields(rec.LastMessagePreview), " "), 70))
		}
	}
	if result.HasMore && len(items) < len(result.SortedItems) {
		fmt.Fprintf(w, "\n... and %d more chats\n", len(result.SortedItems)-len(items))
	}
}

func lastActivity(rec *models.ChatRecord) string {
	if rec.LastMessageAt != nil {
		return rec.LastMessageAt.Local().Format("2006-01-02 15:04")
	}
	if rec.LastMessageRaw != "" {
		return rec.LastMessageRaw
	}
	return "-"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
