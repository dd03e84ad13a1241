package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/pkg/models"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(flags *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "inspect <chat-id>",
		Short: "Resolve the background preview and creation date of one chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := models.NewChatRecord(args[0])
			records := []*models.ChatRecord{rec}
			opts := hydrate.HydrateOptions{PriorityID: rec.FileName}
			a.preview.Hydrate(cmd.Context(), records, a.scope, opts)
			a.creation.Hydrate(cmd.Context(), records, a.scope, opts)

			w := cmd.OutOrStdout()
			printFacets(w, a.scope, rec)

			if raw {
				body, err := fetchHead(cmd, a, rec.FileName)
				if err != nil {
					return fmt.Errorf("failed to fetch chat: %w", err)
				}
				fmt.Fprintln(w, "\n--- Chat Body ---")
				fmt.Fprintln(w, indentJSON(body))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "also print the stored chat body")
	return cmd
}

func printFacets(w io.Writer, scope models.Scope, rec *models.ChatRecord) {
	fmt.Fprintf(w, "Inspecting chat: %s (%s)\n", rec.FileName, scope)
	fmt.Fprintln(w, "==========================================")

	if p := rec.Preview(); p != nil {
		fmt.Fprintf(w, "Background:  %s\n", p.OriginalURL)
		fmt.Fprintf(w, "Preview URL: %s\n", p.PreviewURL)
		fmt.Fprintf(w, "CSS:         %s\n", p.CSSImage)
		fmt.Fprintf(w, "Source:      %s\n", p.Source)
	} else {
		fmt.Fprintln(w, "Background:  none")
	}

	switch at, raw := rec.CreatedAt(); {
	case at != nil:
		fmt.Fprintf(w, "Created:     %s (%s)\n", at.Local().Format("2006-01-02 15:04:05"), raw)
	case raw != "":
		fmt.Fprintf(w, "Created:     %s (unparsed)\n", raw)
	default:
		fmt.Fprintln(w, "Created:     unknown")
	}
}

func fetchHead(cmd *cobra.Command, a *app, fileName string) ([]byte, error) {
	var fetcher hydrate.ChatFetcher = a.client
	if a.local != nil {
		fetcher = a.local
	}
	if a.scope.Type == models.ScopeGroup {
		return fetcher.GetGroupChat(cmd.Context(), fileName)
	}
	return fetcher.GetCharacterChat(cmd.Context(), a.scope.AvatarRef, a.scope.DisplayName, fileName)
}

func indentJSON(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	return gjson.GetBytes(body, "@pretty").Raw
}
