package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/strrl/chat-history/internal/config"
	"github.com/strrl/chat-history/internal/tui"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	var current string

	rootCmd := &cobra.Command{
		Use:   "chat-history",
		Short: "Browse the saved chats of a character or group",
		Long: `chat-history lists, searches and sorts the saved chats of one character
or group from a chat host, with background previews and creation dates.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags, current)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/chat-history/config.yaml)")
	pf.StringVar(&flags.baseURL, "base-url", "", "chat host origin, e.g. http://127.0.0.1:8000")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&flags.source, "source", "", "listing source: http or local")
	pf.StringVar(&flags.character, "character", "", "character id")
	pf.StringVar(&flags.avatar, "avatar", "", "character avatar file, e.g. alice.png")
	pf.StringVar(&flags.name, "name", "", "character display name")
	pf.StringVar(&flags.group, "group", "", "group id")
	pf.StringVar(&flags.sort, "sort", "", "sort order (time-desc, time-asc, name-asc, name-desc, messages-desc, messages-asc)")

	rootCmd.Flags().StringVar(&current, "current", "", "chat to highlight and resolve first")

	rootCmd.AddCommand(NewListCommand(flags))
	rootCmd.AddCommand(NewSearchCommand(flags))
	rootCmd.AddCommand(NewInspectCommand(flags))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, flags *globalFlags, current string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()
	a.watch(ctx)

	title := a.scope.DisplayName
	if title == "" {
		title = a.scope.String()
	}

	selected, err := tui.Run(ctx, tui.Options{
		Controller:         a.ctrl,
		Preview:            a.preview,
		Creation:           a.creation,
		Bus:                a.bus,
		Title:              title,
		Sort:               a.sort,
		CurrentChatID:      current,
		AutoPageMultiplier: a.cfg.List.AutoPageMultiplier,
		Poll:               a.cfg.Pager.Mode == config.PagerModePoll,
		PollInterval:       a.cfg.Pager.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if selected == nil {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), selected.FileName)
	return nil
}
