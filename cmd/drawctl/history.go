package main

import (
	"fmt"
	"io"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/client"
	"github.com/spf13/cobra"
)

func newHistoryCmd(cfg *cliConfig) *cobra.Command {
	var (
		limit int
		pages int
	)
	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Print a room's chat history, oldest first",
		Long: `Prints the chat history of a room identified by join code or id.
The newest page is fetched first; --pages loads that many pages going back
in time (0 loads everything).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := cfg.token()
			if err != nil {
				return err
			}
			window := client.NewChatWindow(client.NewHistoryClient(cfg.server(), token), args[0], limit)
			for i := 0; pages == 0 || i < pages; i++ {
				if !window.HasMore() {
					break
				}
				if _, err := window.LoadOlder(cmd.Context()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, m := range window.Chronological() {
				printChat(out, m)
			}
			if window.HasMore() {
				fmt.Fprintln(out, "-- older messages available --")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Messages per page (server default when 0)")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load, 0 for all")
	return cmd
}

func newDrawsCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "draws <room>",
		Short: "Print every drawn element of a room in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := cfg.token()
			if err != nil {
				return err
			}
			draws, err := client.NewHistoryClient(cfg.server(), token).FetchDraws(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, el := range draws {
				printDraw(out, el)
			}
			fmt.Fprintf(out, "%d elements\n", len(draws))
			return nil
		},
	}
}

func printChat(w io.Writer, m wire.ChatMessage) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Author.Username, m.Content)
}

func printDraw(w io.Writer, el wire.DrawElement) {
	switch {
	case el.ShapeKind == wire.ShapeText && el.Text != nil:
		fmt.Fprintf(w, "%s %s %q by %s\n", el.ID, el.ShapeKind, *el.Text, el.CreatedBy)
	case len(el.Points) > 0:
		fmt.Fprintf(w, "%s %s %d points by %s\n", el.ID, el.ShapeKind, len(el.Points), el.CreatedBy)
	default:
		fmt.Fprintf(w, "%s %s by %s\n", el.ID, el.ShapeKind, el.CreatedBy)
	}
}
