package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/client"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/unicodecheck"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// connect dials the server and enters room, running the session until ctx ends.
// handle is called for every frame after the room has applied it.
func connect(ctx context.Context, cfg *cliConfig, code string, handle func(*client.Room, wire.OutboundFrame)) (*client.Room, *errgroup.Group, error) {
	token, err := cfg.token()
	if err != nil {
		return nil, nil, err
	}
	session, err := client.Dial(ctx, cfg.server(), token)
	if err != nil {
		return nil, nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })

	room, err := client.EnterRoom(gctx, session, client.NewHistoryClient(cfg.server(), token), code, 0)
	if err != nil {
		_ = session.Close()
		_ = g.Wait()
		return nil, nil, err
	}

	g.Go(func() error {
		for f := range session.Events() {
			if f.Type == wire.FrameError {
				handle(room, f)
				continue
			}
			if room.Dispatch(f) {
				handle(room, f)
			}
		}
		return nil
	})
	return room, g, nil
}

func printFrame(w io.Writer, f wire.OutboundFrame) {
	switch f.Type {
	case wire.FrameChat:
		if m, err := f.Chat(); err == nil {
			printChat(w, m)
		}
	case wire.FrameDraw:
		if el, err := f.Draw(); err == nil {
			printDraw(w, el)
		}
	case wire.FrameInfo:
		fmt.Fprintf(w, "* %s\n", f.Content)
	case wire.FrameError:
		fmt.Fprintf(w, "! %s\n", f.Content)
	}
}

func newTailCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tail <joinCode>",
		Short: "Join a room and print chat, drawing and presence events as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			room, g, err := connect(ctx, cfg, args[0], func(_ *client.Room, f wire.OutboundFrame) {
				printFrame(out, f)
			})
			if err != nil {
				return err
			}
			for _, m := range room.Chat.Chronological() {
				printChat(out, m)
			}
			fmt.Fprintf(out, "-- %d elements on the canvas, watching %s --\n", room.Canvas.Len(), room.Code)

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newSayCmd(cfg *cliConfig) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "say <joinCode> <message>",
		Short: "Send one chat message and wait for the server to confirm it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			want := strings.TrimSpace(unicodecheck.Clean(args[1]))
			confirmed := make(chan wire.ChatMessage, 1)
			rejected := make(chan string, 1)
			room, g, err := connect(ctx, cfg, args[0], func(_ *client.Room, f wire.OutboundFrame) {
				switch f.Type {
				case wire.FrameChat:
					if f.Author != nil && f.Content == want {
						if m, err := f.Chat(); err == nil {
							select {
							case confirmed <- m:
							default:
							}
						}
					}
				case wire.FrameError:
					select {
					case rejected <- f.Content:
					default:
					}
				}
			})
			if err != nil {
				return err
			}

			if err := room.Say(args[1]); err != nil {
				cancel()
				_ = g.Wait()
				return err
			}

			var result error
			select {
			case m := <-confirmed:
				fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", m.ID)
			case reason := <-rejected:
				result = fmt.Errorf("rejected: %s", reason)
			case <-ctx.Done():
				result = fmt.Errorf("no confirmation: %w", ctx.Err())
			}
			cancel()
			_ = g.Wait()
			return result
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for confirmation")
	return cmd
}
