package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
)

var emitCmd = &cobra.Command{
	Use:   "emit <playback-event> [json|@file]",
	Short: "Publish a playback event to event stream subscribers",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body map[string]any
		if len(args) == 2 {
			var err error
			if body, err = readJSONArg(args[1], cmd.InOrStdin()); err != nil {
				return err
			}
		}
		return withClient(func(c *ipc.Client) error {
			if body == nil {
				return c.Publish(args[0], nil)
			}
			return c.Publish(args[0], body)
		})
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream events from the bridge",
	Long: `Print events as they are delivered. Output is aligned text when stdout
is a terminal and JSON lines otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		pretty := !jsonOut && isTerminal(os.Stdout)
		out := cmd.OutOrStdout()
		return withClient(func(c *ipc.Client) error {
			err := c.Subscribe(ctx, func(e ipc.Event) {
				fmt.Fprintln(out, formatEvent(e, pretty))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(emitCmd, eventsCmd)
}
