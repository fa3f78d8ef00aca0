package cmd

import (
	"github.com/spf13/cobra"
	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the now-playing record",
	Long:  `Clear the now-playing record and stop receiving remote commands.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *ipc.Client) error { return c.Reset() })
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options <json|@file>",
	Short: "Set player capabilities",
	Long: `Enable remote commands per capability and configure jump intervals,
feedback commands and the placeholder artwork.

Example:
  trackplayer-bridge options '{"capabilities":["play","pause"],"jumpInterval":30}'`,
	Args: cobra.ExactArgs(1),
	RunE: rawCommand((*ipc.Client).UpdateOptions),
}

var nowPlayingCmd = &cobra.Command{
	Use:   "now-playing <json|@file>",
	Short: "Set the current track",
	Long: `Replace the current track and publish its metadata.

Example:
  trackplayer-bridge now-playing '{"id":"1","url":"https://example.com/a.mp3","title":"Song","artwork":"https://example.com/a.jpg"}'`,
	Args: cobra.ExactArgs(1),
	RunE: rawCommand((*ipc.Client).SetNowPlaying),
}

var playbackCmd = &cobra.Command{
	Use:   "playback <json|@file>",
	Short: "Update playback state and metadata",
	Long: `Merge metadata into the current track and update the playback state.

Example:
  trackplayer-bridge playback '{"state":"paused","elapsedTime":42}'`,
	Args: cobra.ExactArgs(1),
	RunE: rawCommand((*ipc.Client).UpdatePlayback),
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the current track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *ipc.Client) error {
			track, err := c.CurrentTrack()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), track)
		})
	},
}

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "List state and capability constants and event names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *ipc.Client) error {
			r, err := c.Constants()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), r)
			}
			printConstants(cmd.OutOrStdout(), r)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(resetCmd, optionsCmd, nowPlayingCmd, playbackCmd, currentCmd, constantsCmd)
}

func withClient(f func(*ipc.Client) error) error {
	c, err := connect()
	if err != nil {
		return err
	}
	return f(c)
}

func rawCommand(call func(*ipc.Client, map[string]any) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		raw, err := readJSONArg(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withClient(func(c *ipc.Client) error { return call(c, raw) })
	}
}
