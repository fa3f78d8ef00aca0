package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
)

var (
	interruptReason       string
	interruptWasSuspended bool
	interruptShouldResume bool
	remotePosition        float64
)

var interruptCmd = &cobra.Command{
	Use:   "interrupt <began|ended>",
	Short: "Inject an audio-session interruption",
	Long: `Deliver an audio-session interruption as if another process took or
released the audio output.

Examples:
  trackplayer-bridge interrupt began
  trackplayer-bridge interrupt ended --should-resume`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"began", "ended"},
	RunE: func(cmd *cobra.Command, args []string) error {
		req := ipc.InterruptionRequest{
			Type:         args[0],
			Reason:       interruptReason,
			WasSuspended: interruptWasSuspended,
		}
		if cmd.Flags().Changed("should-resume") {
			req.ShouldResume = &interruptShouldResume
		}
		return withClient(func(c *ipc.Client) error { return c.Interrupt(req) })
	},
}

var remoteCmd = &cobra.Command{
	Use:   "remote <command>",
	Short: "Send a remote command as if it came from the OS",
	Long: `Send a remote command through the media session backend. Commands are
only delivered while the bridge is receiving remote control events.

Commands: play, pause, stop, togglePlayPause, nextTrack, previousTrack,
skipForward, skipBackward, changePlaybackPosition, like, dislike, bookmark.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := ipc.RemoteCommandRequest{Command: args[0]}
		if cmd.Flags().Changed("position") {
			req.Position = &remotePosition
		}
		return withClient(func(c *ipc.Client) error {
			status, err := c.RemoteCommand(req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

func init() {
	interruptCmd.Flags().StringVar(&interruptReason, "reason", "", "default, appWasSuspended or builtInMicMuted")
	interruptCmd.Flags().BoolVar(&interruptWasSuspended, "was-suspended", false, "the interruption began because the app was suspended")
	interruptCmd.Flags().BoolVar(&interruptShouldResume, "should-resume", false, "ended interruption hints that playback may resume")
	remoteCmd.Flags().Float64Var(&remotePosition, "position", 0, "position in seconds for changePlaybackPosition")
	rootCmd.AddCommand(interruptCmd, remoteCmd)
}
