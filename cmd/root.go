package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/supersonic-app/trackplayer-bridge/backend"
	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
	"github.com/supersonic-app/trackplayer-bridge/res"
)

var (
	cfgFile    string
	socketPath string
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   res.AppName,
	Short: "Mirror a media player's state onto the OS media session",
	Long: res.DisplayName + ` bridge publishes now-playing metadata and artwork to the
operating system's media session and forwards lock-screen, headset and
media-key commands back to the player over a local socket.

Run without a subcommand to start the bridge.`,
	Version:      res.AppVersion,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: per-user config dir)")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "IPC socket path or pipe name")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens a client to the running bridge, locating its socket from
// the --socket flag or the config file.
func connect() (*ipc.Client, error) {
	path := socketPath
	if path == "" {
		cfgPath, _ := backend.ConfigPaths(res.AppName, cfgFile)
		cfg, _, err := backend.LoadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = cfg.IPC.SocketPath
	}
	ipc.SetSocketPath(path)
	client, err := ipc.Connect()
	if err != nil {
		return nil, fmt.Errorf("bridge is not running at %s: %w", ipc.SocketPath(), err)
	}
	return client, nil
}
