package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/supersonic-app/trackplayer-bridge/backend"
	"github.com/supersonic-app/trackplayer-bridge/backend/platform"
	"github.com/supersonic-app/trackplayer-bridge/res"
)

var (
	serveBackend  string
	serveLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge",
	Long: `Start the bridge and serve the IPC socket until interrupted.

The media session backend is one of auto, headless, mpris, mpmedia or smtc.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVarP(&serveBackend, "backend", "b", "", "media session backend (default from config)")
		c.Flags().StringVar(&serveLogLevel, "log-level", "", "debug, info, warn or error (default from config)")
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := backend.StartupApp(res.AppName, backend.StartupOptions{
		ConfigPath: cfgFile,
		Backend:    serveBackend,
		SocketPath: socketPath,
		LogLevel:   serveLogLevel,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return platform.RunMainLoop(func() error {
		return serve(ctx, app)
	})
}

func serve(ctx context.Context, app *backend.App) error {
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve() }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	app.Shutdown()
	return err
}
