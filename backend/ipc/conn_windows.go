//go:build windows

package ipc

import (
	"context"
	"net"
	"os/user"
	"regexp"

	"github.com/Microsoft/go-winio"
	"github.com/supersonic-app/trackplayer-bridge/res"
)

var pipeName = `\\.\pipe\` + res.AppName

func init() {
	if user, err := user.Current(); err == nil {
		pipeName += regexp.MustCompile(`[^a-zA-Z0-9]+`).ReplaceAllString(user.Name, "")
	}
}

// SetSocketPath overrides the pipe name. An empty name is ignored.
func SetSocketPath(p string) {
	if p != "" {
		pipeName = p
	}
}

func SocketPath() string {
	return pipeName
}

func Dial(ctx context.Context) (net.Conn, error) {
	return winio.DialPipeContext(ctx, pipeName)
}

func Listen() (net.Listener, error) {
	l, err := winio.ListenPipe(pipeName, nil)
	if err != nil {
		if conn, derr := winio.DialPipe(pipeName, nil); derr == nil {
			conn.Close()
			return nil, ErrAlreadyRunning
		}
	}
	return l, err
}

func DestroyConn() error {
	// Windows named pipes automatically clean up
	return nil
}
