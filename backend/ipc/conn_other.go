//go:build !windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/user"
	"path"
	"runtime"

	"github.com/supersonic-app/trackplayer-bridge/res"
)

// socketPath is initialized based on platform conventions:
//   - macOS: ~/Library/Caches/trackplayer-bridge/trackplayer-bridge.sock
//   - Linux/Unix: $XDG_RUNTIME_DIR/trackplayer-bridge.sock
//
// falling back to /tmp/trackplayer-bridge-{uid}.sock. SetSocketPath overrides it.
var socketPath = "/tmp/" + res.AppName + ".sock"

func init() {
	sockName := res.AppName + ".sock"
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			socketPath = path.Join(home, "Library", "Caches", res.AppName, sockName)
			return
		}
	} else if runtime := os.Getenv("XDG_RUNTIME_DIR"); runtime != "" {
		socketPath = path.Join(runtime, sockName)
		return
	}
	if user, err := user.Current(); err == nil {
		socketPath = fmt.Sprintf("/tmp/%s-%s.sock", res.AppName, user.Uid)
	}
}

// SetSocketPath overrides the socket location. An empty path is ignored.
func SetSocketPath(p string) {
	if p != "" {
		socketPath = p
	}
}

func SocketPath() string {
	return socketPath
}

// Dial establishes a connection to the IPC socket.
func Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", socketPath)
}

// Listen creates the Unix domain socket. A stale socket left by a
// crashed server is removed; a live one is reported as ErrAlreadyRunning.
func Listen() (net.Listener, error) {
	if err := os.MkdirAll(path.Dir(socketPath), 0700); err != nil {
		return nil, err
	}
	if _, err := os.Stat(socketPath); err == nil {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			return nil, ErrAlreadyRunning
		}
		if err := os.Remove(socketPath); err != nil {
			return nil, err
		}
	}
	return net.Listen("unix", socketPath)
}

// DestroyConn removes the Unix socket file from the filesystem.
func DestroyConn() error {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
