package ipc

import (
	"errors"
	"net"

	"golang.org/x/net/netutil"
)

var ErrAlreadyRunning = errors.New("another bridge is already listening")

// NewListener opens the IPC endpoint, accepting at most maxConns
// concurrent connections. Open event streams count against the limit.
func NewListener(maxConns int) (net.Listener, error) {
	l, err := Listen()
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		l = netutil.LimitListener(l, maxConns)
	}
	return l, nil
}
