//go:build !darwin || !cgo

package platform

import "go.uber.org/zap"

func newMPMedia(cfg Config, logger *zap.Logger) (Backend, error) {
	return nil, ErrUnsupported
}

// RunMainLoop runs fn. Only macOS needs a native run loop on the main thread.
func RunMainLoop(fn func() error) error {
	return fn()
}
