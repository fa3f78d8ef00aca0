//go:build !windows

package platform

import "go.uber.org/zap"

func newSMTC(cfg Config, logger *zap.Logger) (Backend, error) {
	return nil, ErrUnsupported
}
