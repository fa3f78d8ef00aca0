//go:build !linux

package session

import (
	"errors"

	"go.uber.org/zap"
)

type SleepWatcher struct{}

func WatchSleep(n *Notifier, log *zap.Logger) (*SleepWatcher, error) {
	return nil, errors.New("sleep watching is only supported on Linux")
}

func (w *SleepWatcher) Close() {}
