//go:build linux

package session

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	logindPath      = "/org/freedesktop/login1"
	logindInterface = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

// SleepWatcher turns logind suspend/resume signals into interruptions.
// Going to sleep is a suspension (ignored by the bridge); waking up ends
// the interruption with a hint that playback may resume.
type SleepWatcher struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}
}

func WatchSleep(n *Notifier, log *zap.Logger) (*SleepWatcher, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", prepareForSleep, err)
	}

	w := &SleepWatcher{
		conn:    conn,
		signals: make(chan *dbus.Signal, 4),
		done:    make(chan struct{}),
	}
	conn.Signal(w.signals)

	go func() {
		for {
			select {
			case <-w.done:
				return
			case sig, ok := <-w.signals:
				if !ok {
					return
				}
				i, ok := interruptionFromSleepSignal(sig)
				if !ok {
					continue
				}
				log.Debug("system sleep transition", zap.Stringer("type", i.Type))
				n.Post(i)
			}
		}
	}()
	return w, nil
}

func interruptionFromSleepSignal(sig *dbus.Signal) (Interruption, bool) {
	if sig == nil || sig.Name != logindInterface+"."+prepareForSleep || len(sig.Body) != 1 {
		return Interruption{}, false
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return Interruption{}, false
	}
	if sleeping {
		return Interruption{Type: InterruptionBegan, Reason: ReasonAppWasSuspended, WasSuspended: true}, true
	}
	return Interruption{Type: InterruptionEnded, HasOptions: true, ShouldResume: true}, true
}

func (w *SleepWatcher) Close() {
	close(w.done)
	w.conn.RemoveSignal(w.signals)
	_ = w.conn.Close()
}
