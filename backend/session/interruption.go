// Package session models audio-session interruptions: notifications that
// another process took or released the audio output.
package session

import (
	"sync"
)

type InterruptionType int

const (
	InterruptionBegan InterruptionType = iota
	InterruptionEnded
)

func (t InterruptionType) String() string {
	if t == InterruptionEnded {
		return "ended"
	}
	return "began"
}

type InterruptionReason int

const (
	ReasonDefault InterruptionReason = iota
	ReasonAppWasSuspended
	ReasonBuiltInMicMuted
)

type Interruption struct {
	Type   InterruptionType
	Reason InterruptionReason

	// WasSuspended marks a began notification delivered only because
	// the process was suspended, not because audio was taken.
	WasSuspended bool

	// HasOptions is false when an ended notification carries no options;
	// ShouldResume is only meaningful when it is true.
	HasOptions   bool
	ShouldResume bool
}

// Source delivers interruptions to subscribers.
type Source interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(Interruption)) (cancel func())
}

// Notifier is an in-process Source. Interruptions are posted by platform
// watchers or injected by the host.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Interruption)
}

var _ Source = (*Notifier)(nil)

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Interruption))}
}

func (n *Notifier) Subscribe(fn func(Interruption)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Post delivers i synchronously to every subscriber.
func (n *Notifier) Post(i Interruption) {
	n.mu.RLock()
	subs := make([]func(Interruption), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(i)
	}
}
