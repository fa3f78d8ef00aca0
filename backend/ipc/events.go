package ipc

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventHub fans outbound events out to stream subscribers. A subscriber
// whose buffer is full misses the event; emitters never block.
type EventHub struct {
	logger  *zap.Logger
	bufSize int

	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	closed bool
}

func NewEventHub(bufSize int, logger *zap.Logger) *EventHub {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &EventHub{
		logger:  logger,
		bufSize: bufSize,
		subs:    make(map[uuid.UUID]chan Event),
	}
}

// Emit marshals body and publishes it under name.
func (h *EventHub) Emit(name string, body any) {
	e := Event{Name: name}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.logger.Error("failed to encode event body", zap.String("event", name), zap.Error(err))
			return
		}
		e.Body = b
	}
	h.Publish(e)
}

func (h *EventHub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("event", e.Name), zap.Stringer("subscriber", id))
		}
	}
}

// Subscribe returns a subscriber ID and its event channel. The channel
// is closed by Unsubscribe or Close.
func (h *EventHub) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, h.bufSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	h.logger.Debug("event subscriber added", zap.Stringer("subscriber", id))
	return id, ch
}

func (h *EventHub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		h.logger.Debug("event subscriber removed", zap.Stringer("subscriber", id))
	}
}

func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
