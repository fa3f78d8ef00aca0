package util

import (
	"sync"
	"time"
)

// MainQueue is a serial executor. Every function submitted to it runs
// on a single goroutine, in submission order, which makes it the one
// logical actor allowed to touch now-playing and command state.
//
// Async never blocks, so it is safe to call from a function already
// running on the queue. Sync must never be called from one.
type MainQueue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}

	stopOnce sync.Once
}

func NewMainQueue() *MainQueue {
	q := &MainQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *MainQueue) run() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}
		for f := q.next(); f != nil; f = q.next() {
			if q.stopped() {
				return
			}
			f()
		}
	}
}

func (q *MainQueue) next() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	f := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return f
}

func (q *MainQueue) push(f func()) {
	q.mu.Lock()
	q.pending = append(q.pending, f)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Async schedules f to run on the queue and returns immediately.
// Functions submitted after Stop are dropped.
func (q *MainQueue) Async(f func()) {
	if q.stopped() {
		return
	}
	q.push(f)
}

// AsyncAfter schedules f to run on the queue once d has elapsed.
func (q *MainQueue) AsyncAfter(d time.Duration, f func()) {
	time.AfterFunc(d, func() { q.Async(f) })
}

// Sync runs f on the queue and waits for it to return.
// Returns false if the queue was stopped before f could run.
func (q *MainQueue) Sync(f func()) bool {
	if q.stopped() {
		return false
	}
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		f()
	}
	q.push(wrapped)
	select {
	case <-q.done:
		// the function may still have been picked up before shutdown
		select {
		case <-ran:
			return true
		default:
			return false
		}
	case <-ran:
		return true
	}
}

// Stop terminates the queue goroutine. Pending functions are discarded.
func (q *MainQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.pending = nil
		q.mu.Unlock()
	})
}

// Len reports how many functions are waiting to run.
func (q *MainQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *MainQueue) stopped() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
