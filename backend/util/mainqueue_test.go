package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainQueue_RunsInOrder(t *testing.T) {
	q := NewMainQueue()
	defer q.Stop()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Async(func() { got = append(got, i) })
	}
	// Sync is ordered after every Async submitted before it
	require.True(t, q.Sync(func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestMainQueue_SyncFromManyGoroutines(t *testing.T) {
	q := NewMainQueue()
	defer q.Stop()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Sync(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	q.Sync(func() {
		assert.Equal(t, 1000, counter)
	})
}

func TestMainQueue_AsyncAfter(t *testing.T) {
	q := NewMainQueue()
	defer q.Stop()

	fired := make(chan time.Time, 1)
	start := time.Now()
	q.AsyncAfter(20*time.Millisecond, func() { fired <- time.Now() })

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 20*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("AsyncAfter never fired")
	}
}

func TestMainQueue_Stop(t *testing.T) {
	q := NewMainQueue()
	q.Stop()
	q.Stop() // idempotent

	assert.False(t, q.Sync(func() { t.Error("must not run after Stop") }))
	q.Async(func() { t.Error("must not run after Stop") })
}

func TestMainQueue_AsyncFromQueueWithBacklog(t *testing.T) {
	q := NewMainQueue()
	defer q.Stop()

	started, release := make(chan struct{}), make(chan struct{})
	q.Async(func() {
		close(started)
		<-release
	})
	<-started
	for i := 0; i < 500; i++ {
		q.Async(func() {})
	}
	var ran atomic.Bool
	q.Async(func() {
		q.Async(func() { ran.Store(true) })
	})
	assert.Equal(t, 501, q.Len())
	close(release)

	assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
	assert.True(t, q.Sync(func() {}))
	assert.Zero(t, q.Len())
}
