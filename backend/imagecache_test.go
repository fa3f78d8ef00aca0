package backend

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func newTestCache(min, max int, ttl time.Duration) (*ImageCache, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := &ImageCache{MinSize: min, MaxSize: max, DefaultTTL: ttl, now: clk.Now}
	c.Init(context.Background(), 0)
	return c, clk
}

func TestImageCache_SetGet(t *testing.T) {
	c, _ := newTestCache(1, 4, time.Minute)
	img := newTestImage(2, 2)
	c.Set("a", img)
	assert.True(t, c.Has("a"))
	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Same(t, img, got)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestImageCache_EvictsLRUWhenFull(t *testing.T) {
	c, clk := newTestCache(0, 2, time.Hour)
	c.Set("a", newTestImage(1, 1))
	clk.Advance(time.Second)
	c.Set("b", newTestImage(1, 1))
	clk.Advance(time.Second)
	_, _ = c.Get("a")
	clk.Advance(time.Second)
	c.Set("c", newTestImage(1, 1))

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestImageCache_EvictsExpiredFirst(t *testing.T) {
	c, clk := newTestCache(0, 2, time.Hour)
	c.SetWithTTL("short", newTestImage(1, 1), time.Second)
	clk.Advance(time.Millisecond)
	c.Set("long", newTestImage(1, 1))
	_, _ = c.Get("short")
	clk.Advance(2 * time.Second)
	c.Set("new", newTestImage(1, 1))

	assert.False(t, c.Has("short"))
	assert.True(t, c.Has("long"))
}

func TestImageCache_EvictExpiredKeepsMinSize(t *testing.T) {
	c, clk := newTestCache(1, 10, time.Second)
	c.Set("a", newTestImage(1, 1))
	clk.Advance(time.Millisecond)
	c.Set("b", newTestImage(1, 1))
	clk.Advance(time.Millisecond)
	c.Set("c", newTestImage(1, 1))
	clk.Advance(time.Minute)

	c.EvictExpired()
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("c"))
}
