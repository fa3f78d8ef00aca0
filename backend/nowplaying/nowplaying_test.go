package nowplaying

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateReadModifyWrite(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Info())

	s.Update(func(cur *Info) *Info {
		assert.Nil(t, cur)
		i := DefaultInfo()
		i.Title = "A"
		return i
	})
	s.Update(func(cur *Info) *Info {
		require.NotNil(t, cur)
		cur.Artist = "B"
		return cur
	})

	info := s.Info()
	require.NotNil(t, info)
	assert.Equal(t, "A", info.Title)
	assert.Equal(t, "B", info.Artist)

	s.Update(func(*Info) *Info { return nil })
	assert.Nil(t, s.Info())
}

func TestStore_InfoIsACopy(t *testing.T) {
	s := NewStore()
	s.Update(func(*Info) *Info { return &Info{Title: "A"} })

	info := s.Info()
	info.Title = "mutated"
	assert.Equal(t, "A", s.Info().Title)
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore()
	var infos []*Info
	var states []PlaybackState
	s.OnChange(func(i *Info, st PlaybackState) {
		infos = append(infos, i)
		states = append(states, st)
	})

	art := &Artwork{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Source: "x"}
	s.Update(func(*Info) *Info { return &Info{Title: "A", Artwork: art} })
	s.SetPlaybackState(PlaybackStatePlaying)
	s.SetPlaybackState(PlaybackStatePlaying) // no change, no callback
	s.Update(func(*Info) *Info { return nil })

	require.Len(t, infos, 3)
	assert.Equal(t, "A", infos[0].Title)
	assert.Same(t, art, infos[0].Artwork)
	assert.Equal(t, PlaybackStateUnknown, states[0])
	assert.Equal(t, PlaybackStatePlaying, states[1])
	assert.Nil(t, infos[2])
}

func TestPlaybackState_String(t *testing.T) {
	assert.Equal(t, "playing", PlaybackStatePlaying.String())
	assert.Equal(t, "paused", PlaybackStatePaused.String())
	assert.Equal(t, "stopped", PlaybackStateStopped.String())
	assert.Equal(t, "interrupted", PlaybackStateInterrupted.String())
	assert.Equal(t, "unknown", PlaybackStateUnknown.String())
}
