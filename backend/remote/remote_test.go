package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenter_DefaultsDisabled(t *testing.T) {
	c := NewCenter()
	for _, cmd := range AllCommands {
		assert.False(t, c.IsEnabled(cmd), cmd.String())
		assert.False(t, c.HasTarget(cmd), cmd.String())
	}
}

func TestCenter_DispatchRequiresEnabledAndTarget(t *testing.T) {
	c := NewCenter()
	calls := 0
	c.AddTarget(CommandPlay, func(e Event) Status {
		calls++
		assert.Equal(t, CommandPlay, e.Command)
		return StatusSuccess
	})

	assert.Equal(t, StatusDisabled, c.Dispatch(Event{Command: CommandPlay}))
	assert.Equal(t, 0, calls)

	c.SetEnabled(CommandPlay, true)
	assert.Equal(t, StatusSuccess, c.Dispatch(Event{Command: CommandPlay}))
	assert.Equal(t, 1, calls)

	c.SetEnabled(CommandPause, true)
	assert.Equal(t, StatusDisabled, c.Dispatch(Event{Command: CommandPause}), "no handler")
}

func TestCenter_DispatchFillsPreferredIntervals(t *testing.T) {
	c := NewCenter()
	var got []float64
	c.AddTarget(CommandSkipForward, func(e Event) Status {
		got = e.PreferredIntervals
		return StatusSuccess
	})
	c.SetEnabled(CommandSkipForward, true)
	c.SetPreferredIntervals(CommandSkipForward, []float64{30})

	require.Equal(t, StatusSuccess, c.Dispatch(Event{Command: CommandSkipForward}))
	assert.Equal(t, []float64{30}, got)

	// state is copied out, callers cannot mutate it
	got[0] = 1
	assert.Equal(t, []float64{30}, c.State(CommandSkipForward).PreferredIntervals)
}

func TestCenter_SetFeedback(t *testing.T) {
	c := NewCenter()
	c.SetFeedback(CommandLike, true, "Love")

	s := c.State(CommandLike)
	assert.True(t, s.Enabled)
	assert.True(t, s.Active)
	assert.Equal(t, "Love", s.LocalizedTitle)
	assert.Equal(t, "Love", s.LocalizedShortTitle)

	c.SetFeedback(CommandLike, false, "Like")
	assert.False(t, c.IsEnabled(CommandLike))
}

func TestCenter_OnChange(t *testing.T) {
	c := NewCenter()
	changes := 0
	c.OnChange(func() { changes++ })

	c.SetEnabled(CommandNextTrack, true)
	c.SetPreferredIntervals(CommandSkipBackward, []float64{15})
	c.SetFeedback(CommandBookmark, false, "Bookmark")
	assert.Equal(t, 3, changes)
}

func TestCommand_IsFeedback(t *testing.T) {
	assert.True(t, CommandLike.IsFeedback())
	assert.True(t, CommandDislike.IsFeedback())
	assert.True(t, CommandBookmark.IsFeedback())
	assert.False(t, CommandPlay.IsFeedback())
}

func TestParseCommand(t *testing.T) {
	for _, cmd := range AllCommands {
		got, ok := ParseCommand(cmd.String())
		assert.True(t, ok, cmd.String())
		assert.Equal(t, cmd, got)
	}
	_, ok := ParseCommand("rewind")
	assert.False(t, ok)
}
