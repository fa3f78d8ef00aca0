package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	b, err := New(Config{Backend: NameHeadless}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, NameHeadless, b.Name())
	assert.Equal(t, Features{
		PlaybackState:          true,
		ChangePlaybackPosition: true,
		InterruptionReason:     true,
		FeedbackCommands:       true,
	}, b.Features())

	_, err = New(Config{Backend: "gramophone"}, zap.NewNop())
	assert.ErrorContains(t, err, "gramophone")
}

func TestGate_Dispatch(t *testing.T) {
	commands := remote.NewCenter()
	calls := 0
	commands.AddTarget(remote.CommandNextTrack, func(remote.Event) remote.Status {
		calls++
		return remote.StatusSuccess
	})
	commands.SetEnabled(remote.CommandNextTrack, true)

	var g gate
	next := remote.Event{Command: remote.CommandNextTrack}
	assert.Equal(t, remote.StatusDeviceNotAvailable, g.Dispatch(next), "no command center")

	g.setCommands(commands)
	assert.Equal(t, remote.StatusDeviceNotAvailable, g.Dispatch(next), "not receiving")
	assert.Zero(t, calls)

	require.NoError(t, g.BeginReceiving())
	assert.True(t, g.Receiving())
	assert.Equal(t, remote.StatusSuccess, g.Dispatch(next))
	assert.Equal(t, remote.StatusDisabled, g.Dispatch(remote.Event{Command: remote.CommandStop}))
	assert.Equal(t, 1, calls)

	require.NoError(t, g.EndReceiving())
	assert.Equal(t, remote.StatusDeviceNotAvailable, g.Dispatch(next))
	assert.Equal(t, 1, calls)
}

func TestHeadless_Snapshot(t *testing.T) {
	h := NewHeadless()
	store := nowplaying.NewStore()
	require.NoError(t, h.Start(store, remote.NewCenter()))

	info, state := h.Snapshot()
	assert.Nil(t, info)
	assert.Equal(t, nowplaying.PlaybackStateUnknown, state)

	store.Update(func(*nowplaying.Info) *nowplaying.Info {
		return &nowplaying.Info{Title: "Song", PlaybackRate: 1}
	})
	store.SetPlaybackState(nowplaying.PlaybackStatePlaying)

	info, state = h.Snapshot()
	require.NotNil(t, info)
	assert.Equal(t, "Song", info.Title)
	assert.Equal(t, nowplaying.PlaybackStatePlaying, state)

	info.Title = "mutated"
	again, _ := h.Snapshot()
	assert.Equal(t, "Song", again.Title)
}

func TestHeadless_ShutdownStopsReceiving(t *testing.T) {
	h := NewHeadless()
	require.NoError(t, h.BeginReceiving())
	h.Shutdown()
	assert.False(t, h.Receiving())
}
