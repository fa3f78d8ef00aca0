package platform

import (
	"errors"
	"image"
	"os"
	"strings"
	"testing"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
)

func newOfflineMPRIS(t *testing.T) (*MPRIS, *nowplaying.Store, *remote.Center) {
	m := &MPRIS{
		logger:     zap.NewNop(),
		playerName: "Test",
		artDir:     t.TempDir(),
		connErr:    errors.New("not started"),
	}
	store, commands := nowplaying.NewStore(), remote.NewCenter()
	m.setCommands(commands)
	store.OnChange(m.onStoreChange)
	return m, store, commands
}

func TestMPRIS_MetadataMirrorsStore(t *testing.T) {
	m, store, _ := newOfflineMPRIS(t)

	md, err := m.Metadata()
	require.NoError(t, err)
	assert.Equal(t, noTrackObjectPath, string(md.TrackId))

	store.Update(func(*nowplaying.Info) *nowplaying.Info {
		return &nowplaying.Info{
			Title:        "Song",
			Artist:       "Band",
			Album:        "Record",
			Duration:     2.5,
			PlaybackRate: 1,
			Artwork:      &nowplaying.Artwork{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), Source: "https://x/a.jpg"},
		}
	})
	md, err = m.Metadata()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md.TrackId), dbusTrackIDPrefix))
	assert.Equal(t, "Song", md.Title)
	assert.Equal(t, []string{"Band"}, md.Artist)
	assert.Equal(t, types.Microseconds(2_500_000), md.Length)
	require.True(t, strings.HasPrefix(md.ArtUrl, "file://"))
	_, err = os.Stat(strings.TrimPrefix(md.ArtUrl, "file://"))
	assert.NoError(t, err)

	status, _ := m.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPlaying, status)

	store.SetPlaybackState(nowplaying.PlaybackStatePaused)
	status, _ = m.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPaused, status)

	store.Update(func(*nowplaying.Info) *nowplaying.Info { return nil })
	status, _ = m.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusStopped, status)
	md, _ = m.Metadata()
	assert.Equal(t, noTrackObjectPath, string(md.TrackId))
	assert.Empty(t, md.ArtUrl)
}

func TestMPRIS_CommandsRequireReceiving(t *testing.T) {
	m, store, commands := newOfflineMPRIS(t)
	var got []remote.Event
	commands.AddTarget(remote.CommandPlay, func(e remote.Event) remote.Status {
		got = append(got, e)
		return remote.StatusSuccess
	})
	commands.AddTarget(remote.CommandChangePlaybackPosition, func(e remote.Event) remote.Status {
		got = append(got, e)
		return remote.StatusSuccess
	})
	commands.SetEnabled(remote.CommandPlay, true)
	commands.SetEnabled(remote.CommandChangePlaybackPosition, true)

	assert.Error(t, m.Play())
	can, _ := m.CanPlay()
	assert.False(t, can)

	require.NoError(t, m.BeginReceiving())
	can, _ = m.CanPlay()
	assert.True(t, can)
	require.NoError(t, m.Play())

	store.Update(func(*nowplaying.Info) *nowplaying.Info {
		return &nowplaying.Info{Title: "A", ElapsedTime: 10}
	})
	require.NoError(t, m.Seek(5_000_000))
	require.NoError(t, m.Seek(-30_000_000))

	md, _ := m.Metadata()
	require.NoError(t, m.SetPosition(string(md.TrackId), 3_000_000))
	require.NoError(t, m.SetPosition("/other", 1))

	require.Len(t, got, 4)
	assert.Equal(t, remote.CommandPlay, got[0].Command)
	assert.Equal(t, 15.0, got[1].PositionTime)
	assert.Equal(t, 0.0, got[2].PositionTime)
	assert.Equal(t, 3.0, got[3].PositionTime)

	assert.Error(t, m.Next())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abc", sanitize("abc"))
	assert.Equal(t, "a�b", sanitize("a\xffb"))
	// decomposed e + combining acute becomes the precomposed form
	assert.Equal(t, "caf\u00e9", sanitize("cafe\u0301"))
}

func TestBusName(t *testing.T) {
	assert.Equal(t, "TrackPlayer", busName("Track Player"))
	assert.Equal(t, "TrackPlayer", busName("♪♪"))
	assert.Equal(t, "my_app2", busName("my_app2"))
}
