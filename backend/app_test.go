package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersonic-app/trackplayer-bridge/backend/logger"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, first, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, DefaultConfig(), cfg)

	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[Logging]\nLevel = \"debug\"\n"), 0644))
	cfg, first, err = LoadConfig(good)
	require.NoError(t, err)
	assert.False(t, first)
	assert.Equal(t, logger.DebugLevel, cfg.Logging.Level)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[Logging\nLevel = "), 0644))
	cfg, first, err = LoadConfig(bad)
	assert.Error(t, err)
	assert.False(t, first)
	assert.Equal(t, DefaultConfig(), cfg)
	backup, readErr := os.ReadFile(bad + ".bak")
	require.NoError(t, readErr)
	assert.Equal(t, "[Logging\nLevel = ", string(backup))
}

func TestStartupOptions_Apply(t *testing.T) {
	cfg := DefaultConfig()
	StartupOptions{}.apply(cfg)
	assert.Equal(t, DefaultConfig(), cfg)

	StartupOptions{Backend: PlatformHeadless, SocketPath: "/tmp/x.sock", LogLevel: "warn"}.apply(cfg)
	assert.Equal(t, PlatformHeadless, cfg.Platform.Backend)
	assert.Equal(t, "/tmp/x.sock", cfg.IPC.SocketPath)
	assert.Equal(t, logger.WarnLevel, cfg.Logging.Level)
}

func TestBridgeHandler(t *testing.T) {
	f := newBridgeFixture(t, allFeatures())
	h := bridgeHandler{f.b}

	err := h.UpdateOptions(map[string]any{"capabilities": "play"})
	var be *BridgeError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, CodeInvalidPayload, be.ErrorCode())
	assert.Equal(t, ErrorDomain, be.ErrorDomain())

	require.NoError(t, h.UpdateOptions(map[string]any{"capabilities": []any{"next"}}))
	assert.True(t, f.commands.IsEnabled(remote.CommandNextTrack))

	track, err := h.CurrentTrack()
	require.NoError(t, err)
	assert.Nil(t, track)

	require.NoError(t, h.SetNowPlaying(map[string]any{"id": "1", "title": "Song"}))
	track, err = h.CurrentTrack()
	require.NoError(t, err)
	assert.Equal(t, "Song", track["title"])

	require.NoError(t, h.UpdatePlayback(map[string]any{"state": "paused"}))
	f.flush()
	assert.Equal(t, nowplaying.PlaybackStatePaused, f.store.PlaybackState())

	require.NoError(t, h.Reset())
	f.flush()
	assert.Nil(t, f.store.Info())

	assert.Equal(t, Constants(), h.Constants())
	assert.Len(t, h.SupportedEvents(), 17)
}
