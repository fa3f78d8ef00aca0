package backend

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supersonic-app/trackplayer-bridge/backend/logger"
	"go.uber.org/zap"
)

func TestWatchConfig_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, DefaultConfig().WriteConfigFile(path))

	var mu sync.Mutex
	var levels []logger.LogLevel
	w, err := WatchConfig(context.Background(), path, zap.NewNop(), func(c *Config) {
		mu.Lock()
		defer mu.Unlock()
		levels = append(levels, c.Logging.Level)
	})
	require.NoError(t, err)
	defer w.Close()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644))

	c := DefaultConfig()
	c.Logging.Level = logger.DebugLevel
	require.NoError(t, c.WriteConfigFile(path))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == logger.DebugLevel
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatchConfig_StopsOnContextDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	ctx, cancel := context.WithCancel(context.Background())
	w, err := WatchConfig(ctx, path, zap.NewNop(), func(*Config) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Close())
}
