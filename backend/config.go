package backend

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/supersonic-app/trackplayer-bridge/backend/logger"
)

// Platform backend names.
const (
	PlatformAuto     = "auto"
	PlatformHeadless = "headless"
	PlatformMPRIS    = "mpris"
	PlatformMPMedia  = "mpmedia"
	PlatformSMTC     = "smtc"
)

type BridgeConfig struct {
	// Preferred skip interval in seconds when the host gives none.
	DefaultJumpInterval float64
	// Delay before remote control events are received after the first track is set.
	RemoteEventsDelayMS int
	LikeTitle           string
	DislikeTitle        string
	BookmarkTitle       string
}

func (b BridgeConfig) RemoteEventsDelay() time.Duration {
	return time.Duration(b.RemoteEventsDelayMS) * time.Millisecond
}

type ArtworkConfig struct {
	RequestTimeoutSeconds int
	// Retries after the first attempt. 0 is a single best-effort fetch.
	RetryMax        int
	MaxSizeMB       int
	ThumbnailSize   int
	CacheMinSize    int
	CacheMaxSize    int
	CacheTTLSeconds int
}

type IPCConfig struct {
	// Empty selects the per-user default.
	SocketPath      string
	MaxConnections  int
	EventBufferSize int
}

type PlatformConfig struct {
	Backend     string
	DisplayName string
	// Empty selects <cache dir>/artwork.
	ArtCacheDir string
	WatchSleep  bool
}

type Config struct {
	Bridge   BridgeConfig
	Artwork  ArtworkConfig
	IPC      IPCConfig
	Platform PlatformConfig
	Logging  logger.Config
}

func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			DefaultJumpInterval: 15,
			RemoteEventsDelayMS: 500,
			LikeTitle:           "Like",
			DislikeTitle:        "Dislike",
			BookmarkTitle:       "Bookmark",
		},
		Artwork: ArtworkConfig{
			RequestTimeoutSeconds: 15,
			RetryMax:              0,
			MaxSizeMB:             10,
			ThumbnailSize:         512,
			CacheMinSize:          4,
			CacheMaxSize:          32,
			CacheTTLSeconds:       300,
		},
		IPC: IPCConfig{
			MaxConnections:  32,
			EventBufferSize: 64,
		},
		Platform: PlatformConfig{
			Backend:     PlatformAuto,
			DisplayName: "TrackPlayer",
			WatchSleep:  true,
		},
		Logging: logger.Config{
			Level:      logger.InfoLevel,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func ReadConfigFile(filepath string) (*Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig()
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, err
	}
	c.sanitize()
	return c, nil
}

// sanitize clamps numeric settings into their usable ranges.
func (c *Config) sanitize() {
	if c.Bridge.DefaultJumpInterval <= 0 {
		c.Bridge.DefaultJumpInterval = 15
	}
	c.Bridge.RemoteEventsDelayMS = clamp(c.Bridge.RemoteEventsDelayMS, 0, 10_000)
	c.Artwork.RequestTimeoutSeconds = clamp(c.Artwork.RequestTimeoutSeconds, 1, 120)
	c.Artwork.RetryMax = clamp(c.Artwork.RetryMax, 0, 5)
	c.Artwork.MaxSizeMB = clamp(c.Artwork.MaxSizeMB, 1, 100)
	c.Artwork.ThumbnailSize = clamp(c.Artwork.ThumbnailSize, 32, 4096)
	c.Artwork.CacheMaxSize = clamp(c.Artwork.CacheMaxSize, 1, 1000)
	c.Artwork.CacheMinSize = clamp(c.Artwork.CacheMinSize, 0, c.Artwork.CacheMaxSize)
	c.IPC.MaxConnections = clamp(c.IPC.MaxConnections, 1, 1024)
	c.IPC.EventBufferSize = clamp(c.IPC.EventBufferSize, 1, 4096)
	switch c.Platform.Backend {
	case PlatformAuto, PlatformHeadless, PlatformMPRIS, PlatformMPMedia, PlatformSMTC:
	default:
		c.Platform.Backend = PlatformAuto
	}
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(filepath string) error {
	if !writeLock.TryLock() {
		return nil // another write in progress
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath, b, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func clamp(i, min, max int) int {
	if i < min {
		i = min
	} else if i > max {
		i = max
	}
	return i
}
