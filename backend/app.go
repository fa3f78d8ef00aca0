package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/20after4/configdir"
	"github.com/supersonic-app/trackplayer-bridge/backend/ipc"
	"github.com/supersonic-app/trackplayer-bridge/backend/logger"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/platform"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"github.com/supersonic-app/trackplayer-bridge/backend/session"
	"github.com/supersonic-app/trackplayer-bridge/backend/util"
	"go.uber.org/zap"
)

const (
	configFile  = "config.toml"
	portableDir = "trackplayer-bridge_portable"
	artCacheDir = "artwork"

	shutdownTimeout = 5 * time.Second
)

var ErrAnotherInstance = errors.New("another instance is running")

// StartupOptions override settings from the config file.
type StartupOptions struct {
	ConfigPath string
	Backend    string
	SocketPath string
	LogLevel   string
}

// App owns every long-lived component of a running bridge.
type App struct {
	Config   *Config
	Logger   *zap.Logger
	Bridge   *Bridge
	Platform platform.Backend
	Events   *ipc.EventHub

	configPath string

	logLevel      zap.AtomicLevel
	bgrndCtx      context.Context
	cancel        context.CancelFunc
	queue         *util.MainQueue
	store         *nowplaying.Store
	commands      *remote.Center
	interruptions *session.Notifier
	artwork       *ArtworkResolver
	sleepWatcher  *session.SleepWatcher
	cfgWatcher    *ConfigWatcher
	server        *http.Server
	listener      net.Listener
}

// ConfigPaths returns the config file and cache directory for appName.
// A non-empty override replaces the config file location.
func ConfigPaths(appName, override string) (cfgPath, cacheDir string) {
	var confDir string
	if p := checkPortablePath(); p != "" {
		confDir = path.Join(p, "config")
		cacheDir = path.Join(p, "cache")
	} else {
		confDir = configdir.LocalConfig(appName)
		cacheDir = configdir.LocalCache(appName)
	}
	cfgPath = path.Join(confDir, configFile)
	if override != "" {
		cfgPath = override
	}
	return cfgPath, cacheDir
}

// LoadConfig reads the config file at cfgPath. A missing file yields the
// defaults; a malformed one is backed up and the defaults are used.
func LoadConfig(cfgPath string) (cfg *Config, firstLaunch bool, err error) {
	if _, statErr := os.Stat(cfgPath); statErr != nil {
		return DefaultConfig(), true, nil
	}
	cfg, err = ReadConfigFile(cfgPath)
	if err != nil {
		backup := cfgPath + ".bak"
		if cpErr := util.CopyFile(cfgPath, backup); cpErr != nil {
			return DefaultConfig(), false, fmt.Errorf("config file malformed (%v) and could not be backed up: %w", err, cpErr)
		}
		return DefaultConfig(), false, fmt.Errorf("config file malformed, copied to %s: %w", backup, err)
	}
	return cfg, false, nil
}

func StartupApp(appName string, opts StartupOptions) (*App, error) {
	cfgPath, cacheDir := ConfigPaths(appName, opts.ConfigPath)
	configdir.MakePath(filepath.Dir(cfgPath))
	configdir.MakePath(cacheDir)

	cfg, firstLaunch, cfgErr := LoadConfig(cfgPath)
	opts.apply(cfg)
	if cfg.Platform.ArtCacheDir == "" {
		cfg.Platform.ArtCacheDir = path.Join(cacheDir, artCacheDir)
	}

	log, level, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log = log.Named(appName)
	if cfgErr != nil {
		log.Warn("using default config", zap.Error(cfgErr))
	}
	if firstLaunch {
		if err := cfg.WriteConfigFile(cfgPath); err != nil {
			log.Warn("failed to write default config", zap.Error(err))
		}
	}

	ipc.SetSocketPath(cfg.IPC.SocketPath)
	if _, err := ipc.Connect(); err == nil {
		return nil, ErrAnotherInstance
	}

	log.Info("starting",
		zap.String("config", cfgPath),
		zap.String("cache", cacheDir),
		zap.String("socket", ipc.SocketPath()))

	a := &App{
		Config:        cfg,
		Logger:        log,
		configPath:    cfgPath,
		logLevel:      level,
		queue:         util.NewMainQueue(),
		store:         nowplaying.NewStore(),
		commands:      remote.NewCenter(),
		interruptions: session.NewNotifier(),
	}
	a.bgrndCtx, a.cancel = context.WithCancel(context.Background())

	if err := a.startPlatform(); err != nil {
		a.cancel()
		a.queue.Stop()
		return nil, err
	}
	if cfg.Platform.WatchSleep {
		if w, err := session.WatchSleep(a.interruptions, log.Named("sleep")); err == nil {
			a.sleepWatcher = w
		} else {
			log.Debug("not watching for system sleep", zap.Error(err))
		}
	}

	a.artwork = NewArtworkResolver(a.bgrndCtx, cfg.Artwork, log.Named("artwork"))
	a.Events = ipc.NewEventHub(cfg.IPC.EventBufferSize, log.Named("events"))
	a.Bridge = NewBridge(BridgeDeps{
		NowPlaying:    a.store,
		Commands:      a.commands,
		Interruptions: a.interruptions,
		Receiver:      a.Platform,
		Events:        a.Events,
		Artwork:       a.artwork,
		Features:      a.Platform.Features(),
		Queue:         a.queue,
		Logger:        log.Named("bridge"),
		Config:        cfg.Bridge,
	})

	if w, err := WatchConfig(a.bgrndCtx, cfgPath, log.Named("config"), a.onConfigChange); err == nil {
		a.cfgWatcher = w
	} else {
		log.Warn("not watching config file", zap.Error(err))
	}

	listener, err := ipc.NewListener(cfg.IPC.MaxConnections)
	if err != nil {
		a.Shutdown()
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return nil, ErrAnotherInstance
		}
		return nil, fmt.Errorf("failed to open IPC socket: %w", err)
	}
	a.listener = listener
	a.server = ipc.NewServer(bridgeHandler{a.Bridge}, a.interruptions, a.Platform, a.Events, log.Named("ipc"))
	return a, nil
}

func (o StartupOptions) apply(cfg *Config) {
	if o.Backend != "" {
		cfg.Platform.Backend = o.Backend
	}
	if o.SocketPath != "" {
		cfg.IPC.SocketPath = o.SocketPath
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = logger.LogLevel(o.LogLevel)
	}
}

// startPlatform creates the configured OS backend. When the backend is
// chosen automatically and the native one is unavailable, the headless
// backend is used instead.
func (a *App) startPlatform() error {
	pcfg := platform.Config{
		Backend:     a.Config.Platform.Backend,
		DisplayName: a.Config.Platform.DisplayName,
		ArtCacheDir: a.Config.Platform.ArtCacheDir,
	}
	b, err := platform.New(pcfg, a.Logger.Named("platform"))
	if err != nil {
		if pcfg.Backend != PlatformAuto {
			return fmt.Errorf("failed to start %s backend: %w", pcfg.Backend, err)
		}
		a.Logger.Warn("native media session unavailable, running headless", zap.Error(err))
		b = platform.NewHeadless()
	}
	if err := b.Start(a.store, a.commands); err != nil {
		return fmt.Errorf("failed to start %s backend: %w", b.Name(), err)
	}
	a.Logger.Info("media session backend started", zap.String("backend", b.Name()))
	a.Platform = b
	return nil
}

// onConfigChange applies the settings that can change while running.
func (a *App) onConfigChange(cfg *Config) {
	if level := logger.ParseLevel(cfg.Logging.Level); level != a.logLevel.Level() {
		a.Logger.Info("changing log level", zap.Stringer("level", level))
		a.logLevel.SetLevel(level)
	}
}

// Serve answers IPC requests until Shutdown is called.
func (a *App) Serve() error {
	if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) ConfigPath() string {
	return a.configPath
}

func (a *App) Shutdown() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Shutdown(ctx); err != nil {
			a.Logger.Warn("IPC server did not shut down cleanly", zap.Error(err))
		}
		cancel()
		if err := ipc.DestroyConn(); err != nil {
			a.Logger.Warn("failed to remove IPC socket", zap.Error(err))
		}
	} else if a.listener != nil {
		a.listener.Close()
		_ = ipc.DestroyConn()
	}
	if a.Events != nil {
		a.Events.Close()
	}
	if a.Bridge != nil {
		a.Bridge.Close()
	}
	if a.cfgWatcher != nil {
		a.cfgWatcher.Close()
	}
	if a.sleepWatcher != nil {
		a.sleepWatcher.Close()
	}
	if a.Platform != nil {
		a.Platform.Shutdown()
	}
	a.cancel()
	a.queue.Stop()
	a.Logger.Info("shut down")
	_ = a.Logger.Sync()
}

func checkPortablePath() string {
	if p, err := os.Executable(); err == nil {
		pdirPath := path.Join(filepath.Dir(p), portableDir)
		if s, err := os.Stat(pdirPath); err == nil && s.IsDir() {
			return pdirPath
		}
	}
	return ""
}

// bridgeHandler exposes the Bridge to the IPC server, decoding the
// raw option payload at the boundary.
type bridgeHandler struct {
	b *Bridge
}

var _ ipc.PlayerHandler = bridgeHandler{}

func (h bridgeHandler) Reset() error {
	return h.b.Reset()
}

func (h bridgeHandler) UpdateOptions(raw map[string]any) error {
	opts, err := DecodeOptions(raw)
	if err != nil {
		return AsBridgeError(err)
	}
	return h.b.UpdateOptions(opts)
}

func (h bridgeHandler) SetNowPlaying(raw map[string]any) error {
	return h.b.SetNowPlaying(raw)
}

func (h bridgeHandler) UpdatePlayback(raw map[string]any) error {
	return h.b.UpdatePlayback(raw)
}

func (h bridgeHandler) CurrentTrack() (map[string]any, error) {
	return h.b.CurrentTrack(), nil
}

func (h bridgeHandler) Constants() map[string]string {
	return Constants()
}

func (h bridgeHandler) SupportedEvents() []string {
	return SupportedEvents()
}
