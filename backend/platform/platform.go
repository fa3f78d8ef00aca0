// Package platform mirrors the now-playing record and remote command state
// onto the operating system's media session surface.
package platform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
)

const (
	NameAuto     = "auto"
	NameHeadless = "headless"
	NameMPRIS    = "mpris"
	NameMPMedia  = "mpmedia"
	NameSMTC     = "smtc"
)

var ErrUnsupported = errors.New("platform backend is not supported on this OS")

// Features reports which optional OS facilities a backend provides.
// It is probed once when the backend is created.
type Features struct {
	// The OS has a now-playing playback state field separate from the rate.
	PlaybackState bool
	// The OS can request a seek to an absolute position.
	ChangePlaybackPosition bool
	// Interruptions carry a reason.
	InterruptionReason bool
	// The OS shows like/dislike/bookmark commands.
	FeedbackCommands bool
}

type Config struct {
	Backend     string
	DisplayName string
	ArtCacheDir string
}

// Backend is one OS media session surface.
type Backend interface {
	remote.Receiver

	Name() string
	Features() Features
	Start(store *nowplaying.Store, commands *remote.Center) error
	// Dispatch delivers a command as if it came from the OS.
	Dispatch(e remote.Event) remote.Status
	Shutdown()
}

// New creates the backend named by cfg.Backend. "auto" selects the
// native backend of the running OS.
func New(cfg Config, logger *zap.Logger) (Backend, error) {
	name := cfg.Backend
	if name == "" || name == NameAuto {
		name = defaultBackend
	}
	switch name {
	case NameHeadless:
		return NewHeadless(), nil
	case NameMPRIS:
		return newMPRIS(cfg, logger.Named(NameMPRIS))
	case NameMPMedia:
		return newMPMedia(cfg, logger.Named(NameMPMedia))
	case NameSMTC:
		return newSMTC(cfg, logger.Named(NameSMTC))
	}
	return nil, fmt.Errorf("unknown platform backend %q", name)
}

// gate tracks whether remote control events are being received and
// routes OS commands to the command center only while they are.
type gate struct {
	mu        sync.RWMutex
	receiving bool
	commands  *remote.Center
}

func (g *gate) setCommands(c *remote.Center) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = c
}

func (g *gate) BeginReceiving() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receiving = true
	return nil
}

func (g *gate) EndReceiving() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receiving = false
	return nil
}

func (g *gate) Receiving() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.receiving
}

func (g *gate) Dispatch(e remote.Event) remote.Status {
	g.mu.RLock()
	receiving, commands := g.receiving, g.commands
	g.mu.RUnlock()
	if !receiving || commands == nil {
		return remote.StatusDeviceNotAvailable
	}
	return commands.Dispatch(e)
}
