package platform

import (
	"sync"

	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
)

// Headless is a backend with no OS surface. It keeps the last mirrored
// state for inspection and accepts injected commands.
type Headless struct {
	gate

	mu    sync.Mutex
	info  *nowplaying.Info
	state nowplaying.PlaybackState
}

var _ Backend = (*Headless)(nil)

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Name() string { return NameHeadless }

func (h *Headless) Features() Features {
	return Features{
		PlaybackState:          true,
		ChangePlaybackPosition: true,
		InterruptionReason:     true,
		FeedbackCommands:       true,
	}
}

func (h *Headless) Start(store *nowplaying.Store, commands *remote.Center) error {
	h.setCommands(commands)
	store.OnChange(func(info *nowplaying.Info, state nowplaying.PlaybackState) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.info = info
		h.state = state
	})
	return nil
}

// Snapshot returns the last mirrored record and playback state.
func (h *Headless) Snapshot() (*nowplaying.Info, nowplaying.PlaybackState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info.Clone(), h.state
}

func (h *Headless) Shutdown() {
	_ = h.EndReceiving()
}
