//go:build darwin && cgo

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Foundation -framework AppKit -framework MediaPlayer
#include <stdlib.h>
#include "mpmediabridge.h"
*/
import "C"

import (
	"bytes"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/boxes-ltd/imaging"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
)

var mpCommands = map[remote.Command]C.int{
	remote.CommandPlay:                   C.int(C.MP_PLAY),
	remote.CommandPause:                  C.int(C.MP_PAUSE),
	remote.CommandStop:                   C.int(C.MP_STOP),
	remote.CommandTogglePlayPause:        C.int(C.MP_TOGGLE),
	remote.CommandNextTrack:              C.int(C.MP_NEXT),
	remote.CommandPreviousTrack:          C.int(C.MP_PREVIOUS),
	remote.CommandSkipForward:            C.int(C.MP_SKIP_FORWARD),
	remote.CommandSkipBackward:           C.int(C.MP_SKIP_BACKWARD),
	remote.CommandChangePlaybackPosition: C.int(C.MP_CHANGE_POSITION),
	remote.CommandLike:                   C.int(C.MP_LIKE),
	remote.CommandDislike:                C.int(C.MP_DISLIKE),
	remote.CommandBookmark:               C.int(C.MP_BOOKMARK),
}

// MPRemoteCommandHandlerStatus values
const (
	mpStatusSuccess                    = 0
	mpStatusNoSuchContent              = 100
	mpStatusNoActionableNowPlayingItem = 110
	mpStatusDeviceNotFound             = 120
	mpStatusCommandFailed              = 200
)

// recipient of Objective-C command callbacks. Global so that no Go
// pointer is handed to C.
var mpMediaRecipient atomic.Pointer[MPMedia]

//export mpmediaRemoteCommand
func mpmediaRemoteCommand(command C.int, value C.double, hasValue C.int) C.int {
	m := mpMediaRecipient.Load()
	if m == nil {
		return mpStatusNoActionableNowPlayingItem
	}
	e := remote.Event{Command: -1}
	for cmd, c := range mpCommands {
		if c == command {
			e.Command = cmd
		}
	}
	if e.Command < 0 {
		return mpStatusCommandFailed
	}
	switch e.Command {
	case remote.CommandChangePlaybackPosition:
		e.PositionTime, e.HasPosition = float64(value), hasValue != 0
	case remote.CommandSkipForward, remote.CommandSkipBackward:
		if hasValue != 0 {
			e.PreferredIntervals = []float64{float64(value)}
		}
	}
	return C.int(mpStatus(m.Dispatch(e)))
}

func mpStatus(s remote.Status) int {
	switch s {
	case remote.StatusSuccess:
		return mpStatusSuccess
	case remote.StatusNoSuchContent:
		return mpStatusNoSuchContent
	case remote.StatusNoActionableNowPlayingItem:
		return mpStatusNoActionableNowPlayingItem
	case remote.StatusDeviceNotAvailable:
		return mpStatusDeviceNotFound
	}
	return mpStatusCommandFailed
}

// MPMedia drives MPNowPlayingInfoCenter and MPRemoteCommandCenter.
type MPMedia struct {
	gate

	logger *zap.Logger

	mu      sync.Mutex
	artwork *nowplaying.Artwork
	state   nowplaying.PlaybackState
}

var _ Backend = (*MPMedia)(nil)

func newMPMedia(cfg Config, logger *zap.Logger) (Backend, error) {
	return &MPMedia{logger: logger}, nil
}

func (m *MPMedia) Name() string { return NameMPMedia }

func (m *MPMedia) Features() Features {
	return Features{
		PlaybackState:          true,
		ChangePlaybackPosition: true,
		FeedbackCommands:       true,
	}
}

func (m *MPMedia) Start(store *nowplaying.Store, commands *remote.Center) error {
	m.setCommands(commands)
	mpMediaRecipient.Store(m)
	C.mp_register_commands()

	commands.OnChange(func() { m.syncCommands(commands) })
	m.syncCommands(commands)
	store.OnChange(m.onStoreChange)
	return nil
}

func (m *MPMedia) Shutdown() {
	_ = m.EndReceiving()
	mpMediaRecipient.CompareAndSwap(m, nil)
	C.mp_unregister_commands()
	C.mp_clear_now_playing()
}

func (m *MPMedia) syncCommands(commands *remote.Center) {
	for cmd, c := range mpCommands {
		s := commands.State(cmd)
		if cmd.IsFeedback() {
			title := C.CString(s.LocalizedTitle)
			C.mp_set_feedback(c, boolInt(s.Active), title)
			C.free(unsafe.Pointer(title))
			continue
		}
		C.mp_set_command_enabled(c, boolInt(s.Enabled))
		if len(s.PreferredIntervals) > 0 {
			C.mp_set_skip_interval(c, C.double(s.PreferredIntervals[0]))
		}
	}
}

func (m *MPMedia) onStoreChange(info *nowplaying.Info, state nowplaying.PlaybackState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info == nil {
		m.artwork = nil
		C.mp_clear_now_playing()
	} else {
		title := C.CString(info.Title)
		artist := C.CString(info.Artist)
		album := C.CString(info.Album)
		C.mp_set_now_playing(title, artist, album,
			C.double(info.Duration), C.double(info.ElapsedTime), C.double(info.PlaybackRate))
		C.free(unsafe.Pointer(title))
		C.free(unsafe.Pointer(artist))
		C.free(unsafe.Pointer(album))

		if info.Artwork != m.artwork {
			m.artwork = info.Artwork
			m.setArtwork(info.Artwork)
		}
	}
	if state != m.state {
		m.state = state
		C.mp_set_playback_state(C.int(state))
	}
}

// must be called with m.mu held
func (m *MPMedia) setArtwork(art *nowplaying.Artwork) {
	if art == nil || art.Image == nil {
		C.mp_clear_artwork()
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, art.Image, imaging.PNG); err != nil {
		m.logger.Warn("failed to encode artwork", zap.Error(err))
		return
	}
	data := C.CBytes(buf.Bytes())
	C.mp_set_artwork(data, C.int(buf.Len()))
	C.free(data)
}

// RunMainLoop runs fn while the Cocoa run loop services the main thread,
// which MediaPlayer needs to deliver remote commands. It must be called
// from the main goroutine with the OS thread locked.
func RunMainLoop(fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
		C.mp_stop_main_loop()
	}()
	C.mp_run_main_loop()
	return <-errCh
}

func boolInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
