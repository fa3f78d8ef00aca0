//go:build windows

package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/boxes-ltd/imaging"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

type (
	smtcPlaybackState int
	smtcButton        int
)

const (
	// constants from smtc.h in github.com/supersonic-app/smtc-dll
	smtcPlaybackStateClosed  smtcPlaybackState = 0
	smtcPlaybackStateStopped smtcPlaybackState = 2
	smtcPlaybackStatePlaying smtcPlaybackState = 3
	smtcPlaybackStatePaused  smtcPlaybackState = 4

	smtcButtonPlay     smtcButton = 0
	smtcButtonPause    smtcButton = 1
	smtcButtonStop     smtcButton = 2
	smtcButtonPrevious smtcButton = 4
	smtcButtonNext     smtcButton = 5
)

var smtcButtonCommands = map[smtcButton]remote.Command{
	smtcButtonPlay:     remote.CommandPlay,
	smtcButtonPause:    remote.CommandPause,
	smtcButtonStop:     remote.CommandStop,
	smtcButtonPrevious: remote.CommandPreviousTrack,
	smtcButtonNext:     remote.CommandNextTrack,
}

var (
	smtcRecipient atomic.Pointer[SMTC]

	smtcCallbacksOnce sync.Once
	smtcBtnCallback   uintptr
	smtcSeekCallback  uintptr

	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
)

// SMTC drives the Windows SystemMediaTransportControls through smtc.dll.
type SMTC struct {
	gate

	dll         *windows.DLL
	logger      *zap.Logger
	artCacheDir string

	mu          sync.Mutex
	artwork     *nowplaying.Artwork
	artFlip     bool
	lastEnabled bool
}

var _ Backend = (*SMTC)(nil)

func newSMTC(cfg Config, logger *zap.Logger) (Backend, error) {
	if maj, _, _ := windows.RtlGetNtVersionNumbers(); maj < 10 {
		return nil, errors.New("SMTC is not supported on Windows versions < 10")
	}

	dll, err := windows.LoadDLL("smtc.dll")
	if err != nil {
		return nil, err
	}

	hwnd, _, _ := procGetConsoleWindow.Call()
	smtcCallbacksOnce.Do(func() {
		smtcBtnCallback = windows.NewCallback(onSMTCButton)
		smtcSeekCallback = windows.NewCallback(onSMTCSeek)
	})
	s := &SMTC{dll: dll, logger: logger, artCacheDir: cfg.ArtCacheDir}
	if err := s.call("InitializeForWindow", hwnd, smtcBtnCallback, smtcSeekCallback); err != nil {
		dll.Release()
		return nil, err
	}
	smtcRecipient.Store(s)
	return s, nil
}

func onSMTCButton(in uintptr) uintptr {
	if s := smtcRecipient.Load(); s != nil {
		if cmd, ok := smtcButtonCommands[smtcButton(in)]; ok {
			s.Dispatch(remote.Event{Command: cmd})
		}
	}
	return 0
}

func onSMTCSeek(millis uintptr) uintptr {
	if s := smtcRecipient.Load(); s != nil {
		s.Dispatch(remote.Event{
			Command:      remote.CommandChangePlaybackPosition,
			PositionTime: float64(int32(millis)) / 1000,
			HasPosition:  true,
		})
	}
	return 0
}

func (s *SMTC) Name() string { return NameSMTC }

func (s *SMTC) Features() Features {
	return Features{
		PlaybackState:          true,
		ChangePlaybackPosition: true,
	}
}

func (s *SMTC) Start(store *nowplaying.Store, commands *remote.Center) error {
	s.setCommands(commands)
	store.OnChange(s.onStoreChange)
	return nil
}

func (s *SMTC) BeginReceiving() error {
	_ = s.gate.BeginReceiving()
	return s.setEnabled(true)
}

func (s *SMTC) EndReceiving() error {
	_ = s.gate.EndReceiving()
	return s.setEnabled(false)
}

func (s *SMTC) Shutdown() {
	_ = s.gate.EndReceiving()
	smtcRecipient.CompareAndSwap(s, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dll == nil {
		return
	}
	if proc, err := s.dll.FindProc("Destroy"); err == nil {
		proc.Call()
	}
	s.dll.Release()
	s.dll = nil
}

func (s *SMTC) onStoreChange(info *nowplaying.Info, state nowplaying.PlaybackState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info == nil {
		s.artwork = nil
		s.logErr(s.callLocked("SetPlaybackState", uintptr(smtcPlaybackStateClosed)))
		return
	}

	title, err := windows.UTF16PtrFromString(info.Title)
	if err != nil {
		s.logErr(err)
		return
	}
	artist, err := windows.UTF16PtrFromString(info.Artist)
	if err != nil {
		s.logErr(err)
		return
	}
	s.logErr(s.callLocked("SetMetadata", uintptr(unsafe.Pointer(title)), uintptr(unsafe.Pointer(artist))))
	s.logErr(s.callLocked("SetPosition", uintptr(info.ElapsedTime*1000), uintptr(info.Duration*1000)))
	s.logErr(s.callLocked("SetPlaybackState", uintptr(smtcState(state, info.PlaybackRate))))

	if info.Artwork != s.artwork {
		s.artwork = info.Artwork
		s.logErr(s.setThumbnail(info.Artwork))
	}
}

func smtcState(state nowplaying.PlaybackState, rate float64) smtcPlaybackState {
	switch state {
	case nowplaying.PlaybackStatePlaying:
		return smtcPlaybackStatePlaying
	case nowplaying.PlaybackStatePaused, nowplaying.PlaybackStateInterrupted:
		return smtcPlaybackStatePaused
	case nowplaying.PlaybackStateStopped:
		return smtcPlaybackStateStopped
	}
	if rate > 0 {
		return smtcPlaybackStatePlaying
	}
	return smtcPlaybackStatePaused
}

// must be called with s.mu held
func (s *SMTC) setThumbnail(art *nowplaying.Artwork) error {
	if art == nil || art.Image == nil || s.artCacheDir == "" {
		return nil
	}
	name := "smtc-art-0.jpg"
	if s.artFlip {
		name = "smtc-art-1.jpg"
	}
	s.artFlip = !s.artFlip
	if err := os.MkdirAll(s.artCacheDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(s.artCacheDir, name)
	if err := imaging.Save(art.Image, path, imaging.JPEGQuality(90)); err != nil {
		return err
	}
	utfPath, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return s.callLocked("SetThumbnailPath", uintptr(unsafe.Pointer(utfPath)))
}

func (s *SMTC) setEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastEnabled == enabled {
		return nil
	}
	var arg uintptr
	if enabled {
		arg = 1
	}
	if err := s.callLocked("SetEnabled", arg); err != nil {
		return err
	}
	s.lastEnabled = enabled
	return nil
}

func (s *SMTC) call(name string, args ...uintptr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callLocked(name, args...)
}

func (s *SMTC) callLocked(name string, args ...uintptr) error {
	if s.dll == nil {
		return errors.New("SMTC DLL not available")
	}
	proc, err := s.dll.FindProc(name)
	if err != nil {
		return err
	}
	// HRESULT is a 32-bit signed value; failure codes are negative
	if hr, _, _ := proc.Call(args...); int32(hr) < 0 {
		return fmt.Errorf("%s failed with HRESULT=0x%08X", name, uint32(hr))
	}
	return nil
}

func (s *SMTC) logErr(err error) {
	if err != nil {
		s.logger.Warn("SMTC update failed", zap.Error(err))
	}
}
