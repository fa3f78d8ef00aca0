package platform

import (
	"encoding/base32"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boxes-ltd/imaging"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	dbusTrackIDPrefix = "/TrackPlayer/Track/"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

var (
	_ types.OrgMprisMediaPlayer2Adapter       = (*MPRIS)(nil)
	_ types.OrgMprisMediaPlayer2PlayerAdapter = (*MPRIS)(nil)
	_ Backend                                 = (*MPRIS)(nil)
)

var errNotSupported = errors.New("not supported")

// MPRIS publishes the session on the D-Bus session bus as an
// org.mpris.MediaPlayer2 player.
type MPRIS struct {
	gate

	logger     *zap.Logger
	playerName string
	artDir     string

	mu        sync.RWMutex
	connErr   error
	info      *nowplaying.Info
	state     nowplaying.PlaybackState
	trackPath string
	artwork   *nowplaying.Artwork
	artURL    string
	artSeq    int

	s   *server.Server
	evt *events.EventHandler
}

func newMPRIS(cfg Config, logger *zap.Logger) (Backend, error) {
	// fail early so "auto" can fall back when there is no session bus
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: %w", err)
	}
	conn.Close()

	name := cfg.DisplayName
	if name == "" {
		name = "TrackPlayer"
	}
	m := &MPRIS{
		logger:     logger,
		playerName: name,
		artDir:     cfg.ArtCacheDir,
		connErr:    errors.New("not started"),
	}
	m.s = server.NewServer(busName(name), m, m)
	m.evt = events.NewEventHandler(m.s)
	return m, nil
}

func (m *MPRIS) Name() string { return NameMPRIS }

func (m *MPRIS) Features() Features {
	return Features{
		PlaybackState:          true,
		ChangePlaybackPosition: true,
	}
}

// Start mirrors store onto the bus and begins serving MPRIS requests.
func (m *MPRIS) Start(store *nowplaying.Store, commands *remote.Center) error {
	m.setCommands(commands)
	if m.artDir != "" {
		if err := os.MkdirAll(m.artDir, 0o755); err != nil {
			m.logger.Warn("artwork directory unavailable", zap.Error(err))
			m.artDir = ""
		}
	}
	store.OnChange(m.onStoreChange)

	m.mu.Lock()
	m.connErr = nil
	m.mu.Unlock()
	go func() {
		// exits early with err if unable to establish D-Bus connection
		err := m.s.Listen()
		m.mu.Lock()
		m.connErr = err
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("mpris server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops listening for MPRIS requests and releases D-Bus resources.
func (m *MPRIS) Shutdown() {
	_ = m.EndReceiving()
	m.mu.Lock()
	running := m.connErr == nil
	m.connErr = errors.New("stopped")
	m.mu.Unlock()
	if running {
		m.s.Stop()
	}
	if m.artDir != "" {
		for i := 0; i < 2; i++ {
			_ = os.Remove(m.artPath(i))
		}
	}
}

func (m *MPRIS) connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connErr == nil
}

func (m *MPRIS) onStoreChange(info *nowplaying.Info, state nowplaying.PlaybackState) {
	m.mu.Lock()
	prev, prevState := m.info, m.state
	m.info, m.state = info, state
	newPath := trackObjectPath(info)
	metaChanged := newPath != m.trackPath || !sameMetadata(prev, info)
	m.trackPath = newPath

	var art *nowplaying.Artwork
	if info != nil {
		art = info.Artwork
	}
	artChanged := art != m.artwork
	m.artwork = art
	m.mu.Unlock()

	if artChanged {
		m.writeArtwork(art)
		metaChanged = true
	}
	if !m.connected() {
		return
	}
	if metaChanged {
		m.evt.Player.OnTitle()
	}
	if state != prevState || rateOf(prev) != rateOf(info) {
		m.evt.Player.OnPlayPause()
	}
	if prev != nil && info != nil && prev.ElapsedTime != info.ElapsedTime {
		m.evt.Player.OnSeek(secondsToMicroseconds(info.ElapsedTime))
	}
}

// writeArtwork saves art as a JPEG for the ArtUrl metadata field.
// Two files are alternated so clients caching by URL see the change.
func (m *MPRIS) writeArtwork(art *nowplaying.Artwork) {
	if m.artDir == "" || art == nil || art.Image == nil {
		m.mu.Lock()
		m.artURL = ""
		m.mu.Unlock()
		return
	}
	m.mu.Lock()
	m.artSeq = (m.artSeq + 1) % 2
	path := m.artPath(m.artSeq)
	m.mu.Unlock()

	if err := imaging.Save(art.Image, path, imaging.JPEGQuality(90)); err != nil {
		m.logger.Warn("failed to write artwork", zap.Error(err))
		path = ""
	}
	m.mu.Lock()
	m.artURL = ""
	if path != "" {
		m.artURL = "file://" + path
	}
	m.mu.Unlock()
}

func (m *MPRIS) artPath(seq int) string {
	return filepath.Join(m.artDir, fmt.Sprintf("mpris-art-%d.jpg", seq))
}

func (m *MPRIS) dispatch(e remote.Event) error {
	if s := m.Dispatch(e); s != remote.StatusSuccess {
		return fmt.Errorf("%s: %s", e.Command, s)
	}
	return nil
}

func (m *MPRIS) canDispatch(cmd remote.Command) bool {
	if !m.Receiving() {
		return false
	}
	m.gate.mu.RLock()
	commands := m.commands
	m.gate.mu.RUnlock()
	return commands != nil && commands.IsEnabled(cmd)
}

// OrgMprisMediaPlayer2Adapter implementation

func (m *MPRIS) Identity() (string, error) {
	return m.playerName, nil
}

func (m *MPRIS) CanQuit() (bool, error) {
	return false, nil
}

func (m *MPRIS) Quit() error {
	return errNotSupported
}

func (m *MPRIS) CanRaise() (bool, error) {
	return false, nil
}

func (m *MPRIS) Raise() error {
	return errNotSupported
}

func (m *MPRIS) HasTrackList() (bool, error) {
	return false, nil
}

func (m *MPRIS) SupportedUriSchemes() ([]string, error) {
	return nil, nil
}

func (m *MPRIS) SupportedMimeTypes() ([]string, error) {
	return nil, nil
}

// OrgMprisMediaPlayer2PlayerAdapter implementation

func (m *MPRIS) Next() error {
	return m.dispatch(remote.Event{Command: remote.CommandNextTrack})
}

func (m *MPRIS) Previous() error {
	return m.dispatch(remote.Event{Command: remote.CommandPreviousTrack})
}

func (m *MPRIS) Pause() error {
	return m.dispatch(remote.Event{Command: remote.CommandPause})
}

func (m *MPRIS) PlayPause() error {
	return m.dispatch(remote.Event{Command: remote.CommandTogglePlayPause})
}

func (m *MPRIS) Stop() error {
	return m.dispatch(remote.Event{Command: remote.CommandStop})
}

func (m *MPRIS) Play() error {
	return m.dispatch(remote.Event{Command: remote.CommandPlay})
}

func (m *MPRIS) Seek(offset types.Microseconds) error {
	// MPRIS seek command is relative to current position
	m.mu.RLock()
	var pos float64
	if m.info != nil {
		pos = m.info.ElapsedTime
	}
	m.mu.RUnlock()
	pos += microsecondsToSeconds(offset)
	if pos < 0 {
		pos = 0
	}
	return m.dispatch(remote.Event{
		Command:      remote.CommandChangePlaybackPosition,
		PositionTime: pos,
		HasPosition:  true,
	})
}

func (m *MPRIS) SetPosition(trackId string, position types.Microseconds) error {
	m.mu.RLock()
	cur := m.trackPath
	m.mu.RUnlock()
	if cur != trackId {
		return nil
	}
	return m.dispatch(remote.Event{
		Command:      remote.CommandChangePlaybackPosition,
		PositionTime: microsecondsToSeconds(position),
		HasPosition:  true,
	})
}

func (m *MPRIS) OpenUri(uri string) error {
	return errNotSupported
}

func (m *MPRIS) PlaybackStatus() (types.PlaybackStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return playbackStatus(m.info, m.state), nil
}

func (m *MPRIS) Rate() (float64, error) {
	return 1, nil
}

func (m *MPRIS) SetRate(float64) error {
	return errNotSupported
}

func (m *MPRIS) Metadata() (types.Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return buildMetadata(m.info, m.trackPath, m.artURL), nil
}

func (m *MPRIS) Volume() (float64, error) {
	return 1, nil
}

func (m *MPRIS) SetVolume(float64) error {
	return errNotSupported
}

func (m *MPRIS) Position() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return 0, nil
	}
	return int64(secondsToMicroseconds(m.info.ElapsedTime)), nil
}

func (m *MPRIS) MinimumRate() (float64, error) {
	return 1, nil
}

func (m *MPRIS) MaximumRate() (float64, error) {
	return 1, nil
}

func (m *MPRIS) CanGoNext() (bool, error) {
	return m.canDispatch(remote.CommandNextTrack), nil
}

func (m *MPRIS) CanGoPrevious() (bool, error) {
	return m.canDispatch(remote.CommandPreviousTrack), nil
}

func (m *MPRIS) CanPlay() (bool, error) {
	return m.canDispatch(remote.CommandPlay), nil
}

func (m *MPRIS) CanPause() (bool, error) {
	return m.canDispatch(remote.CommandPause), nil
}

func (m *MPRIS) CanSeek() (bool, error) {
	return m.canDispatch(remote.CommandChangePlaybackPosition), nil
}

func (m *MPRIS) CanControl() (bool, error) {
	return m.Receiving(), nil
}

func playbackStatus(info *nowplaying.Info, state nowplaying.PlaybackState) types.PlaybackStatus {
	if info == nil {
		return types.PlaybackStatusStopped
	}
	switch state {
	case nowplaying.PlaybackStatePlaying:
		return types.PlaybackStatusPlaying
	case nowplaying.PlaybackStatePaused, nowplaying.PlaybackStateInterrupted:
		return types.PlaybackStatusPaused
	case nowplaying.PlaybackStateStopped:
		return types.PlaybackStatusStopped
	}
	if info.PlaybackRate > 0 {
		return types.PlaybackStatusPlaying
	}
	return types.PlaybackStatusPaused
}

func buildMetadata(info *nowplaying.Info, trackPath, artURL string) types.Metadata {
	if info == nil || trackPath == "" {
		return types.Metadata{TrackId: dbus.ObjectPath(noTrackObjectPath)}
	}
	md := types.Metadata{
		TrackId: dbus.ObjectPath(trackPath),
		Length:  secondsToMicroseconds(info.Duration),
		Title:   sanitize(info.Title),
		Album:   sanitize(info.Album),
		ArtUrl:  artURL,
	}
	if info.Artist != "" {
		md.Artist = []string{sanitize(info.Artist)}
	}
	return md
}

func trackObjectPath(info *nowplaying.Info) string {
	if info == nil {
		return ""
	}
	return dbusTrackIDPrefix + encodeTrackId(info.Title+"\x00"+info.Artist+"\x00"+info.Album)
}

func sameMetadata(a, b *nowplaying.Info) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Title == b.Title && a.Artist == b.Artist && a.Album == b.Album && a.Duration == b.Duration
}

func rateOf(info *nowplaying.Info) float64 {
	if info == nil {
		return -1
	}
	return info.PlaybackRate
}

// sanitize makes s valid NFC-normalized UTF-8, as D-Bus rejects invalid strings.
func sanitize(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "�"))
}

// busName derives the MPRIS bus name suffix from the display name.
func busName(displayName string) string {
	var sb strings.Builder
	for _, r := range displayName {
		if r < 0x80 && (r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "TrackPlayer"
	}
	return sb.String()
}

func microsecondsToSeconds(m types.Microseconds) float64 {
	return float64(m) / 1_000_000
}

func secondsToMicroseconds(s float64) types.Microseconds {
	return types.Microseconds(s * 1_000_000)
}

// encodeTrackId keeps the object path within the D-Bus character set.
func encodeTrackId(id string) string {
	return base32.StdEncoding.WithPadding('0').EncodeToString([]byte(id))
}
