package backend

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/supersonic-app/trackplayer-bridge/backend/nowplaying"
	"github.com/supersonic-app/trackplayer-bridge/backend/platform"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"github.com/supersonic-app/trackplayer-bridge/backend/session"
	"github.com/supersonic-app/trackplayer-bridge/backend/util"
	"github.com/supersonic-app/trackplayer-bridge/sharedutil"
	"go.uber.org/zap"
)

const placeholderTimeout = 10 * time.Second

// EventEmitter delivers outbound events to the host.
type EventEmitter interface {
	Emit(name string, body any)
}

// ImageResolver loads the image a MediaURL refers to.
type ImageResolver interface {
	Resolve(ctx context.Context, u *MediaURL, headers map[string]string) (image.Image, error)
}

// BridgeDeps are the collaborators of a Bridge.
// NowPlaying, Commands and Queue are required.
type BridgeDeps struct {
	NowPlaying    nowplaying.Center
	Commands      *remote.Center
	Interruptions session.Source
	Receiver      remote.Receiver
	Events        EventEmitter
	Artwork       ImageResolver
	Features      platform.Features
	Queue         *util.MainQueue
	Logger        *zap.Logger
	Config        BridgeConfig
}

// Bridge keeps the OS media session in step with the host player.
// Every inbound call runs on the main queue and returns exactly once:
// nil on success or a *BridgeError.
type Bridge struct {
	nowPlaying    nowplaying.Center
	commands      *remote.Center
	interruptions session.Source
	receiver      remote.Receiver
	events        EventEmitter
	artwork       ImageResolver
	features      platform.Features
	queue         *util.MainQueue
	logger        *zap.Logger
	cfg           BridgeConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	placeholder atomic.Pointer[nowplaying.Artwork]

	// accessed only on the main queue
	hasInitialized     bool
	currentTrack       *Track
	previousArtworkURL *string
	artworkGen         uint64
	cancelArtwork      context.CancelFunc
	unsubscribe        func()
}

func NewBridge(deps BridgeDeps) *Bridge {
	b := &Bridge{
		nowPlaying:    deps.NowPlaying,
		commands:      deps.Commands,
		interruptions: deps.Interruptions,
		receiver:      deps.Receiver,
		events:        deps.Events,
		artwork:       deps.Artwork,
		features:      deps.Features,
		queue:         deps.Queue,
		logger:        deps.Logger,
		cfg:           deps.Config,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.interruptions == nil {
		b.interruptions = session.NewNotifier()
	}
	if b.receiver == nil {
		b.receiver = nopReceiver{}
	}
	if b.events == nil {
		b.events = nopEmitter{}
	}
	if b.cfg.DefaultJumpInterval <= 0 {
		b.cfg.DefaultJumpInterval = DefaultConfig().Bridge.DefaultJumpInterval
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Reset clears the now-playing record and stops receiving remote
// control events. Command handlers stay registered.
func (b *Bridge) Reset() error {
	return b.run(func() error {
		b.logger.Info("resetting player")
		b.nowPlaying.Update(func(*nowplaying.Info) *nowplaying.Info { return nil })
		b.cancelPendingArtwork()
		b.queue.Async(b.endReceiving)
		return nil
	})
}

// UpdateOptions enables remote commands per the host's capabilities
// and configures the skip intervals and feedback commands.
func (b *Bridge) UpdateOptions(opts Options) error {
	placeholder := b.loadPlaceholder(opts.PlaceholderImage)

	return b.run(func() error {
		caps := sharedutil.ToSet(sharedutil.FilterMapSlice(opts.Capabilities, ParseCapability))
		has := func(c Capability) bool {
			_, ok := caps[c]
			return ok
		}
		jump := b.cfg.DefaultJumpInterval
		if opts.JumpInterval != nil {
			jump = *opts.JumpInterval
		}

		cc := b.commands
		if b.features.ChangePlaybackPosition {
			cc.SetEnabled(remote.CommandChangePlaybackPosition, has(CapabilitySeek))
		}
		cc.SetEnabled(remote.CommandTogglePlayPause, has(CapabilityPlay))
		cc.SetEnabled(remote.CommandPlay, has(CapabilityPlay))
		cc.SetEnabled(remote.CommandPause, has(CapabilityPause))
		cc.SetEnabled(remote.CommandNextTrack, has(CapabilityNext))
		cc.SetEnabled(remote.CommandPreviousTrack, has(CapabilityPrevious))

		cc.SetEnabled(remote.CommandSkipBackward, has(CapabilityJumpBackward))
		cc.SetPreferredIntervals(remote.CommandSkipBackward, []float64{jump})
		cc.SetEnabled(remote.CommandSkipForward, has(CapabilityJumpForward))
		cc.SetPreferredIntervals(remote.CommandSkipForward, []float64{jump})

		cc.SetEnabled(remote.CommandStop, has(CapabilityStop))

		if b.features.FeedbackCommands {
			b.setFeedback(remote.CommandLike, opts.LikeOptions, b.cfg.LikeTitle)
			b.setFeedback(remote.CommandDislike, opts.DislikeOptions, b.cfg.DislikeTitle)
			b.setFeedback(remote.CommandBookmark, opts.BookmarkOptions, b.cfg.BookmarkTitle)
		}

		if placeholder != nil {
			b.placeholder.CompareAndSwap(nil, placeholder)
		}
		return nil
	})
}

// SetNowPlaying replaces the current track. The first call registers the
// interruption observer and command handlers.
func (b *Bridge) SetNowPlaying(raw map[string]any) error {
	return b.run(func() error {
		track, err := NewTrack(raw)
		if err != nil {
			return err
		}
		upd, err := b.prepareUpdate(raw, track)
		if err != nil {
			return err
		}

		if !b.hasInitialized {
			b.setup()
		}
		b.queue.AsyncAfter(b.cfg.RemoteEventsDelay(), b.beginReceiving)

		b.currentTrack = track
		b.applyUpdate(upd)
		return nil
	})
}

// UpdatePlayback merges metadata into the current track and updates the
// now-playing record and playback state.
func (b *Bridge) UpdatePlayback(raw map[string]any) error {
	return b.run(func() error {
		var track *Track
		if b.currentTrack != nil {
			t := *b.currentTrack
			if err := t.UpdateMetadata(raw); err != nil {
				return err
			}
			track = &t
		}
		upd, err := b.prepareUpdate(raw, track)
		if err != nil {
			return err
		}
		if track != nil {
			b.currentTrack = track
		}
		b.applyUpdate(upd)
		return nil
	})
}

// CurrentTrack returns the raw payload of the current track, or nil.
func (b *Bridge) CurrentTrack() map[string]any {
	var obj map[string]any
	b.queue.Sync(func() {
		if b.currentTrack != nil {
			obj = b.currentTrack.Object()
		}
	})
	return obj
}

// Close resets the session, removes the interruption observer and waits
// for in-flight artwork requests to finish.
func (b *Bridge) Close() {
	b.queue.Sync(func() {
		b.nowPlaying.Update(func(*nowplaying.Info) *nowplaying.Info { return nil })
		b.cancelPendingArtwork()
		if b.unsubscribe != nil {
			b.unsubscribe()
			b.unsubscribe = nil
		}
		b.endReceiving()
	})
	b.cancel()
	b.wg.Wait()
}

type playbackUpdate struct {
	props   PlaybackProperties
	state   PlayState
	artwork *MediaURL
	headers map[string]string
}

// prepareUpdate validates raw completely so that a rejected call
// changes nothing.
func (b *Bridge) prepareUpdate(raw map[string]any, track *Track) (*playbackUpdate, error) {
	props, err := DecodePlaybackProperties(raw)
	if err != nil {
		return nil, err
	}
	state, ok := ParsePlayState(props.State)
	if !ok {
		b.logger.Debug("ignoring unknown playback state", zap.String("state", *props.State))
	}
	art, err := ParseMediaURL(props.Artwork)
	if err != nil {
		return nil, err
	}
	upd := &playbackUpdate{props: props, state: state, artwork: art}
	if art != nil {
		upd.headers = art.Headers
		if track != nil {
			upd.headers = sharedutil.MergeMaps(track.Headers, art.Headers)
		}
	}
	return upd, nil
}

func (b *Bridge) applyUpdate(upd *playbackUpdate) {
	b.updateNowPlayingInfo(upd)

	if upd.state == StateStopped {
		b.commands.SetEnabled(remote.CommandStop, false)
	}
	if b.features.PlaybackState {
		switch upd.state {
		case StatePlaying:
			b.nowPlaying.SetPlaybackState(nowplaying.PlaybackStatePlaying)
		case StatePaused:
			b.nowPlaying.SetPlaybackState(nowplaying.PlaybackStatePaused)
		case StateStopped:
			b.nowPlaying.SetPlaybackState(nowplaying.PlaybackStateStopped)
		}
	}
}

func (b *Bridge) updateNowPlayingInfo(upd *playbackUpdate) {
	var newArtworkURL *string
	if upd.props.Artwork != nil {
		u := upd.props.Artwork.URI
		newArtworkURL = &u
	}
	urlChanged := newArtworkURL != nil &&
		(b.previousArtworkURL == nil || *b.previousArtworkURL != *newArtworkURL)

	var hasArtwork bool
	b.nowPlaying.Update(func(cur *nowplaying.Info) *nowplaying.Info {
		if cur == nil {
			cur = nowplaying.DefaultInfo()
		}
		if t := b.currentTrack; t != nil {
			cur.Title = t.Title
			cur.Artist = t.Artist
			if t.Album != nil {
				cur.Album = *t.Album
			}
			if t.Duration != nil {
				cur.Duration = *t.Duration
			}
		}
		if upd.props.ElapsedTime != nil {
			cur.ElapsedTime = *upd.props.ElapsedTime
		}
		cur.PlaybackRate = 1
		if upd.state == StatePaused {
			cur.PlaybackRate = 0
		}
		// placeholder while the new artwork loads
		if urlChanged {
			cur.Artwork = b.placeholder.Load()
		}
		hasArtwork = cur.Artwork != nil
		return cur
	})

	if newArtworkURL == nil || *newArtworkURL == "" {
		return
	}
	if !urlChanged && hasArtwork {
		return
	}
	b.previousArtworkURL = newArtworkURL
	b.requestArtwork(*newArtworkURL, upd.artwork, upd.headers)
}

// requestArtwork supersedes any in-flight request. The result is installed
// only if no newer request was made and the record still exists.
func (b *Bridge) requestArtwork(source string, u *MediaURL, headers map[string]string) {
	if b.artwork == nil || u == nil {
		return
	}
	b.cancelPendingArtwork()
	gen := b.artworkGen
	ctx, cancel := context.WithCancel(b.ctx)
	b.cancelArtwork = cancel

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		img, err := b.artwork.Resolve(ctx, u, headers)
		if err != nil {
			b.logger.Debug("artwork not loaded", zap.String("url", source), zap.Error(err))
			return
		}
		b.queue.Async(func() {
			if gen != b.artworkGen || !ValidImage(img) {
				return
			}
			if b.nowPlaying.Info() == nil {
				return
			}
			b.nowPlaying.Update(func(cur *nowplaying.Info) *nowplaying.Info {
				if cur != nil {
					cur.Artwork = &nowplaying.Artwork{Image: img, Source: source}
				}
				return cur
			})
		})
	}()
}

func (b *Bridge) cancelPendingArtwork() {
	if b.cancelArtwork != nil {
		b.cancelArtwork()
		b.cancelArtwork = nil
	}
	b.artworkGen++
}

func (b *Bridge) loadPlaceholder(src *ImageSource) *nowplaying.Artwork {
	if src == nil || b.artwork == nil || b.placeholder.Load() != nil {
		return nil
	}
	u, err := ParseMediaURL(src)
	if err != nil || u == nil {
		b.logger.Warn("invalid placeholder image", zap.Error(err))
		return nil
	}
	ctx, cancel := context.WithTimeout(b.ctx, placeholderTimeout)
	defer cancel()
	img, err := b.artwork.Resolve(ctx, u, u.Headers)
	if err != nil || !ValidImage(img) {
		b.logger.Warn("placeholder image not loaded", zap.String("url", u.Source()), zap.Error(err))
		return nil
	}
	return &nowplaying.Artwork{Image: img}
}

func (b *Bridge) setFeedback(cmd remote.Command, opts *FeedbackOptions, defaultTitle string) {
	active, title := false, defaultTitle
	if opts != nil {
		if opts.IsActive != nil {
			active = *opts.IsActive
		}
		if opts.Title != nil {
			title = *opts.Title
		}
	}
	b.commands.SetFeedback(cmd, active, title)
}

func (b *Bridge) setup() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.unsubscribe = b.interruptions.Subscribe(func(i session.Interruption) {
		b.queue.Async(func() { b.handleInterruption(i) })
	})

	cc := b.commands
	if b.features.ChangePlaybackPosition {
		cc.AddTarget(remote.CommandChangePlaybackPosition, func(e remote.Event) remote.Status {
			if !e.HasPosition {
				return remote.StatusCommandFailed
			}
			b.events.Emit(EventRemoteSeek, SeekEvent{Position: e.PositionTime})
			return remote.StatusSuccess
		})
	}
	cc.AddTarget(remote.CommandPlay, b.emitHandler(EventRemotePlay))
	cc.AddTarget(remote.CommandPause, b.emitHandler(EventRemotePause))
	cc.AddTarget(remote.CommandNextTrack, b.emitHandler(EventRemoteNext))
	cc.AddTarget(remote.CommandPreviousTrack, b.emitHandler(EventRemotePrevious))
	cc.AddTarget(remote.CommandSkipBackward, b.jumpHandler(EventRemoteJumpBackward))
	cc.AddTarget(remote.CommandSkipForward, b.jumpHandler(EventRemoteJumpForward))
	cc.AddTarget(remote.CommandStop, b.emitHandler(EventRemoteStop))
	cc.AddTarget(remote.CommandTogglePlayPause, b.emitHandler(EventRemotePlayPause))
	cc.AddTarget(remote.CommandLike, b.emitHandler(EventRemoteLike))
	cc.AddTarget(remote.CommandDislike, b.emitHandler(EventRemoteDislike))
	cc.AddTarget(remote.CommandBookmark, b.emitHandler(EventRemoteBookmark))

	b.hasInitialized = true
}

func (b *Bridge) emitHandler(event string) remote.Handler {
	return func(remote.Event) remote.Status {
		b.events.Emit(event, nil)
		return remote.StatusSuccess
	}
}

func (b *Bridge) jumpHandler(event string) remote.Handler {
	return func(e remote.Event) remote.Status {
		if len(e.PreferredIntervals) == 0 {
			return remote.StatusCommandFailed
		}
		b.events.Emit(event, JumpEvent{Interval: e.PreferredIntervals[0]})
		return remote.StatusSuccess
	}
}

func (b *Bridge) handleInterruption(i session.Interruption) {
	b.nowPlaying.Update(func(cur *nowplaying.Info) *nowplaying.Info {
		if cur == nil {
			return nowplaying.DefaultInfo()
		}
		return cur
	})

	switch i.Type {
	case session.InterruptionBegan:
		suspended := i.WasSuspended
		if b.features.InterruptionReason && i.Reason == session.ReasonAppWasSuspended {
			suspended = true
		}
		if suspended {
			return
		}
		b.setPlaybackRate(0)
		b.events.Emit(EventRemoteDuck, DuckEvent{Paused: true})
	case session.InterruptionEnded:
		if !i.HasOptions {
			return
		}
		if i.ShouldResume {
			b.setPlaybackRate(1)
			b.events.Emit(EventRemoteDuck, DuckEvent{Paused: false})
		} else {
			b.events.Emit(EventRemoteDuck, DuckEvent{Paused: true, Permanent: true})
		}
	}
}

func (b *Bridge) setPlaybackRate(rate float64) {
	b.nowPlaying.Update(func(cur *nowplaying.Info) *nowplaying.Info {
		if cur != nil {
			cur.PlaybackRate = rate
		}
		return cur
	})
}

func (b *Bridge) beginReceiving() {
	if err := b.receiver.BeginReceiving(); err != nil {
		b.logger.Warn("failed to begin receiving remote control events", zap.Error(err))
	}
}

func (b *Bridge) endReceiving() {
	if err := b.receiver.EndReceiving(); err != nil {
		b.logger.Warn("failed to end receiving remote control events", zap.Error(err))
	}
}

// run executes f on the main queue and converts its result for the host.
func (b *Bridge) run(f func() error) error {
	var err error
	if !b.queue.Sync(func() { err = f() }) {
		err = ErrShutDown
	}
	if err != nil {
		return AsBridgeError(err)
	}
	return nil
}

type nopReceiver struct{}

func (nopReceiver) BeginReceiving() error { return nil }
func (nopReceiver) EndReceiving() error   { return nil }

type nopEmitter struct{}

func (nopEmitter) Emit(string, any) {}
