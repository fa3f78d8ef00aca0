// Package nowplaying models the OS "now playing" record that drives
// lock-screen and control-center media display.
package nowplaying

import (
	"image"
	"sync"
)

// PlaybackState mirrors the OS now-playing playback state field.
type PlaybackState int

const (
	PlaybackStateUnknown PlaybackState = iota
	PlaybackStatePlaying
	PlaybackStatePaused
	PlaybackStateStopped
	PlaybackStateInterrupted
)

func (p PlaybackState) String() string {
	switch p {
	case PlaybackStatePlaying:
		return "playing"
	case PlaybackStatePaused:
		return "paused"
	case PlaybackStateStopped:
		return "stopped"
	case PlaybackStateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Artwork is a decoded image installed into the now-playing record.
type Artwork struct {
	Image image.Image
	// Source is the address the image was resolved from,
	// or empty for the placeholder.
	Source string
}

// Info is one snapshot of the now-playing record.
type Info struct {
	Title        string
	Artist       string
	Album        string
	Duration     float64 // seconds
	ElapsedTime  float64 // seconds
	PlaybackRate float64
	Artwork      *Artwork
}

// DefaultInfo is the record installed when none exists yet.
func DefaultInfo() *Info {
	return &Info{}
}

func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Center is a narrow read-modify-write view over the now-playing record.
type Center interface {
	// Info returns a copy of the current record, or nil if none is set.
	Info() *Info

	// Update replaces the record with the result of fn.
	// fn receives a copy of the current record (nil if none);
	// returning nil clears the record.
	Update(fn func(cur *Info) *Info)

	PlaybackState() PlaybackState
	SetPlaybackState(PlaybackState)
}

// Store is the in-process Center implementation. Platform backends
// subscribe with OnChange to mirror it onto the OS surface.
type Store struct {
	mu       sync.RWMutex
	info     *Info
	state    PlaybackState
	onChange []func(*Info, PlaybackState)
}

var _ Center = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Info() *Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Clone()
}

func (s *Store) Update(fn func(cur *Info) *Info) {
	s.mu.Lock()
	s.info = fn(s.info.Clone()).Clone()
	info, state, cbs := s.info.Clone(), s.state, s.onChange
	s.mu.Unlock()

	s.invokeOnChange(cbs, info, state)
}

func (s *Store) PlaybackState() PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) SetPlaybackState(state PlaybackState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	info, cbs := s.info.Clone(), s.onChange
	s.mu.Unlock()

	if changed {
		s.invokeOnChange(cbs, info, state)
	}
}

// OnChange registers a callback invoked after every record update or
// playback state change. Callbacks run on the goroutine that made the change.
func (s *Store) OnChange(cb func(*Info, PlaybackState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, cb)
}

func (s *Store) invokeOnChange(cbs []func(*Info, PlaybackState), info *Info, state PlaybackState) {
	for _, cb := range cbs {
		cb(info.Clone(), state)
	}
}
