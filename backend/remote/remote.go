// Package remote models the OS remote command center: the hardware,
// Bluetooth and lock-screen transport controls routed to the app.
package remote

import (
	"slices"
	"sync"
)

type Command int

const (
	CommandPlay Command = iota
	CommandPause
	CommandStop
	CommandTogglePlayPause
	CommandNextTrack
	CommandPreviousTrack
	CommandSkipForward
	CommandSkipBackward
	CommandChangePlaybackPosition
	CommandLike
	CommandDislike
	CommandBookmark
)

// AllCommands lists every command in registration order.
var AllCommands = []Command{
	CommandPlay,
	CommandPause,
	CommandStop,
	CommandTogglePlayPause,
	CommandNextTrack,
	CommandPreviousTrack,
	CommandSkipForward,
	CommandSkipBackward,
	CommandChangePlaybackPosition,
	CommandLike,
	CommandDislike,
	CommandBookmark,
}

func (c Command) String() string {
	switch c {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandStop:
		return "stop"
	case CommandTogglePlayPause:
		return "togglePlayPause"
	case CommandNextTrack:
		return "nextTrack"
	case CommandPreviousTrack:
		return "previousTrack"
	case CommandSkipForward:
		return "skipForward"
	case CommandSkipBackward:
		return "skipBackward"
	case CommandChangePlaybackPosition:
		return "changePlaybackPosition"
	case CommandLike:
		return "like"
	case CommandDislike:
		return "dislike"
	case CommandBookmark:
		return "bookmark"
	}
	return "unknown"
}

// ParseCommand returns the command whose String form is s.
func ParseCommand(s string) (Command, bool) {
	for _, c := range AllCommands {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// IsFeedback reports whether c is one of the like/dislike/bookmark commands.
func (c Command) IsFeedback() bool {
	return c == CommandLike || c == CommandDislike || c == CommandBookmark
}

// Status is the handler result reported back to the OS.
type Status int

const (
	StatusSuccess Status = iota
	StatusNoSuchContent
	StatusNoActionableNowPlayingItem
	StatusDeviceNotAvailable
	StatusCommandFailed
	// StatusDisabled is returned by Dispatch for disabled commands
	// or commands with no registered handler.
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoSuchContent:
		return "noSuchContent"
	case StatusNoActionableNowPlayingItem:
		return "noActionableNowPlayingItem"
	case StatusDeviceNotAvailable:
		return "deviceNotAvailable"
	case StatusCommandFailed:
		return "commandFailed"
	case StatusDisabled:
		return "disabled"
	}
	return "unknown"
}

// Event is one delivery of a command to its handlers.
type Event struct {
	Command Command

	// PositionTime is the requested position in seconds for
	// CommandChangePlaybackPosition. HasPosition is false if the
	// OS did not supply one.
	PositionTime float64
	HasPosition  bool

	// PreferredIntervals is filled in by Dispatch from the command state
	// for the skip commands.
	PreferredIntervals []float64
}

type Handler func(Event) Status

// State is the configuration of one command as the OS sees it.
type State struct {
	Enabled             bool
	PreferredIntervals  []float64
	LocalizedTitle      string
	LocalizedShortTitle string
	Active              bool
}

// Receiver starts and stops delivery of remote control events to the process.
type Receiver interface {
	BeginReceiving() error
	EndReceiving() error
}

type command struct {
	state    State
	handlers []Handler
}

// Center holds the per-command state and handler registrations.
// It is safe for concurrent use.
type Center struct {
	mu       sync.RWMutex
	commands map[Command]*command
	onChange []func()
}

func NewCenter() *Center {
	c := &Center{commands: make(map[Command]*command, len(AllCommands))}
	for _, cmd := range AllCommands {
		c.commands[cmd] = &command{}
	}
	return c
}

// AddTarget registers a handler for cmd. Handlers are never removed.
func (c *Center) AddTarget(cmd Command, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[cmd].handlers = append(c.commands[cmd].handlers, h)
}

// HasTarget reports whether any handler is registered for cmd.
func (c *Center) HasTarget(cmd Command) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.commands[cmd].handlers) > 0
}

func (c *Center) SetEnabled(cmd Command, enabled bool) {
	c.mutate(cmd, func(s *State) { s.Enabled = enabled })
}

func (c *Center) IsEnabled(cmd Command) bool {
	return c.State(cmd).Enabled
}

func (c *Center) SetPreferredIntervals(cmd Command, intervals []float64) {
	c.mutate(cmd, func(s *State) { s.PreferredIntervals = slices.Clone(intervals) })
}

// SetFeedback configures a like/dislike/bookmark command.
func (c *Center) SetFeedback(cmd Command, active bool, title string) {
	c.mutate(cmd, func(s *State) {
		s.Enabled = active
		s.Active = active
		s.LocalizedTitle = title
		s.LocalizedShortTitle = title
	})
}

// State returns a copy of the state of cmd.
func (c *Center) State(cmd Command) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.commands[cmd].state
	s.PreferredIntervals = slices.Clone(s.PreferredIntervals)
	return s
}

// OnChange registers a callback invoked after any command state change.
func (c *Center) OnChange(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, cb)
}

// Dispatch delivers e to the handlers of its command. The status of the
// last handler wins. Disabled commands are not delivered.
func (c *Center) Dispatch(e Event) Status {
	c.mu.RLock()
	cmd := c.commands[e.Command]
	if cmd == nil || !cmd.state.Enabled || len(cmd.handlers) == 0 {
		c.mu.RUnlock()
		return StatusDisabled
	}
	handlers := slices.Clone(cmd.handlers)
	if e.PreferredIntervals == nil {
		e.PreferredIntervals = slices.Clone(cmd.state.PreferredIntervals)
	}
	c.mu.RUnlock()

	status := StatusCommandFailed
	for _, h := range handlers {
		status = h(e)
	}
	return status
}

func (c *Center) mutate(cmd Command, f func(*State)) {
	c.mu.Lock()
	f(&c.commands[cmd].state)
	cbs := c.onChange
	c.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}
