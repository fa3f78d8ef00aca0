package backend

import "strings"

// PlayState is the playback state string exchanged with the host.
type PlayState string

const (
	StateNone    PlayState = "none"
	StatePlaying PlayState = "playing"
	StatePaused  PlayState = "paused"
	StateStopped PlayState = "stopped"
)

// ParsePlayState maps a host state string to a PlayState.
// An absent or unrecognized state is StateNone; ok is false only for
// an unrecognized one.
func ParsePlayState(s *string) (state PlayState, ok bool) {
	if s == nil {
		return StateNone, true
	}
	switch p := PlayState(strings.ToLower(*s)); p {
	case StateNone, StatePlaying, StatePaused, StateStopped:
		return p, true
	}
	return StateNone, false
}

// Capability is a transport command the host declares as supported.
type Capability string

const (
	CapabilityPlay         Capability = "play"
	CapabilityPause        Capability = "pause"
	CapabilityStop         Capability = "stop"
	CapabilitySeek         Capability = "seek"
	CapabilityNext         Capability = "next"
	CapabilityPrevious     Capability = "previous"
	CapabilityJumpForward  Capability = "jumpForward"
	CapabilityJumpBackward Capability = "jumpBackward"
	CapabilityLike         Capability = "like"
	CapabilityDislike      Capability = "dislike"
	CapabilityBookmark     Capability = "bookmark"

	// capabilityNoop is exported for capabilities the OS surface cannot
	// express. Hosts may pass it; it is ignored.
	capabilityNoop = "NOOP"
)

func ParseCapability(s string) (Capability, bool) {
	switch c := Capability(s); c {
	case CapabilityPlay, CapabilityPause, CapabilityStop, CapabilitySeek,
		CapabilityNext, CapabilityPrevious, CapabilityJumpForward, CapabilityJumpBackward,
		CapabilityLike, CapabilityDislike, CapabilityBookmark:
		return c, true
	}
	return "", false
}

// Outbound event names.
const (
	EventPlaybackQueueEnded   = "playback-queue-ended"
	EventPlaybackState        = "playback-state"
	EventPlaybackError        = "playback-error"
	EventPlaybackTrackChanged = "playback-track-changed"

	EventRemotePlayPause    = "remote-play-pause"
	EventRemoteStop         = "remote-stop"
	EventRemotePause        = "remote-pause"
	EventRemotePlay         = "remote-play"
	EventRemoteDuck         = "remote-duck"
	EventRemoteNext         = "remote-next"
	EventRemoteSeek         = "remote-seek"
	EventRemotePrevious     = "remote-previous"
	EventRemoteJumpForward  = "remote-jump-forward"
	EventRemoteJumpBackward = "remote-jump-backward"
	EventRemoteLike         = "remote-like"
	EventRemoteDislike      = "remote-dislike"
	EventRemoteBookmark     = "remote-bookmark"
)

// SupportedEvents lists every event name the bridge may deliver to the host.
func SupportedEvents() []string {
	return []string{
		EventPlaybackQueueEnded,
		EventPlaybackState,
		EventPlaybackError,
		EventPlaybackTrackChanged,

		EventRemotePlayPause,
		EventRemoteStop,
		EventRemotePause,
		EventRemotePlay,
		EventRemoteDuck,
		EventRemoteNext,
		EventRemoteSeek,
		EventRemotePrevious,
		EventRemoteJumpForward,
		EventRemoteJumpBackward,
		EventRemoteLike,
		EventRemoteDislike,
		EventRemoteBookmark,
	}
}

// Constants is the table exported to the host runtime.
func Constants() map[string]string {
	return map[string]string{
		"STATE_NONE":    string(StateNone),
		"STATE_PLAYING": string(StatePlaying),
		"STATE_PAUSED":  string(StatePaused),
		"STATE_STOPPED": string(StateStopped),

		"CAPABILITY_PLAY":             string(CapabilityPlay),
		"CAPABILITY_PLAY_FROM_ID":     capabilityNoop,
		"CAPABILITY_PLAY_FROM_SEARCH": capabilityNoop,
		"CAPABILITY_PAUSE":            string(CapabilityPause),
		"CAPABILITY_STOP":             string(CapabilityStop),
		"CAPABILITY_SEEK_TO":          string(CapabilitySeek),
		"CAPABILITY_SKIP":             capabilityNoop,
		"CAPABILITY_SKIP_TO_NEXT":     string(CapabilityNext),
		"CAPABILITY_SKIP_TO_PREVIOUS": string(CapabilityPrevious),
		"CAPABILITY_SET_RATING":       capabilityNoop,
		"CAPABILITY_JUMP_FORWARD":     string(CapabilityJumpForward),
		"CAPABILITY_JUMP_BACKWARD":    string(CapabilityJumpBackward),
		"CAPABILITY_LIKE":             string(CapabilityLike),
		"CAPABILITY_DISLIKE":          string(CapabilityDislike),
		"CAPABILITY_BOOKMARK":         string(CapabilityBookmark),
	}
}

// Event payloads.

type SeekEvent struct {
	Position float64 `json:"position"`
}

type JumpEvent struct {
	Interval float64 `json:"interval"`
}

type DuckEvent struct {
	Paused    bool `json:"paused"`
	Permanent bool `json:"permanent,omitempty"`
}
