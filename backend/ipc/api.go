package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/supersonic-app/trackplayer-bridge/backend/session"
)

const (
	PingPath          = "/ping"
	ConstantsPath     = "/constants"
	ResetPath         = "/player/reset"
	OptionsPath       = "/player/options"
	NowPlayingPath    = "/player/now-playing" // GET: current track, POST: set now playing
	PlaybackPath      = "/player/playback"
	InterruptionPath  = "/session/interruption"
	RemoteCommandPath = "/remote/command"
	EventsPath        = "/events" // GET: websocket stream, POST: publish
)

// Response is the body of every non-streaming reply. An empty Error
// means the call resolved.
type Response struct {
	Error  string          `json:"error"`
	Code   string          `json:"code,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Error is a rejected call as seen by the client.
type Error struct {
	Code    string
	Message string
	Domain  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) ErrorCode() string { return e.Code }

func (e *Error) ErrorDomain() string { return e.Domain }

type ConstantsResponse struct {
	Constants map[string]string `json:"constants"`
	Events    []string          `json:"events"`
}

// Event is one message on the outbound event stream.
type Event struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"body,omitempty"`
}

// InterruptionRequest injects an audio-session interruption.
type InterruptionRequest struct {
	Type         string `json:"type"`             // "began" or "ended"
	Reason       string `json:"reason,omitempty"` // "default", "appWasSuspended", "builtInMicMuted"
	WasSuspended bool   `json:"wasSuspended,omitempty"`
	// ShouldResume is only read for ended interruptions. Absent means
	// the interruption carried no options.
	ShouldResume *bool `json:"shouldResume,omitempty"`
}

func (r InterruptionRequest) Interruption() (session.Interruption, error) {
	var i session.Interruption
	switch r.Type {
	case "began":
		i.Type = session.InterruptionBegan
	case "ended":
		i.Type = session.InterruptionEnded
	default:
		return i, fmt.Errorf("unknown interruption type %q", r.Type)
	}
	switch r.Reason {
	case "", "default":
		i.Reason = session.ReasonDefault
	case "appWasSuspended":
		i.Reason = session.ReasonAppWasSuspended
	case "builtInMicMuted":
		i.Reason = session.ReasonBuiltInMicMuted
	default:
		return i, fmt.Errorf("unknown interruption reason %q", r.Reason)
	}
	i.WasSuspended = r.WasSuspended
	if r.ShouldResume != nil {
		i.HasOptions = true
		i.ShouldResume = *r.ShouldResume
	}
	return i, nil
}

// RemoteCommandRequest delivers a command as if it came from the OS.
type RemoteCommandRequest struct {
	Command  string   `json:"command"`
	Position *float64 `json:"position,omitempty"`
}

type RemoteCommandResponse struct {
	Status string `json:"status"`
}
