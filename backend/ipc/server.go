package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/supersonic-app/trackplayer-bridge/backend/remote"
	"github.com/supersonic-app/trackplayer-bridge/backend/session"
	"go.uber.org/zap"
)

// PlayerHandler is the host-facing bridge API.
type PlayerHandler interface {
	Reset() error
	UpdateOptions(raw map[string]any) error
	SetNowPlaying(raw map[string]any) error
	UpdatePlayback(raw map[string]any) error
	CurrentTrack() (map[string]any, error)
	Constants() map[string]string
	SupportedEvents() []string
}

type SessionHandler interface {
	Post(session.Interruption)
}

type RemoteHandler interface {
	Dispatch(remote.Event) remote.Status
}

// codedError is implemented by rejections that carry a host error code.
type codedError interface {
	error
	ErrorCode() string
	ErrorDomain() string
}

const (
	publishedEventPrefix = "playback-"
	writeWait            = 10 * time.Second
)

type serverImpl struct {
	player   PlayerHandler
	sessions SessionHandler
	commands RemoteHandler
	hub      *EventHub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer returns the IPC HTTP server. Event streams are closed when
// the server shuts down.
func NewServer(player PlayerHandler, sessions SessionHandler, commands RemoteHandler, hub *EventHub, logger *zap.Logger) *http.Server {
	s := &serverImpl{
		player:   player,
		sessions: sessions,
		commands: commands,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// the socket is local to the user; there is no browser origin to check
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	srv := &http.Server{
		Handler:           s.createHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(hub.Close)
	return srv
}

func (s *serverImpl) createHandler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("The given path is not valid"))
	})
	m.HandleFunc("GET "+PingPath, s.makeSimpleEndpointHandler(func() error { return nil }))
	m.HandleFunc("GET "+ConstantsPath, func(w http.ResponseWriter, r *http.Request) {
		s.writeResult(w, ConstantsResponse{
			Constants: s.player.Constants(),
			Events:    s.player.SupportedEvents(),
		})
	})
	m.HandleFunc("POST "+ResetPath, s.makeSimpleEndpointHandler(s.player.Reset))
	m.HandleFunc("POST "+OptionsPath, s.makeRawEndpointHandler(s.player.UpdateOptions))
	m.HandleFunc("POST "+NowPlayingPath, s.makeRawEndpointHandler(s.player.SetNowPlaying))
	m.HandleFunc("POST "+PlaybackPath, s.makeRawEndpointHandler(s.player.UpdatePlayback))
	m.HandleFunc("GET "+NowPlayingPath, func(w http.ResponseWriter, r *http.Request) {
		track, err := s.player.CurrentTrack()
		if err != nil {
			s.writeErr(w, err)
			return
		}
		s.writeResult(w, track)
	})
	m.HandleFunc("POST "+InterruptionPath, func(w http.ResponseWriter, r *http.Request) {
		var req InterruptionRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeBadRequest(w, err)
			return
		}
		i, err := req.Interruption()
		if err != nil {
			s.writeBadRequest(w, err)
			return
		}
		s.sessions.Post(i)
		s.writeOK(w)
	})
	m.HandleFunc("POST "+RemoteCommandPath, func(w http.ResponseWriter, r *http.Request) {
		var req RemoteCommandRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeBadRequest(w, err)
			return
		}
		cmd, ok := remote.ParseCommand(req.Command)
		if !ok {
			s.writeBadRequest(w, fmt.Errorf("unknown remote command %q", req.Command))
			return
		}
		e := remote.Event{Command: cmd}
		if req.Position != nil {
			e.PositionTime, e.HasPosition = *req.Position, true
		}
		s.writeResult(w, RemoteCommandResponse{Status: s.commands.Dispatch(e).String()})
	})
	m.HandleFunc("POST "+EventsPath, func(w http.ResponseWriter, r *http.Request) {
		var e Event
		if err := decodeBody(r, &e); err != nil {
			s.writeBadRequest(w, err)
			return
		}
		if !strings.HasPrefix(e.Name, publishedEventPrefix) || !slices.Contains(s.player.SupportedEvents(), e.Name) {
			s.writeBadRequest(w, fmt.Errorf("event %q cannot be published", e.Name))
			return
		}
		s.hub.Publish(e)
		s.writeOK(w)
	})
	m.HandleFunc("GET "+EventsPath, s.streamEvents)
	return m
}

func (s *serverImpl) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("event stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	// the stream is one-way; reading only detects the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				s.logger.Debug("event stream write failed", zap.Stringer("subscriber", id), zap.Error(err))
				return
			}
		}
	}
}

func (s *serverImpl) makeSimpleEndpointHandler(f func() error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeSimpleResponse(w, f())
	}
}

func (s *serverImpl) makeRawEndpointHandler(f func(map[string]any) error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := decodeBody(r, &raw); err != nil {
			s.writeBadRequest(w, err)
			return
		}
		s.writeSimpleResponse(w, f(raw))
	}
}

// decodeBody decodes the JSON request body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

func (s *serverImpl) writeSimpleResponse(w http.ResponseWriter, err error) {
	if err == nil {
		s.writeOK(w)
	} else {
		s.writeErr(w, err)
	}
}

func (s *serverImpl) writeOK(w http.ResponseWriter) {
	s.write(w, http.StatusOK, Response{})
}

func (s *serverImpl) writeResult(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.write(w, http.StatusOK, Response{Result: b})
}

func (s *serverImpl) writeBadRequest(w http.ResponseWriter, err error) {
	s.write(w, http.StatusBadRequest, Response{Error: err.Error()})
}

func (s *serverImpl) writeErr(w http.ResponseWriter, err error) {
	r := Response{Error: err.Error()}
	status := http.StatusInternalServerError
	var ce codedError
	if errors.As(err, &ce) {
		r.Code, r.Domain = ce.ErrorCode(), ce.ErrorDomain()
		status = http.StatusUnprocessableEntity
	}
	s.write(w, status, r)
}

func (s *serverImpl) write(w http.ResponseWriter, status int, r Response) {
	b, err := json.Marshal(&r)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
