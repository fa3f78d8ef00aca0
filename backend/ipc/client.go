package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var ErrPingFail = errors.New("ping failed")

const baseURL = "http://trackplayer"

// DialFunc opens a connection to the IPC server.
type DialFunc func(ctx context.Context) (net.Conn, error)

type Client struct {
	httpC http.Client
	dial  DialFunc
}

// Connect attempts to connect to the IPC socket as client.
func Connect() (*Client, error) {
	client := NewClient(Dial)
	if err := client.Ping(); err != nil {
		return nil, err
	}
	return client, nil
}

// NewClient returns a client whose connections are opened by dial.
func NewClient(dial DialFunc) *Client {
	return &Client{
		dial: dial,
		httpC: http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dial(ctx)
				},
			},
		},
	}
}

func (c *Client) Ping() error {
	if c.makeRequest(http.MethodGet, PingPath, nil, nil) != nil {
		return ErrPingFail
	}
	return nil
}

func (c *Client) Constants() (*ConstantsResponse, error) {
	var r ConstantsResponse
	if err := c.makeRequest(http.MethodGet, ConstantsPath, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Reset() error {
	return c.makeRequest(http.MethodPost, ResetPath, nil, nil)
}

func (c *Client) UpdateOptions(raw map[string]any) error {
	return c.makeRequest(http.MethodPost, OptionsPath, raw, nil)
}

func (c *Client) SetNowPlaying(raw map[string]any) error {
	return c.makeRequest(http.MethodPost, NowPlayingPath, raw, nil)
}

func (c *Client) UpdatePlayback(raw map[string]any) error {
	return c.makeRequest(http.MethodPost, PlaybackPath, raw, nil)
}

// CurrentTrack returns the raw current track, or nil if none is set.
func (c *Client) CurrentTrack() (map[string]any, error) {
	var track map[string]any
	if err := c.makeRequest(http.MethodGet, NowPlayingPath, nil, &track); err != nil {
		return nil, err
	}
	return track, nil
}

func (c *Client) Interrupt(req InterruptionRequest) error {
	return c.makeRequest(http.MethodPost, InterruptionPath, req, nil)
}

// RemoteCommand delivers a command as if the OS sent it and returns
// the resulting status name.
func (c *Client) RemoteCommand(req RemoteCommandRequest) (string, error) {
	var r RemoteCommandResponse
	if err := c.makeRequest(http.MethodPost, RemoteCommandPath, req, &r); err != nil {
		return "", err
	}
	return r.Status, nil
}

// Publish sends a playback event to the stream subscribers.
func (c *Client) Publish(name string, body any) error {
	e := Event{Name: name}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		e.Body = b
	}
	return c.makeRequest(http.MethodPost, EventsPath, e, nil)
}

// Subscribe streams events to fn until ctx is done or the server
// closes the stream.
func (c *Client) Subscribe(ctx context.Context, fn func(Event)) error {
	d := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return c.dial(ctx)
		},
	}
	conn, _, err := d.DialContext(ctx, "ws://trackplayer"+EventsPath, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var e Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		fn(e)
	}
}

func (c *Client) makeRequest(method, path string, body, result any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, baseURL+path, &reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("%s %s: unexpected response (%s): %w", method, path, resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || r.Error != "" {
		return &Error{Code: r.Code, Message: r.Error, Domain: r.Domain}
	}
	if result != nil && len(r.Result) > 0 {
		return json.Unmarshal(r.Result, result)
	}
	return nil
}
