package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ImageSource is an image reference supplied by the host: either a plain
// address string or an object with a uri and optional request headers
// (and, for bundled image resources, nominal dimensions).
type ImageSource struct {
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers,omitempty"`
	Width   float64           `json:"width,omitempty"`
	Height  float64           `json:"height,omitempty"`
	Scale   float64           `json:"scale,omitempty"`

	// Keyed is true when the source was supplied in object form.
	Keyed bool `json:"-"`
}

func (s *ImageSource) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*s = ImageSource{}
		return json.Unmarshal(data, &s.URI)
	}
	type plain ImageSource
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ImageSource(p)
	s.Keyed = true
	return nil
}

func (s ImageSource) MarshalJSON() ([]byte, error) {
	if !s.Keyed {
		return json.Marshal(s.URI)
	}
	type plain ImageSource
	return json.Marshal(plain(s))
}

// TrackMetadata holds the display metadata fields shared by track payloads
// and playback updates.
type TrackMetadata struct {
	Title       *string      `json:"title,omitempty"`
	Artist      *string      `json:"artist,omitempty"`
	Album       *string      `json:"album,omitempty"`
	Date        *string      `json:"date,omitempty"`
	Genre       *string      `json:"genre,omitempty"`
	Description *string      `json:"description,omitempty"`
	Duration    *float64     `json:"duration,omitempty"`
	Artwork     *ImageSource `json:"artwork,omitempty"`
}

// TrackPayload is the schema of a track supplied by the host.
type TrackPayload struct {
	ID *string `json:"id,omitempty"`
	TrackMetadata
	Headers        map[string]string `json:"headers,omitempty"`
	PitchAlgorithm *string           `json:"pitchAlgorithm,omitempty"`
}

// PlaybackProperties is the schema of a playback update.
type PlaybackProperties struct {
	TrackMetadata
	State       *string  `json:"state,omitempty"`
	ElapsedTime *float64 `json:"elapsedTime,omitempty"`
}

// FeedbackOptions configures a like/dislike/bookmark command.
type FeedbackOptions struct {
	IsActive *bool   `json:"isActive,omitempty"`
	Title    *string `json:"title,omitempty"`
}

// Options is the schema of a capabilities/options update.
type Options struct {
	Capabilities     []string         `json:"capabilities,omitempty"`
	JumpInterval     *float64         `json:"jumpInterval,omitempty"`
	LikeOptions      *FeedbackOptions `json:"likeOptions,omitempty"`
	DislikeOptions   *FeedbackOptions `json:"dislikeOptions,omitempty"`
	BookmarkOptions  *FeedbackOptions `json:"bookmarkOptions,omitempty"`
	PlaceholderImage *ImageSource     `json:"placeholderImage,omitempty"`
}

// DecodeTrackPayload validates a raw keyed object against the track schema.
func DecodeTrackPayload(raw map[string]any) (TrackPayload, error) {
	var p TrackPayload
	err := decodeRaw(raw, &p)
	return p, err
}

// DecodePlaybackProperties validates a raw keyed object against the
// playback update schema.
func DecodePlaybackProperties(raw map[string]any) (PlaybackProperties, error) {
	var p PlaybackProperties
	err := decodeRaw(raw, &p)
	return p, err
}

// DecodeOptions validates a raw keyed object against the options schema.
func DecodeOptions(raw map[string]any) (Options, error) {
	var o Options
	err := decodeRaw(raw, &o)
	return o, err
}

func decodeRaw(raw map[string]any, v any) error {
	if raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	return nil
}

// ArtworkSource is the track artwork reference. It shares the
// string-or-object form of ImageSource.
type ArtworkSource = ImageSource
