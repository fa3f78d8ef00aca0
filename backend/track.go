package backend

import (
	"context"
	"image"

	"github.com/supersonic-app/trackplayer-bridge/sharedutil"
)

// DefaultTrackField is used for a track's id, title and artist when the
// host omits them.
const DefaultTrackField = "eSound"

// Track is the metadata record of the item currently presented to the OS.
type Track struct {
	ID     string
	Title  string
	Artist string

	Album          *string
	Date           *string
	Genre          *string
	Description    *string
	Duration       *float64
	Headers        map[string]string
	Artwork        *MediaURL
	PitchAlgorithm *string

	raw map[string]any
}

// NewTrack builds a Track from the raw keyed payload supplied by the host.
func NewTrack(raw map[string]any) (*Track, error) {
	p, err := DecodeTrackPayload(raw)
	if err != nil {
		return nil, err
	}
	art, err := ParseMediaURL(p.Artwork)
	if err != nil {
		return nil, err
	}
	t := &Track{
		ID:             valueOr(p.ID, DefaultTrackField),
		Title:          valueOr(p.Title, DefaultTrackField),
		Artist:         valueOr(p.Artist, DefaultTrackField),
		Album:          p.Album,
		Date:           p.Date,
		Genre:          p.Genre,
		Description:    p.Description,
		Duration:       p.Duration,
		Headers:        p.Headers,
		Artwork:        art,
		PitchAlgorithm: p.PitchAlgorithm,
		raw:            sharedutil.CopyMap(raw),
	}
	if t.raw == nil {
		t.raw = map[string]any{}
	}
	return t, nil
}

// Object returns a copy of the raw payload, including merged updates.
func (t *Track) Object() map[string]any {
	return sharedutil.CopyMap(t.raw)
}

// UpdateMetadata merges update into the track's payload and re-derives
// every field from the result. On error the track is left unchanged.
func (t *Track) UpdateMetadata(update map[string]any) error {
	merged := sharedutil.MergeMaps(t.raw, update)
	nt, err := NewTrack(merged)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}

// ArtworkHeaders returns the request headers for an artwork fetch.
// Headers given with the artwork override the track's headers.
func (t *Track) ArtworkHeaders() map[string]string {
	var artHeaders map[string]string
	if t.Artwork != nil {
		artHeaders = t.Artwork.Headers
	}
	return sharedutil.MergeMaps(t.Headers, artHeaders)
}

// ResolveArtwork loads the track's artwork image. A track without artwork
// returns (nil, nil).
func (t *Track) ResolveArtwork(ctx context.Context, r ImageResolver) (image.Image, error) {
	if t.Artwork == nil {
		return nil, nil
	}
	return r.Resolve(ctx, t.Artwork, t.ArtworkHeaders())
}

// AssetOptions returns the options handed to the playback engine when
// it opens the track's media.
func (t *Track) AssetOptions() map[string]any {
	if t.Headers == nil {
		return map[string]any{}
	}
	return map[string]any{"AVURLAssetHTTPHeaderFieldsKey": t.Headers}
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
