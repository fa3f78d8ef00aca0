package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrack_Defaults(t *testing.T) {
	tr, err := NewTrack(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTrackField, tr.ID)
	assert.Equal(t, DefaultTrackField, tr.Title)
	assert.Equal(t, DefaultTrackField, tr.Artist)
	assert.Nil(t, tr.Album)
	assert.Nil(t, tr.Artwork)
	assert.Empty(t, tr.Object())
}

func TestNewTrack_Fields(t *testing.T) {
	raw := map[string]any{
		"id":       "1",
		"title":    "Song",
		"artist":   "Band",
		"album":    "Record",
		"duration": 180.0,
		"headers":  map[string]any{"Authorization": "t"},
		"artwork":  map[string]any{"uri": "https://x/a.jpg", "headers": map[string]any{"Authorization": "a"}},
	}
	tr, err := NewTrack(raw)
	require.NoError(t, err)
	assert.Equal(t, "Song", tr.Title)
	assert.Equal(t, "Record", *tr.Album)
	assert.Equal(t, 180.0, *tr.Duration)
	require.NotNil(t, tr.Artwork)
	assert.False(t, tr.Artwork.IsLocal)
	assert.Equal(t, "a", tr.ArtworkHeaders()["Authorization"])
	assert.Equal(t, map[string]any{"AVURLAssetHTTPHeaderFieldsKey": map[string]string{"Authorization": "t"}}, tr.AssetOptions())
	assert.Equal(t, raw, tr.Object())
}

func TestNewTrack_Invalid(t *testing.T) {
	_, err := NewTrack(map[string]any{"title": false})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = NewTrack(map[string]any{"artwork": map[string]any{"headers": map[string]any{}}})
	assert.ErrorIs(t, err, ErrMissingURI)
}

func TestTrack_UpdateMetadata(t *testing.T) {
	tr, err := NewTrack(map[string]any{"title": "A", "artist": "B"})
	require.NoError(t, err)

	require.NoError(t, tr.UpdateMetadata(map[string]any{"artist": "C", "album": "D"}))
	assert.Equal(t, "A", tr.Title)
	assert.Equal(t, "C", tr.Artist)
	assert.Equal(t, "D", *tr.Album)
	assert.Equal(t, map[string]any{"title": "A", "artist": "C", "album": "D"}, tr.Object())

	err = tr.UpdateMetadata(map[string]any{"title": "Z", "duration": "long"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, "A", tr.Title)
}

func TestTrack_ObjectIsCopy(t *testing.T) {
	tr, err := NewTrack(map[string]any{"title": "A"})
	require.NoError(t, err)
	obj := tr.Object()
	obj["title"] = "mutated"
	assert.Equal(t, "A", tr.Object()["title"])
}

func TestTrack_AssetOptionsWithoutHeaders(t *testing.T) {
	tr, err := NewTrack(nil)
	require.NoError(t, err)
	assert.Empty(t, tr.AssetOptions())
}
