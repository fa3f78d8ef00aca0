package backend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testArtworkConfig() ArtworkConfig {
	c := DefaultConfig().Artwork
	c.ThumbnailSize = 64
	c.MaxSizeMB = 1
	return c
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestResolver(t *testing.T) *ArtworkResolver {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewArtworkResolver(ctx, testArtworkConfig(), zap.NewNop())
}

func TestArtworkResolver_Remote(t *testing.T) {
	data := encodePNG(t, 16, 8)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	r := newTestResolver(t)
	u, err := ParseMediaURL(srv.URL + "/cover.png")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), u, nil)
	assert.Error(t, err)

	img, err := r.Resolve(context.Background(), u, map[string]string{"Authorization": "Bearer abc"})
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	// served from cache
	_, err = r.Resolve(context.Background(), u, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestArtworkResolver_Downscales(t *testing.T) {
	data := encodePNG(t, 256, 128)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	u, _ := ParseMediaURL(srv.URL + "/big.png")
	img, err := newTestResolver(t).Resolve(context.Background(), u, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestArtworkResolver_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2*1_048_576))
	}))
	defer srv.Close()

	u, _ := ParseMediaURL(srv.URL + "/huge.png")
	_, err := newTestResolver(t).Resolve(context.Background(), u, nil)
	assert.ErrorIs(t, err, ErrArtworkTooLarge)
}

func TestArtworkResolver_NotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	u, _ := ParseMediaURL(srv.URL + "/page.html")
	_, err := newTestResolver(t).Resolve(context.Background(), u, nil)
	assert.Error(t, err)
}

func TestArtworkResolver_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u, _ := ParseMediaURL(srv.URL + "/slow.png")
	_, err := newTestResolver(t).Resolve(ctx, u, nil)
	assert.Error(t, err)
}

func TestArtworkResolver_Local(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my cover.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 10, 10), 0644))

	r := newTestResolver(t)
	u, err := ParseMediaURL("file://" + path)
	require.NoError(t, err)
	require.True(t, u.IsLocal)
	img, err := r.Resolve(context.Background(), u, nil)
	require.NoError(t, err)
	assert.True(t, ValidImage(img))

	missing, _ := ParseMediaURL(filepath.Join(dir, "missing.png"))
	_, err = r.Resolve(context.Background(), missing, nil)
	assert.ErrorIs(t, err, ErrArtworkNotFound)
}

func TestValidImage(t *testing.T) {
	assert.False(t, ValidImage(nil))
	assert.False(t, ValidImage(image.NewRGBA(image.Rect(0, 0, 0, 0))))
	assert.True(t, ValidImage(image.NewRGBA(image.Rect(0, 0, 1, 1))))
}
