package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"time"

	"github.com/boxes-ltd/imaging"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/supersonic-app/trackplayer-bridge/backend/util"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

var (
	ErrArtworkNotFound = errors.New("artwork file does not exist")
	ErrArtworkTooLarge = errors.New("artwork exceeds size limit")
)

// ArtworkResolver loads artwork images from local files or remote URLs.
// Decoded images are downscaled to the configured thumbnail size and
// kept in an in-memory cache keyed by URL.
type ArtworkResolver struct {
	cfg    ArtworkConfig
	client *retryablehttp.Client
	cache  *ImageCache
	logger *zap.Logger
}

func NewArtworkResolver(ctx context.Context, cfg ArtworkConfig, logger *zap.Logger) *ArtworkResolver {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	client.Logger = zapLeveledLogger{logger.Sugar()}

	cache := &ImageCache{
		MinSize:    cfg.CacheMinSize,
		MaxSize:    cfg.CacheMaxSize,
		DefaultTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
	cache.Init(ctx, time.Minute)

	return &ArtworkResolver{
		cfg:    cfg,
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Resolve loads the image at u. It returns exactly once; a cancelled ctx
// aborts a remote transfer with ctx.Err().
func (r *ArtworkResolver) Resolve(ctx context.Context, u *MediaURL, headers map[string]string) (image.Image, error) {
	if u == nil || u.Value == nil {
		return nil, ErrInvalidMediaURL
	}
	key := u.String()
	if img, err := r.cache.GetResetTTL(key, true); err == nil {
		return img, nil
	}

	var (
		img image.Image
		err error
	)
	if u.IsLocal {
		img, err = r.loadLocal(u.Path())
	} else {
		img, err = r.fetchRemote(ctx, key, headers)
	}
	if err != nil {
		return nil, err
	}
	if !ValidImage(img) {
		return nil, fmt.Errorf("artwork %s: empty image", key)
	}
	img = r.fit(img)
	r.cache.Set(key, img)
	return img, nil
}

// ClearCache drops every cached image.
func (r *ArtworkResolver) ClearCache() {
	r.cache.Clear()
}

func (r *ArtworkResolver) loadLocal(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtworkNotFound, path)
		}
		return nil, err
	}
	return imaging.Open(path, imaging.AutoOrientation(true))
}

func (r *ArtworkResolver) fetchRemote(ctx context.Context, url string, headers map[string]string) (image.Image, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork %s: HTTP status %d", url, resp.StatusCode)
	}

	maxBytes := int64(r.cfg.MaxSizeMB) * 1_048_576
	if resp.ContentLength > maxBytes {
		return nil, ErrArtworkTooLarge
	}
	data, err := util.ReadAllLimit(ctx, resp.Body, maxBytes)
	if errors.Is(err, util.ErrTooLarge) {
		return nil, ErrArtworkTooLarge
	} else if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

func (r *ArtworkResolver) fit(img image.Image) image.Image {
	size := r.cfg.ThumbnailSize
	b := img.Bounds()
	if size <= 0 || (b.Dx() <= size && b.Dy() <= size) {
		return img
	}
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// ValidImage reports whether img carries image data that can be displayed.
func ValidImage(img image.Image) bool {
	return img != nil && !img.Bounds().Empty()
}

// zapLeveledLogger adapts zap to retryablehttp.LeveledLogger.
type zapLeveledLogger struct {
	l *zap.SugaredLogger
}

func (z zapLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	z.l.Errorw(msg, keysAndValues...)
}

func (z zapLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z zapLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.l.Debugw(msg, keysAndValues...)
}

func (z zapLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.l.Warnw(msg, keysAndValues...)
}
