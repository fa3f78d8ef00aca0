package util

import (
	"context"
	"errors"
	"io"
)

var ErrTooLarge = errors.New("content exceeds size limit")

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// NewCancellableReader returns a reader that fails with ctx's error
// once ctx is done.
func NewCancellableReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

// ReadAllLimit reads r to EOF unless ctx is cancelled first. Content
// longer than maxBytes is rejected with ErrTooLarge.
func ReadAllLimit(ctx context.Context, r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(NewCancellableReader(ctx, io.LimitReader(r, maxBytes+1)))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
