package util

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "config.toml")
	dst := filepath.Join(dir, "config.toml.bak")
	require.NoError(t, os.WriteFile(src, []byte("[Logging]\n"), 0600))
	require.NoError(t, os.WriteFile(dst, []byte("stale backup that is longer"), 0644))

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "[Logging]\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestReadAllLimit(t *testing.T) {
	data, err := ReadAllLimit(context.Background(), strings.NewReader("abcd"), 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))

	_, err = ReadAllLimit(context.Background(), strings.NewReader("abcde"), 4)
	assert.ErrorIs(t, err, ErrTooLarge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadAllLimit(ctx, strings.NewReader("abcd"), 4)
	assert.ErrorIs(t, err, context.Canceled)
}
