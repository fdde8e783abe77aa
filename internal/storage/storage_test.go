package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelsapp/reels-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewLocalStorage(dir, "http://localhost:8080/media/")
	require.NoError(t, err)

	ctx := context.Background()
	key := "reels/abc/def/original.mp4"
	url, err := fs.PutObject(ctx, key, []byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/reels/abc/def/original.mp4", url)

	data, err := os.ReadFile(filepath.Join(dir, "reels", "abc", "def", "original.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	require.NoError(t, fs.DeleteObject(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "reels", "abc", "def", "original.mp4"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing object is not an error
	assert.NoError(t, fs.DeleteObject(ctx, key))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	fs, err := NewLocalStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "reels/../../x", "", "/abs"} {
		_, err := fs.PutObject(context.Background(), key, []byte("x"), "")
		assert.Error(t, err, key)
	}
}

func TestLocalStorageHasNoPresignedUploads(t *testing.T) {
	fs, err := NewLocalStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	_, err = fs.GeneratePresignedUploadURL(context.Background(), "reels/a.mp4", "video/mp4", 0)
	assert.ErrorIs(t, err, ErrPresignUnsupported)
}

func TestUploadTemplate(t *testing.T) {
	base, err := NewLocalStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)
	fs := WithUploadTemplate(base, "https://uploads.example.com/{key}?ct={contentType}")

	url, err := fs.GeneratePresignedUploadURL(context.Background(), "reels/u 1/r/original.mp4", "video/mp4", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://uploads.example.com/reels/u%201/r/original.mp4?ct=video%2Fmp4", url)

	// Everything else still reaches the wrapped backend
	stored, err := fs.PutObject(context.Background(), "reels/x.mp4", []byte("x"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/reels/x.mp4", stored)
}

func TestNewSelectsDriver(t *testing.T) {
	fs, err := New(config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), PublicBaseURL: "http://x"}, config.S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &localStorage{}, fs)

	fs, err = New(config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), SignedURLTemplate: "https://u/{key}"}, config.S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &templateStorage{}, fs)

	_, err = New(config.StorageConfig{Driver: "ftp"}, config.S3Config{})
	assert.Error(t, err)
}
