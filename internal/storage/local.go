package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// localStorage keeps objects on the server's disk. It backs the local-transfer
// fallback when no external storage is configured; the API serves LocalDir
// under PublicBaseURL.
type localStorage struct {
	root          string
	publicBaseURL string
}

// NewLocalStorage creates a disk-backed FileStorage rooted at dir.
func NewLocalStorage(dir, publicBaseURL string) (FileStorage, error) {
	if dir == "" {
		return nil, errors.New("local storage requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &localStorage{root: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// GeneratePresignedUploadURL is not available on disk; clients use the local transfer endpoint.
func (s *localStorage) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

// GeneratePresignedDownloadURL returns the public URL; local objects do not expire.
func (s *localStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if _, err := s.resolve(objectKey); err != nil {
		return "", err
	}
	return s.publicURL(objectKey), nil
}

func (s *localStorage) PutObject(_ context.Context, objectKey string, body []byte, _ string) (string, error) {
	target, err := s.resolve(objectKey)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	// Write to a sibling temp file first so readers never see a partial object
	tmp := target + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit object: %w", err)
	}
	return s.publicURL(objectKey), nil
}

func (s *localStorage) DeleteObject(_ context.Context, objectKey string) error {
	target, err := s.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a storage key onto a path inside root, rejecting keys that
// would escape it.
func (s *localStorage) resolve(objectKey string) (string, error) {
	cleaned := path.Clean("/" + objectKey)
	if cleaned == "/" || cleaned != "/"+objectKey {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *localStorage) publicURL(objectKey string) string {
	return s.publicBaseURL + "/" + objectKey
}
