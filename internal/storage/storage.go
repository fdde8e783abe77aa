package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelsapp/reels-api/internal/config"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrPresignUnsupported is returned by backends that cannot hand out
// direct-to-storage upload URLs. Callers fall back to the local transfer endpoint.
var ErrPresignUnsupported = errors.New("storage backend does not support presigned uploads")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a URL for downloading/viewing an object.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// PutObject stores body under objectKey and returns a URL the object can be fetched from.
	PutObject(ctx context.Context, objectKey string, body []byte, contentType string) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// New builds the configured storage backend, wrapped with the signed-URL
// template when one is configured.
func New(cfg config.StorageConfig, s3cfg config.S3Config) (FileStorage, error) {
	var (
		fs  FileStorage
		err error
	)
	switch cfg.Driver {
	case "s3":
		fs, err = NewS3Storage(s3cfg)
	case "local", "":
		fs, err = NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.SignedURLTemplate != "" {
		fs = WithUploadTemplate(fs, cfg.SignedURLTemplate)
	}
	return fs, nil
}
