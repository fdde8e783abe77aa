package storage

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// templateStorage hands out upload URLs from an externally signed URL template
// ("https://uploads.example.com/{key}?ct={contentType}") and delegates
// everything else to the wrapped backend.
type templateStorage struct {
	FileStorage
	template string
}

// WithUploadTemplate overrides fs's upload URLs with template. Placeholders:
// {key} (path-escaped per segment) and {contentType} (query-escaped).
func WithUploadTemplate(fs FileStorage, template string) FileStorage {
	return &templateStorage{FileStorage: fs, template: template}
}

func (s *templateStorage) GeneratePresignedUploadURL(_ context.Context, objectKey string, contentType string, _ time.Duration) (string, error) {
	segments := strings.Split(objectKey, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	replacer := strings.NewReplacer(
		"{key}", strings.Join(segments, "/"),
		"{contentType}", url.QueryEscape(contentType),
	)
	return replacer.Replace(s.template), nil
}
