package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelsapp/reels-api/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextCarriesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	mu.Lock()
	prev := appLogger
	appLogger = l
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		appLogger = prev
		mu.Unlock()
	})

	ctx := ContextWithUserID(ContextWithRequestID(context.Background(), "req-1"), "user-9")
	WithContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":"user-9"`)
}

func TestInitWritesRotatingFile(t *testing.T) {
	prev := Get()
	t.Cleanup(func() {
		mu.Lock()
		appLogger = prev
		mu.Unlock()
	})

	file := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(config.LogConfig{
		Level:     "debug",
		Format:    "json",
		Output:    "file",
		File:      file,
		MaxSizeMB: 1,
	}))
	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	WithModule("test").Info("written")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"test"`)
}
