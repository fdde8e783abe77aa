// Package logger wires logrus with optional lumberjack file rotation and
// carries request-scoped fields through context.Context.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"reelsapp/reels-api/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	userIDKey    contextKey = "userID"
)

var (
	appLogger = logrus.New()
	mu        sync.RWMutex
)

// Init configures the application logger. Safe to call once at startup;
// before Init the logger writes text at info level to stderr.
func Init(cfg config.LogConfig) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	if cfg.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))

	mu.Lock()
	appLogger = l
	mu.Unlock()
	return nil
}

// Get returns the application logger.
func Get() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return appLogger
}

// WithModule returns an entry tagged with the module name ("reels", "feed", "storage").
func WithModule(module string) *logrus.Entry {
	return Get().WithField("module", module)
}

// WithContext returns an entry carrying the request id and user id stored in ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := Get().WithContext(ctx)
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		entry = entry.WithField("request_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		entry = entry.WithField("user_id", id)
	}
	return entry
}

// ContextWithRequestID stores the request id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUserID stores the authenticated user id for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
