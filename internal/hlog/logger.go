// Package hlog provides the structured logging context used throughout
// holo: a context-carried logrus entry, in the same style as a registry
// server threads a request-scoped logger through its handler chain.
package hlog

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   = logrus.StandardLogger().WithField("component", "holo")
	defaultLoggerMu sync.RWMutex
)

// Logger is the leveled-logging interface carried on a context.Context.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	WithError(err error) *logrus.Entry
	WithField(key string, value any) *logrus.Entry
}

type loggerKey struct{}

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields returns a context whose logger has the given fields attached,
// deriving from whatever logger is already on ctx (or the default).
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, get(ctx).WithFields(fields))
}

// Get returns the logger carried by ctx, or the package default if none is
// present.
func Get(ctx context.Context) Logger {
	return get(ctx)
}

// SetDefault replaces the base logger new contexts fall back to. Useful for
// tests that want to capture log output.
func SetDefault(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
}

func get(ctx context.Context) *logrus.Entry {
	if v := ctx.Value(loggerKey{}); v != nil {
		if entry, ok := v.(Logger); ok {
			if e, ok := entry.(*logrus.Entry); ok {
				return e
			}
			// Logger implementations that aren't *logrus.Entry still need a
			// concrete entry for field chaining; fall through to default.
		}
	}

	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}
