// Package logging builds the process zap logger and adapts it to the
// key/value Logger interfaces used by the services.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at level (debug, info, warn, error).
// An empty level means info.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.DisableStacktrace = lvl > zapcore.DebugLevel
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// Adapter exposes a zap logger through Debug/Info/Warn/Error(msg, kv...).
type Adapter struct {
	s *zap.SugaredLogger
}

// Adapt wraps l. A nil logger discards everything.
func Adapt(l *zap.Logger) Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return Adapter{s: l.Sugar()}
}

// Named returns an adapter whose entries carry the given logger name.
func (a Adapter) Named(name string) Adapter { return Adapter{s: a.s.Named(name)} }

func (a Adapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a Adapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a Adapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a Adapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }
