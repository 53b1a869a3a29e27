// Package log provides logger providers for CogniBoost components.
//
// This file wires the Logger interface to concrete backends. Two providers
// are available: a log/slog-backed provider (the default, JSON output) and
// a rs/zerolog-backed provider used by the CLI for human-readable console
// output. Library code never talks to a backend directly; it asks the
// package-level provider for a named logger.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	providerMu      sync.RWMutex
	currentProvider LoggerProvider = NewSlogProvider(slog.LevelInfo)
)

// SetProvider replaces the package-level logger provider.
// All subsequent GetLogger / GetLoggerWithName calls go through it.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p != nil {
		currentProvider = p
	}
}

// GetLogger returns the default logger from the current provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return currentProvider.GetLogger()
}

// GetLoggerWithName returns a component-named logger from the current provider.
//
// Example:
//
//	logger := log.GetLoggerWithName("ensemble.forest")
//	logger.Info("Training started", log.SamplesKey, n)
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return currentProvider.GetLoggerWithName(name)
}

// ---------------------------------------------------------------------------
// slog-backed provider (default)
// ---------------------------------------------------------------------------

// SlogProvider creates loggers backed by Go's log/slog package.
type SlogProvider struct {
	mu     sync.RWMutex
	level  *slog.LevelVar
	logger *slog.Logger
}

// NewSlogProvider creates a provider that emits JSON records to stderr
// through the stacktrace-formatting handler.
func NewSlogProvider(level slog.Level) *SlogProvider {
	return NewSlogProviderWithWriter(os.Stderr, level)
}

// NewSlogProviderWithWriter creates a provider writing to the given writer.
// Useful for tests that capture output.
func NewSlogProviderWithWriter(w io.Writer, level slog.Level) *SlogProvider {
	levelVar := &slog.LevelVar{}
	levelVar.Set(level)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})
	return &SlogProvider{
		level:  levelVar,
		logger: slog.New(WrapByErrFmtHandler(handler)),
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &slogLogger{logger: p.logger}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &slogLogger{logger: p.logger.With(ComponentKey, name)}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level.Set(slog.Level(level))
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.logger.Debug(msg, fields...) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.logger.Info(msg, fields...) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.logger.Warn(msg, fields...) }
func (l *slogLogger) Error(msg string, fields ...any) { l.logger.Error(msg, fields...) }

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(fields...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.Enabled(ctx, slog.Level(level))
}

// ---------------------------------------------------------------------------
// zerolog-backed provider
// ---------------------------------------------------------------------------

// ZerologProvider creates loggers backed by rs/zerolog. The CLI uses it
// with a console writer; services can pass any zerolog.Logger.
type ZerologProvider struct {
	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewZerologProvider creates a zerolog-backed provider writing console
// output to stderr at the given level.
func NewZerologProvider(level slog.Level) *ZerologProvider {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(toZerologLevel(level)).
		With().Timestamp().Logger()
	return &ZerologProvider{logger: zl}
}

// NewZerologProviderFromLogger wraps an existing zerolog.Logger.
func NewZerologProviderFromLogger(zl zerolog.Logger) *ZerologProvider {
	return &ZerologProvider{logger: zl}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.logger}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.logger.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = p.logger.Level(toZerologLevel(slog.Level(level)))
}

// WarnFunc returns a function suitable for errors.SetZerologWarnFunc:
// warnings that implement zerolog.LogObjectMarshaler are embedded as
// structured objects, everything else is logged by message.
func (p *ZerologProvider) WarnFunc() func(warning error) {
	return func(warning error) {
		p.mu.RLock()
		defer p.mu.RUnlock()
		ev := p.logger.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.Object("warning", m).Msg(warning.Error())
			return
		}
		ev.Msg(warning.Error())
	}
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.logger.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.logger.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.logger.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.logger.Error(), msg, fields) }

// emit folds key-value pairs into the event. Odd trailing values and
// non-string keys are emitted under a catch-all key rather than dropped.
func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			ev = ev.Interface("field", fields[i])
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	if len(fields)%2 != 0 {
		ev = ev.Interface("field", fields[len(fields)-1])
	}
	ev.Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			ctx = ctx.Interface(key, fields[i+1])
		}
	}
	return &zerologLogger{logger: ctx.Logger()}
}

func (l *zerologLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.GetLevel() <= toZerologLevel(slog.Level(level))
}

func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level <= slog.LevelDebug:
		return zerolog.DebugLevel
	case level <= slog.LevelInfo:
		return zerolog.InfoLevel
	case level <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
