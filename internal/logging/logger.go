// Package logging provides structured logging for the adapter, backed
// by go.uber.org/zap. Call sites use the same Debugf/Infof/Warnf/Errorf
// shape the rest of this module's ancestor used with the standard
// library's log.Logger; the swap to zap buys typed fields via the
// With* helpers without touching any call site's signature.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors zapcore.Level, kept as a distinct type so callers
// don't need to import zapcore directly.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// AbortFunc is called by Fatalf after the fatal message has been
// logged. The default aborts the process, matching spec.md §7 ("fatal;
// the measurement is unsafe to continue"); tests substitute a hook
// that records the call instead of exiting.
type AbortFunc func()

// Config holds logging configuration.
type Config struct {
	Level  LogLevel
	Output *os.File
	Abort  AbortFunc
}

// DefaultConfig returns a sensible default configuration: info level,
// stderr output, process-aborting Fatalf.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Abort:  func() { os.Exit(1) },
	}
}

// Logger wraps a zap.SugaredLogger with an overridable fatal hook.
type Logger struct {
	sugar *zap.SugaredLogger
	abort AbortFunc
	mu    sync.Mutex
}

// NewLogger creates a new logger from the given configuration.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	abort := config.Abort
	if abort == nil {
		abort = func() { os.Exit(1) }
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		config.Level.zapLevel(),
	)
	logger := zap.New(core)

	return &Logger{
		sugar: logger.Sugar(),
		abort: abort,
	}
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Default returns the process-wide default logger, creating it on
// first use.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// SetAbort overrides the fatal hook, e.g. so a test can assert on the
// bug path (spec.md §7) without killing the test binary.
func (l *Logger) SetAbort(fn AbortFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn == nil {
		fn = func() { os.Exit(1) }
	}
	l.abort = fn
}

func (l *Logger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Fatalf logs at error severity with a "fatal" marker and then invokes
// the abort hook. It deliberately does not use zap's own Fatal level,
// which always calls os.Exit - the hook must be interceptable in tests
// (spec.md §7).
func (l *Logger) Fatalf(format string, args ...any) {
	l.sugar.Errorf("FATAL: "+format, args...)
	l.mu.Lock()
	abort := l.abort
	l.mu.Unlock()
	abort()
}

// With returns a logger whose every message carries the given
// key/value pairs as structured fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), abort: l.abort}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Global convenience functions operating on the default logger.

func Debugf(format string, args ...any) { Default().Debugf(format, args...) }
func Infof(format string, args ...any)  { Default().Infof(format, args...) }
func Warnf(format string, args ...any)  { Default().Warnf(format, args...) }
func Errorf(format string, args ...any) { Default().Errorf(format, args...) }
func Fatalf(format string, args ...any) { Default().Fatalf(format, args...) }
