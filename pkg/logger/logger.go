// Package logger provides process-wide structured logging for Oluso.
//
// It wraps a zap.SugaredLogger behind package-level functions so that every
// package can log without threading a logger through constructors. Call
// Initialize once at process startup; before that, a sane development
// default is used so tests and early-init code never crash on a nil logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	log *zap.SugaredLogger
)

func init() {
	log = mustDevelopment()
}

func mustDevelopment() *zap.SugaredLogger {
	l, err := zap.NewDevelopment()
	if err != nil {
		// Development config construction only fails on a malformed encoder
		// config, which never happens with zap's built-in preset.
		panic(err)
	}
	return l.Sugar()
}

// Options configures Initialize.
type Options struct {
	// Production selects the JSON production encoder instead of the
	// human-readable development one.
	Production bool

	// Level is the minimum enabled log level name (debug, info, warn, error).
	// Empty means "info" for production and "debug" for development.
	Level string
}

// Initialize replaces the process-wide logger. Safe to call once at startup;
// subsequent calls replace the logger for the remainder of the process.
func Initialize(opts Options) error {
	var cfg zap.Config
	if opts.Production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if opts.Level != "" {
		lvl, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return err
		}
		cfg.Level = lvl
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
	return nil
}

// NewLogr adapts the current logger into a *zap.SugaredLogger for
// subsystems (e.g. controller-style libraries) that want one directly.
func NewLogr() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs at debug level.
func Debug(args ...interface{}) { current().Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) { current().Debugf(format, args...) }

// Debugw logs a message with structured key/value pairs at debug level.
func Debugw(msg string, kv ...interface{}) { current().Debugw(msg, kv...) }

// Info logs at info level.
func Info(args ...interface{}) { current().Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) { current().Infof(format, args...) }

// Infow logs a message with structured key/value pairs at info level.
func Infow(msg string, kv ...interface{}) { current().Infow(msg, kv...) }

// Warn logs at warn level.
func Warn(args ...interface{}) { current().Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) { current().Warnf(format, args...) }

// Warnw logs a message with structured key/value pairs at warn level.
func Warnw(msg string, kv ...interface{}) { current().Warnw(msg, kv...) }

// Error logs at error level.
func Error(args ...interface{}) { current().Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) { current().Errorf(format, args...) }

// Errorw logs a message with structured key/value pairs at error level.
func Errorw(msg string, kv ...interface{}) { current().Errorw(msg, kv...) }

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(format string, args ...interface{}) { current().Fatalf(format, args...) }
