// Package logger provides the process-wide logging facility for kubeschema.
// It wraps a zap sugared logger behind package-level functions so callers do
// not have to thread a logger through every constructor.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.SugaredLogger
	once sync.Once
)

// Initialize sets up the package logger. Structured JSON output by default;
// human-readable console output when the KUBESCHEMA_DEBUG environment
// variable is set. Safe to call more than once; only the first call wins.
func Initialize() {
	once.Do(func() {
		var cfg zap.Config
		if os.Getenv("KUBESCHEMA_DEBUG") != "" {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		// Logs go to stderr so stdout stays clean for command output.
		cfg.OutputPaths = []string{"stderr"}

		zl, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			zl = zap.NewNop()
		}
		log = zl.Sugar()
	})
}

// ensure lazily initializes the logger for callers that log before main
// has run Initialize (tests, package init).
func ensure() *zap.SugaredLogger {
	if log == nil {
		Initialize()
	}
	return log
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { ensure().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { ensure().Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { ensure().Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { ensure().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level and exits.
func Fatalf(format string, args ...any) { ensure().Fatalf(format, args...) }

// Debug logs a message at debug level.
func Debug(args ...any) { ensure().Debug(args...) }

// Info logs a message at info level.
func Info(args ...any) { ensure().Info(args...) }

// Warn logs a message at warn level.
func Warn(args ...any) { ensure().Warn(args...) }

// Error logs a message at error level.
func Error(args ...any) { ensure().Error(args...) }
