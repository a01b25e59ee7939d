// Package logging is the connector's centralized zap wrapper, grounded on
// internal/infra/logger: an AtomicLevel for runtime level changes, a mutex
// guarding the shared core, and console encoding by default. Unlike the
// teacher, it wires github.com/natefinch/lumberjack as an optional rotating
// file sink instead of leaving it unused in go.mod.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func consoleWriter() *os.File { return os.Stdout }

var (
	mu       sync.Mutex
	log      *zap.Logger
	level    = zap.NewAtomicLevelAt(zap.InfoLevel)
	fileSink *lumberjack.Logger
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rebuildLocked recreates the shared logger from the current level and
// optional rotating file sink. Caller must hold mu.
func rebuildLocked() {
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(consoleWriter())), level)}
	if fileSink != nil {
		jsonEncoder := zapcore.NewJSONEncoder(encoderConfig())
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(fileSink), level))
	}
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init sets the console log level ("debug", "info", "warn", "error";
// defaults to info on anything else) and, when path is non-empty, adds a
// rotating JSON file sink at path via lumberjack.
func Init(levelName, path string, maxSizeMB, maxBackups, maxAgeDays int) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(levelName) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	if path != "" {
		fileSink = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
	} else {
		fileSink = nil
	}

	rebuildLocked()
}

// Logger returns the shared logger, lazily building a console-only one on
// first use if Init was never called.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		rebuildLocked()
	}
	return log
}

// Named returns a child logger scoped to the given component, e.g.
// logging.Named("supervisor").
func Named(component string) *zap.Logger { return Logger().Named(component) }
