// Package debug holds verbose dump helpers for connector development: a
// DEBUG switch gating a set of thin zap wrappers, plus a github.com/kr/pretty
// dump of status and message transitions.
package debug

import (
	"fmt"

	"github.com/kr/pretty"
	"go.uber.org/zap"

	"wsconnector/internal/logging"
	"wsconnector/internal/proto"
)

// DEBUG is the package-wide switch. When false every function here except
// Dump is a no-op; production builds are expected to leave it false.
var DEBUG = false

// StatusTransition pretty-prints an (old, new) status pair when DEBUG is
// set. Wire it straight into UsingCallbacks' onStatus during development.
func StatusTransition(old, new proto.Status) {
	if !DEBUG {
		return
	}
	fmt.Printf("status: %# v -> %# v\n", pretty.Formatter(old), pretty.Formatter(new))
}

// Message pretty-prints an inbound message when DEBUG is set.
func Message(m proto.Message) {
	if !DEBUG {
		return
	}
	fmt.Printf("message: %# v\n", pretty.Formatter(m))
}

// Dump returns v's pretty-printed representation regardless of DEBUG, for
// use in test failure messages and error wrapping.
func Dump(v any) string {
	return fmt.Sprintf("%# v", pretty.Formatter(v))
}

// Debug writes a Debug-level entry to the shared logger only when DEBUG.
func Debug(msg string, fields ...zap.Field) {
	if DEBUG {
		logging.Logger().Debug(msg, fields...)
	}
}

// Info writes an Info-level entry only when DEBUG.
func Info(msg string, fields ...zap.Field) {
	if DEBUG {
		logging.Logger().Info(msg, fields...)
	}
}

// Warn writes a Warn-level entry only when DEBUG.
func Warn(msg string, fields ...zap.Field) {
	if DEBUG {
		logging.Logger().Warn(msg, fields...)
	}
}

// Error writes an Error-level entry only when DEBUG. It never panics or
// aborts execution.
func Error(msg string, fields ...zap.Field) {
	if DEBUG {
		logging.Logger().Error(msg, fields...)
	}
}
