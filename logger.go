// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "github.com/twmb/franz-go/pkg/kgo"

// Logger is the logging seam used throughout the endpoint. It is
// satisfied by kgo.Logger, so the same value can be passed to the
// franz-go client and to the endpoint's own warning/info lines.
type Logger = kgo.Logger

// LogLevel mirrors kgo.LogLevel so callers need not import franz-go
// directly just to construct a Logger.
type LogLevel = kgo.LogLevel

const (
	LogLevelNone  = kgo.LogLevelNone
	LogLevelError = kgo.LogLevelError
	LogLevelWarn  = kgo.LogLevelWarn
	LogLevelInfo  = kgo.LogLevelInfo
	LogLevelDebug = kgo.LogLevelDebug
)

// nopLogger, the default logger, drops everything.
type nopLogger struct{}

func (*nopLogger) Level() kgo.LogLevel { return kgo.LogLevelNone }
func (*nopLogger) Log(kgo.LogLevel, string, ...any) {
}

// NopLogger is a Logger that discards all log lines.
var NopLogger Logger = &nopLogger{}

func logAt(l Logger, level LogLevel, msg string, keyvals ...any) {
	if l == nil {
		return
	}
	if l.Level() < level {
		return
	}
	l.Log(level, msg, keyvals...)
}
