/*
 * Copyright 2023 The Meadowlark Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides logging facilities for the Meadowlark server.
//
// Loggers are zap sugared loggers. The level, encoding and destination of
// the loggers are process wide and set once at startup, before the first
// logger is created.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper of zap.Logger.
type Logger = *zap.SugaredLogger

// Field is a wrapper of zap.Field.
type Field = zap.Field

// Below are the encodings of the log lines.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	loggerOnce    sync.Once
	defaultLogger Logger

	logLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logFormat = FormatConsole
	logSink   zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
)

// SetLogLevel sets the level of the loggers with one of "debug", "info",
// "warn", "error", "panic" and "fatal". The level of loggers already created
// changes as well.
func SetLogLevel(level string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil || l == zapcore.DPanicLevel {
		return fmt.Errorf("invalid log level: %s", level)
	}
	logLevel.SetLevel(l)
	return nil
}

// SetLogFormat sets the encoding of the loggers, "console" for humans or
// "json" for log shippers.
func SetLogFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatConsole:
		logFormat = FormatConsole
	case FormatJSON:
		logFormat = FormatJSON
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	return nil
}

// SetLogOutput sets where the loggers write, "stdout" or "stderr". Commands
// that print their result on stdout log to stderr.
func SetLogOutput(output string) error {
	switch strings.ToLower(output) {
	case "stdout":
		logSink = zapcore.Lock(os.Stdout)
	case "stderr":
		logSink = zapcore.Lock(os.Stderr)
	default:
		return fmt.Errorf("invalid log output: %s", output)
	}
	return nil
}

// New creates a new logger named after the given component.
func New(name string, fields ...Field) Logger {
	logger := newLogger(name)
	if len(fields) == 0 {
		return logger
	}

	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}

// NewField creates a new field with the given key and value.
func NewField(key string, value string) Field {
	return zap.String(key, value)
}

// DefaultLogger returns the default logger.
func DefaultLogger() Logger {
	loggerOnce.Do(func() {
		defaultLogger = newLogger("meadowlark")
	})
	return defaultLogger
}

// Enabled returns true if the given level is enabled.
func Enabled(level zapcore.Level) bool {
	return logLevel.Enabled(level)
}

func newLogger(name string) Logger {
	var encoder zapcore.Encoder
	if logFormat == FormatJSON {
		encoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}

	return zap.New(
		zapcore.NewCore(encoder, logSink, logLevel),
		zap.AddStacktrace(zap.ErrorLevel),
	).Named(name).Sugar()
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := jsonEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
