/*
 * Copyright 2025 The RuleGo Authors.
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

// Package logs provides the zerolog backed engine logger.
package logs

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the engine Logger interfaces.
// Printf logs at info level.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewConsoleLogger writes human readable lines to w at debug level and above.
func NewConsoleLogger(w io.Writer) *ZerologLogger {
	return NewLogger(w, "debug", true)
}

// NewLogger creates a logger with the given level name (debug, info, warn, error).
// Unknown levels fall back to info. console selects the human readable writer,
// otherwise one JSON object is written per line.
func NewLogger(w io.Writer, level string, console bool) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := w
	if console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return NewZerologLogger(zerolog.New(out).Level(lvl).With().Timestamp().Logger())
}

// Logger returns the underlying zerolog.Logger.
func (l *ZerologLogger) Logger() zerolog.Logger {
	return l.logger
}

func (l *ZerologLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *ZerologLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l *ZerologLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *ZerologLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, v...))
}
