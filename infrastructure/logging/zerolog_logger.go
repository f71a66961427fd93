// Package logging adapts github.com/rs/zerolog to this repo's
// application.Logger contract, so SessionError kinds and client ids can be
// attached as structured fields instead of interpolated into a format
// string.
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"eternalterm/application"
)

// ZerologLogger is an application.Logger backed by a zerolog.Logger.
type ZerologLogger struct {
	log zerolog.Logger
}

// New returns a ZerologLogger writing human-readable console output,
// suitable for the server/client binaries in cmd/.
func New() *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return &ZerologLogger{log: zerolog.New(out).With().Timestamp().Logger()}
}

func (l *ZerologLogger) Debugf(format string, v ...any) { l.log.Debug().Msgf(format, v...) }
func (l *ZerologLogger) Infof(format string, v ...any)  { l.log.Info().Msgf(format, v...) }
func (l *ZerologLogger) Warnf(format string, v ...any)  { l.log.Warn().Msgf(format, v...) }
func (l *ZerologLogger) Errorf(format string, v ...any) { l.log.Error().Msgf(format, v...) }

func (l *ZerologLogger) WithField(key string, value any) application.Logger {
	return &ZerologLogger{log: l.log.With().Interface(key, value).Logger()}
}
