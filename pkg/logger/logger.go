package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger keeps the printf-style API used across the services on top of zerolog.
type Logger struct {
	info  *zerolog.Logger
	error *zerolog.Logger
	warn  *zerolog.Logger
	debug *zerolog.Logger
}

func New() *Logger {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters sends info/debug to out and warn/error to errOut.
func NewWithWriters(out, errOut io.Writer) *Logger {
	base := zerolog.New(out).With().Timestamp().Logger()
	errBase := zerolog.New(errOut).With().Timestamp().Logger()

	info := base.Level(zerolog.InfoLevel)
	debug := base.Level(zerolog.DebugLevel)
	warn := errBase.Level(zerolog.WarnLevel)
	errLog := errBase.Level(zerolog.ErrorLevel)

	return &Logger{
		info:  &info,
		error: &errLog,
		warn:  &warn,
		debug: &debug,
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.info.Info().Msgf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.error.Error().Msgf(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.warn.Warn().Msgf(format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.debug.Debug().Msgf(format, v...)
}
