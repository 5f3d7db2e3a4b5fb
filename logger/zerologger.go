package logger

import "github.com/rs/zerolog"

// ZeroLogger writes log entries through a zerolog logger, for services that
// want structured logs alongside the rest of their application.
type ZeroLogger struct {
	log      zerolog.Logger
	logTrace bool
}

// NewZeroLogger returns a new logger that writes through the given zerolog
// logger. Info entries are logged at info level and error entries at error
// level. Trace entries are logged at debug level, but only when enabled with
// SetTrace.
func NewZeroLogger(l zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: l}
}

// SetTrace sets whether trace entries should be logged.
func (l *ZeroLogger) SetTrace(logTrace bool) *ZeroLogger {
	l.logTrace = logTrace
	return l
}

// Infof writes an info log entry.
func (l *ZeroLogger) Infof(format string, v ...interface{}) {
	l.log.Info().Msgf(format, v...)
}

// Errorf writes an error log entry.
func (l *ZeroLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

// Tracef writes a trace log entry.
func (l *ZeroLogger) Tracef(format string, v ...interface{}) {
	if l.logTrace {
		l.log.Debug().Msgf(format, v...)
	}
}
