package logger

import (
	"bytes"
	"fmt"
	"log"
	"sync"
)

// MemLogger writes log entries to a byte buffer. Primarily of use in tests.
type MemLogger struct {
	log      *log.Logger
	b        *bytes.Buffer
	logInfo  bool
	logErr   bool
	logTrace bool
	mu       sync.Mutex
}

// NewMemLogger returns a new logger that writes to a byte buffer. By
// default, it logs info and error entries, but not trace entries.
func NewMemLogger() *MemLogger {
	b := &bytes.Buffer{}
	return &MemLogger{
		log:     log.New(b, "", log.LstdFlags),
		b:       b,
		logInfo: true,
		logErr:  true,
	}
}

// SetFlags sets the output flags for the logger.
func (l *MemLogger) SetFlags(flag int) *MemLogger {
	l.log.SetFlags(flag)
	return l
}

// SetInfo sets whether info entries should be logged.
func (l *MemLogger) SetInfo(logInfo bool) *MemLogger {
	l.logInfo = logInfo
	return l
}

// SetErr sets whether error entries should be logged.
func (l *MemLogger) SetErr(logErr bool) *MemLogger {
	l.logErr = logErr
	return l
}

// SetTrace sets whether trace entries should be logged.
func (l *MemLogger) SetTrace(logTrace bool) *MemLogger {
	l.logTrace = logTrace
	return l
}

// Infof writes an info log entry.
func (l *MemLogger) Infof(format string, v ...interface{}) {
	if l.logInfo {
		l.write(infoPrefix, format, v)
	}
}

// Errorf writes an error log entry.
func (l *MemLogger) Errorf(format string, v ...interface{}) {
	if l.logErr {
		l.write(errorPrefix, format, v)
	}
}

// Tracef writes a trace log entry.
func (l *MemLogger) Tracef(format string, v ...interface{}) {
	if l.logTrace {
		l.write(tracePrefix, format, v)
	}
}

// String returns the log entries written so far.
func (l *MemLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (l *MemLogger) write(prefix, format string, v []interface{}) {
	l.mu.Lock()
	l.log.Print(prefix, fmt.Sprintf(format, v...))
	l.mu.Unlock()
}
