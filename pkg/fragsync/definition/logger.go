package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used throughout the scheduler, channel,
// peer and trial layers. A concrete implementation is injected rather
// than reached for globally, so tests can substitute a NopLogger.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

// DefaultLogger is the logrus-backed implementation the CLI uses.
// Constructors handed a nil Logger fall back to NopLogger, not to
// DefaultLogger.
type DefaultLogger struct {
	entry *logrus.Logger
	debug bool
}

// NewDefaultLogger builds a DefaultLogger writing to stderr with
// logrus's TextFormatter and full timestamps; lines carry the
// timestamp and level in logrus's own layout, not a bare
// "[LEVEL]: message" form.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{entry: l, debug: false}
}

func (l *DefaultLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *DefaultLogger) Fatal(v ...interface{})                 { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}

// NopLogger discards everything; used by tests that don't want stderr
// noise from convergence trials.
type NopLogger struct{}

func (NopLogger) Info(...interface{})          {}
func (NopLogger) Infof(string, ...interface{}) {}
func (NopLogger) Warn(...interface{})          {}
func (NopLogger) Warnf(string, ...interface{}) {}
func (NopLogger) Error(...interface{})         {}
func (NopLogger) Errorf(string, ...interface{}) {
}
func (NopLogger) Debug(...interface{})          {}
func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Fatal(...interface{})          {}
func (NopLogger) Fatalf(string, ...interface{}) {}
func (NopLogger) ToggleDebug(bool) bool         { return false }
