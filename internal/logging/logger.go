package logging

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the application.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	WithField(key string, value any) Logger
}

// LoggerFactory builds a Logger for a context. Tests install one to capture output.
type LoggerFactory interface {
	CreateLogger(ctx context.Context) Logger
}

var (
	mu      sync.RWMutex
	factory LoggerFactory
	base    = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Configure sets the output and level of the process-wide logger.
func Configure(level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(lvl)
	if out != nil {
		base.SetOutput(out)
	}
	return nil
}

// Base exposes the underlying logrus logger for packages that take a FieldLogger.
func Base() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// RawTerminal switches the base logger to CRLF line endings for as long as the
// terminal is in raw mode, where a bare LF does not return the carriage. The
// returned func restores the previous output.
func RawTerminal() func() {
	mu.Lock()
	defer mu.Unlock()
	prev := base.Out
	base.SetOutput(crlfWriter{w: prev})
	return func() {
		mu.Lock()
		defer mu.Unlock()
		base.SetOutput(prev)
	}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetLoggerFactory installs f for NewLogger; nil restores the logrus default.
func SetLoggerFactory(f LoggerFactory) {
	mu.Lock()
	defer mu.Unlock()
	factory = f
}

// NewLogger returns a Logger from the installed factory, or the logrus base.
func NewLogger(ctx context.Context) Logger {
	mu.RLock()
	f := factory
	mu.RUnlock()
	if f != nil {
		return f.CreateLogger(ctx)
	}
	return &logrusLogger{entry: Base().WithContext(ctx)}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
