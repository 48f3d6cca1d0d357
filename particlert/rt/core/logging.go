package core

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the logging surface shared by the game-thread layer and the render thread.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// DefaultLogger writes Debug and Info to stdout, Warn and Error to stderr, tagged with a
// scope such as "particles/render". Loggers derived with Named share the debug switch.
type DefaultLogger struct {
	scope string
	debug *atomic.Bool
	out   *log.Logger
	err   *log.Logger
}

func NewDefaultLogger(scope string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		scope: scope,
		debug: new(atomic.Bool),
		out:   log.New(os.Stdout, "", flags),
		err:   log.New(os.Stderr, "", flags),
	}
	l.debug.Store(debug)
	return l
}

// Named derives a logger for a sub-scope, e.g. "render" under "particles".
func (l *DefaultLogger) Named(scope string) *DefaultLogger {
	c := *l
	switch {
	case l.scope == "":
		c.scope = scope
	case scope != "":
		c.scope = l.scope + "/" + scope
	}
	return &c
}

func (l *DefaultLogger) Scope() string { return l.scope }

func (l *DefaultLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

// Format renders one log line without the timestamp.
func (l *DefaultLogger) Format(level LogLevel, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.scope == "" {
		return level.String() + ": " + msg
	}
	return "[" + l.scope + "] " + level.String() + ": " + msg
}

func (l *DefaultLogger) logf(level LogLevel, format string, args ...any) {
	if level == LevelDebug && !l.DebugEnabled() {
		return
	}
	dst := l.out
	if level >= LevelWarn {
		dst = l.err
	}
	dst.Print(l.Format(level, format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

type nopLogger struct{}

// NewNopLogger returns a Logger that drops everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// LoggerOr returns l, or a no-op logger when l is nil. Never returns nil.
func LoggerOr(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// scopedLogger tags messages of a foreign Logger with a scope.
type scopedLogger struct {
	Logger
	scope string
}

func (s scopedLogger) Debugf(format string, args ...any) {
	s.Logger.Debugf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s scopedLogger) Infof(format string, args ...any) {
	s.Logger.Infof("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s scopedLogger) Warnf(format string, args ...any) {
	s.Logger.Warnf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s scopedLogger) Errorf(format string, args ...any) {
	s.Logger.Errorf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

// Scoped returns a logger whose messages carry scope, so render-thread output can be
// told apart from the game thread. A nil or no-op logger is returned as a no-op logger.
func Scoped(l Logger, scope string) Logger {
	switch t := l.(type) {
	case nil, nopLogger:
		return NewNopLogger()
	case *DefaultLogger:
		return t.Named(scope)
	}
	return scopedLogger{Logger: l, scope: scope}
}
