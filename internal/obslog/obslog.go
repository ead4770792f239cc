// Package obslog is a thin leveled wrapper around the standard log
// package, prefixing every line with a bracketed component tag: the name
// passed to New ([mcp], [policy], ...).
package obslog

import (
	"log"
	"os"
)

// Level orders log verbosity; higher levels are noisier.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// currentLevel is process-wide; AC_DEBUG=1 raises it to LevelDebug,
// matching the AC_DEBUG convention spec.md §6 defines for stack traces.
var currentLevel = defaultLevel()

func defaultLevel() Level {
	if os.Getenv("AC_DEBUG") == "1" {
		return LevelDebug
	}
	return LevelInfo
}

// SetLevel overrides the process-wide log level, mainly for tests.
func SetLevel(l Level) { currentLevel = l }

// Logger writes leveled, tag-prefixed lines through the standard logger.
type Logger struct {
	tag string
}

// New returns a Logger prefixed with "[tag]", e.g. New("fsys") logs lines
// starting "[fsys] ...".
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level > currentLevel {
		return
	}
	log.Printf("[%s] %s: "+format, append([]interface{}{l.tag, level.String()}, args...)...)
}

func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
