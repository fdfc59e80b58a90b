// Package logging is a small structured JSON logger. Components take a Logger
// and default to NopLogger, so the engine stays silent unless a host wires
// one in.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name. Unknown names are an
// error so that configuration typos surface at startup.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// Logger is the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With creates a child logger with the given fields pre-set
	With(fields ...Field) Logger
}

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	out    *output
	level  Level
	fields []Field
}

// output is shared between a logger and its children so that writes from
// any of them never interleave.
type output struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// entry is a single log line.
type entry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &output{w: w, now: time.Now},
		level: level,
	}
}

// NewStderrLogger is the logger the command-line tools use.
func NewStderrLogger(level Level) *JSONLogger {
	return NewJSONLogger(os.Stderr, level)
}

// Level returns the minimum level that is written.
func (l *JSONLogger) Level() Level {
	return l.level
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	e := entry{
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		e.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			e.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			e.Fields[f.Key] = f.Value
		}
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	e.Time = l.out.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(l.out.w, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}
	data = append(data, '\n')
	l.out.w.Write(data)
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With creates a child logger with the given fields pre-set
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{out: l.out, level: l.level, fields: merged}
}

// NopLogger is a logger that does nothing (useful for testing)
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
