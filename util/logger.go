// Package util provides low-level helpers shared by all other packages.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// ParseLogLevel maps a configuration level name to a LogLevel.  Unknown
// names fall back to LogNormal.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quiet", "error":
		return LogQuiet
	case "verbose":
		return LogVerbose
	case "debug":
		return LogDebug
	default:
		return LogNormal
	}
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  Derived loggers created with [Logger.With] share
// the parent's output and lock.
type Logger struct {
	level      LogLevel
	output     io.Writer
	mu         *sync.Mutex
	timestamps bool // if true, prepend timestamps
	json       bool // one JSON object per line instead of text
	prefix     string
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		mu:         &sync.Mutex{},
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.output = w }

// SetJSON switches between text and JSON line output.
func (l *Logger) SetJSON(on bool) { l.json = on }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// With returns a logger that prefixes every message with prefix, e.g.
// "fd=7".  The returned logger shares output and settings with l.
func (l *Logger) With(prefix string) *Logger {
	child := *l
	if l.prefix != "" {
		child.prefix = l.prefix + " " + prefix
	} else {
		child.prefix = prefix
	}
	return &child
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("INF", format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.write("WRN", format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.write("VRB", format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.write("DBG", format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERR", format, args...)
}

type jsonLine struct {
	Time    string `json:"time,omitempty"`
	Level   string `json:"level"`
	Scope   string `json:"scope,omitempty"`
	Message string `json:"msg"`
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.json {
		line := jsonLine{Level: level, Scope: l.prefix, Message: msg}
		if l.timestamps {
			line.Time = time.Now().Format(time.RFC3339Nano)
		}
		data, err := json.Marshal(line)
		if err != nil {
			return
		}
		l.output.Write(append(data, '\n')) //nolint:errcheck
		return
	}

	if l.prefix != "" {
		msg = l.prefix + " | " + msg
	}
	if l.timestamps {
		ts := time.Now().Format("15:04:05.000")
		fmt.Fprintf(l.output, "%s [%s] %s\n", ts, level, msg)
	} else {
		fmt.Fprintf(l.output, "[%s] %s\n", level, msg)
	}
}

// OpenLogOutput resolves a configured output name to a writer.  "stderr"
// and "" mean os.Stderr, "stdout" means os.Stdout, anything else is a file
// path opened for appending.  The returned closer is nil for the standard
// streams.
func OpenLogOutput(name string) (io.Writer, io.Closer, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %q: %w", name, err)
	}
	return f, f, nil
}
