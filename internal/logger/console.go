package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ConsoleLogger writes one line per entry: "[ts] LEVEL: msg k=v ...".
// Errors go to the error stream, everything else to the output stream.
type ConsoleLogger struct {
	minLevel Level
	out      io.Writer
	err      io.Writer
}

// NewConsoleLogger creates a logger writing to stdout and stderr.
func NewConsoleLogger(level Level) *ConsoleLogger {
	return NewWriterLogger(level, os.Stdout, os.Stderr)
}

// NewWriterLogger creates a console-format logger over arbitrary writers.
func NewWriterLogger(level Level, out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{minLevel: level, out: out, err: errOut}
}

func (cl *ConsoleLogger) Debug(msg string, fields ...interface{}) {
	cl.log(LevelDebug, msg, fields...)
}

func (cl *ConsoleLogger) Info(msg string, fields ...interface{}) {
	cl.log(LevelInfo, msg, fields...)
}

func (cl *ConsoleLogger) Warn(msg string, fields ...interface{}) {
	cl.log(LevelWarn, msg, fields...)
}

func (cl *ConsoleLogger) Error(msg string, err error, fields ...interface{}) {
	cl.log(LevelError, msg, append([]interface{}{"error", err}, fields...)...)
}

func (cl *ConsoleLogger) log(level Level, msg string, fields ...interface{}) {
	if level < cl.minLevel && level != LevelError {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", time.Now().Format(consoleTimeFormat), strings.ToUpper(level.String()), msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	b.WriteByte('\n')

	w := cl.out
	if level == LevelError {
		w = cl.err
	}
	_, _ = io.WriteString(w, b.String())
}
