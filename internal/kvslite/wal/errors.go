package wal

import (
	"errors"
	"fmt"
)

var (
	ErrClosed     = errors.New("wal: closed")
	ErrInvalidDir = errors.New("wal: invalid dir")
	ErrOpen       = errors.New("wal: open failed")
	ErrReplay     = errors.New("wal: replay failed")
	ErrAppend     = errors.New("wal: append failed")
	ErrShortWrite = errors.New("wal: short write")
	ErrSync       = errors.New("wal: fsync failed")
	ErrRead       = errors.New("wal: read failed")
	ErrOutOfRange = errors.New("wal: read out of range")
	ErrClose      = errors.New("wal: close failed")
)

// LogError wraps log failures with a stable sentinel in Err.
// Both Err and Cause are visible to errors.Is and errors.As.
type LogError struct {
	Err error

	// Op is a short label for where the error occurred:
	// "open", "replay", "append", "fsync", "read", "close".
	Op     string
	Path   string
	Offset int64

	Cause error
}

func (e *LogError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s@%d)", msg, e.Path, e.Offset)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LogError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func wrapLogErr(op string, sentinel error, path string, offset int64, cause error) error {
	return &LogError{
		Err:    sentinel,
		Op:     op,
		Path:   path,
		Offset: offset,
		Cause:  cause,
	}
}
