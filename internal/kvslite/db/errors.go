package db

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPath  = errors.New("db: invalid path")
	ErrClosed       = errors.New("db: closed")
	ErrOpenFailed   = errors.New("db: open failed")
	ErrPutFailed    = errors.New("db: put failed")
	ErrGetFailed    = errors.New("db: get failed")
	ErrDeleteFailed = errors.New("db: delete failed")
	ErrSyncFailed   = errors.New("db: sync failed")
	ErrCloseFailed  = errors.New("db: close failed")
)

// DBError wraps DB-layer failures with stable sentinels for errors.Is,
// while keeping Cause reachable through the same chain.
type DBError struct {
	Err error

	// Op describes the operation: "open", "put", "get", "delete", "sync", "close".
	Op string

	// Path is the database directory.
	Path string

	Cause error
}

func (e *DBError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *DBError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func wrapDBErr(op string, sentinel error, path string, cause error) error {
	return &DBError{
		Err:   sentinel,
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}
