package db

import (
	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/kvslite/index"
	"github.com/julianstephens/kvslite/internal/kvslite/record"
	"github.com/julianstephens/kvslite/internal/kvslite/wal"
	"github.com/julianstephens/kvslite/internal/logger"
)

// DB is a log-structured key-value store backed by a single log file.
//
// DB is not safe for concurrent use. Callers sharing a DB across goroutines
// must serialize every call, including Get, behind one lock.
type DB struct {
	path     string
	wal      *wal.Wal
	index    *index.Index
	opts     kvslite.Options
	recovery wal.ReplayStats
	logger   logger.Logger
	closed   bool
}

// Stats describes the current state of an open database.
type Stats struct {
	KeyCount int   `json:"key_count"`
	LogSize  int64 `json:"log_size"`
	// Recovery is the result of the scan performed by Open.
	Recovery wal.ReplayStats `json:"recovery"`
}

// OpenDefault opens or creates a database at path with default options and no logging.
func OpenDefault(path string) (*DB, error) {
	return Open(path, kvslite.DefaultOptions(), logger.NoOpLogger{})
}

// Open opens or creates a database in the directory at path and rebuilds the
// index from its log. The caller owns the logger; nil disables logging.
func Open(path string, opts kvslite.Options, lg logger.Logger) (*DB, error) {
	if path == "" {
		return nil, wrapDBErr("open", ErrInvalidPath, path, nil)
	}
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	lg.Info("opening database", "path", path, "sync_on_write", opts.SyncOnWrite)

	ix := index.New()
	w, stats, err := wal.Open(path, lg, ix.Apply)
	if err != nil {
		lg.Error("failed to open wal", err, "path", path)
		return nil, wrapDBErr("open", ErrOpenFailed, path, err)
	}

	lg.Info("database opened",
		"path", path,
		"keys", ix.Len(),
		"records", stats.Records,
		"log_size", stats.LogicalSize,
		"tail", stats.TailStatus.String(),
	)

	return &DB{
		path:     path,
		wal:      w,
		index:    ix,
		opts:     opts,
		recovery: stats,
		logger:   lg,
	}, nil
}

// Put stores value under key. The index changes only after the record is
// appended; on error the previous value, if any, stays visible.
func (db *DB) Put(key, value []byte) error {
	if db.closed {
		return wrapDBErr("put", ErrClosed, db.path, nil)
	}

	rec, err := record.NewPut(key, value)
	if err != nil {
		return wrapDBErr("put", ErrPutFailed, db.path, err)
	}

	valueOff, err := db.wal.Append(rec, db.opts.SyncOnWrite)
	if err != nil {
		db.logger.Error("put failed", err, "path", db.path, "key_size", len(key), "value_size", len(value))
		return wrapDBErr("put", ErrPutFailed, db.path, err)
	}

	db.index.Put(key, index.ValuePos{Offset: valueOff, Len: uint32(len(value))}) //nolint:gosec
	db.logger.Debug("put", "key_size", len(key), "value_size", len(value), "offset", valueOff)
	return nil
}

// Get returns the current value for key. A missing key is reported with
// found == false and a nil error.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	if db.closed {
		return nil, false, wrapDBErr("get", ErrClosed, db.path, nil)
	}

	pos, ok := db.index.Get(key)
	if !ok {
		db.logger.Debug("get", "key_size", len(key), "found", false)
		return nil, false, nil
	}

	value, err := db.wal.ReadValueAt(pos.Offset, pos.Len)
	if err != nil {
		db.logger.Error("get failed", err, "path", db.path, "offset", pos.Offset, "len", pos.Len)
		return nil, false, wrapDBErr("get", ErrGetFailed, db.path, err)
	}

	db.logger.Debug("get", "key_size", len(key), "found", true, "value_size", len(value))
	return value, true, nil
}

// Delete removes key. A delete record is appended even when the key is absent.
func (db *DB) Delete(key []byte) error {
	if db.closed {
		return wrapDBErr("delete", ErrClosed, db.path, nil)
	}

	rec, err := record.NewDelete(key)
	if err != nil {
		return wrapDBErr("delete", ErrDeleteFailed, db.path, err)
	}

	if _, err := db.wal.Append(rec, db.opts.SyncOnWrite); err != nil {
		db.logger.Error("delete failed", err, "path", db.path, "key_size", len(key))
		return wrapDBErr("delete", ErrDeleteFailed, db.path, err)
	}

	existed := db.index.Delete(key)
	db.logger.Debug("delete", "key_size", len(key), "existed", existed)
	return nil
}

// Keys returns all live keys in ascending byte order.
func (db *DB) Keys() ([][]byte, error) {
	if db.closed {
		return nil, wrapDBErr("keys", ErrClosed, db.path, nil)
	}
	return db.index.Keys(), nil
}

// Stats returns key and log statistics.
func (db *DB) Stats() (Stats, error) {
	if db.closed {
		return Stats{}, wrapDBErr("stats", ErrClosed, db.path, nil)
	}
	return Stats{
		KeyCount: db.index.Len(),
		LogSize:  db.wal.Size(),
		Recovery: db.recovery,
	}, nil
}

// Sync forces buffered appends to stable storage.
func (db *DB) Sync() error {
	if db.closed {
		return wrapDBErr("sync", ErrClosed, db.path, nil)
	}
	if err := db.wal.Sync(); err != nil {
		return wrapDBErr("sync", ErrSyncFailed, db.path, err)
	}
	return nil
}

// Close flushes and closes the log. Closing a closed database is a no-op.
func (db *DB) Close() error {
	if db.closed {
		return nil
	}

	db.logger.Info("closing database", "path", db.path)
	db.closed = true

	if err := db.wal.Close(); err != nil {
		db.logger.Error("failed to close wal", err, "path", db.path)
		return wrapDBErr("close", ErrCloseFailed, db.path, err)
	}
	return nil
}

// Path returns the database directory.
func (db *DB) Path() string {
	return db.path
}

// IsClosed returns true if the database is closed.
func (db *DB) IsClosed() bool {
	return db.closed
}
