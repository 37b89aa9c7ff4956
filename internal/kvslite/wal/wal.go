package wal

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/julianstephens/go-utils/generic"
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/kvslite/record"
	"github.com/julianstephens/kvslite/internal/logger"
)

const walFileMode = 0o644

// Wal is a single append-only log file.
//
// Appends go through a write-only handle at the logical end of the log;
// value reads go through a separate read-only handle. Wal is not safe for
// concurrent use.
type Wal struct {
	dir  string
	path string

	w *os.File
	r *os.File

	// offset is the logical end of the log: the next append position.
	offset int64
	// stale is set when bytes past offset may exist on disk. They are
	// truncated before the next append.
	stale bool

	closed bool
	logger logger.Logger
}

// Open opens the log in dir, creating the directory and file as needed, and
// replays it. visit is called for each valid frame in append order.
//
// A damaged or incomplete tail does not fail Open. The bytes are left on disk
// and reported in the returned ReplayStats; they are removed by the first
// Append.
func Open(dir string, lg logger.Logger, visit VisitFunc) (*Wal, ReplayStats, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if dir == "" {
		return nil, ReplayStats{}, wrapLogErr("open", ErrInvalidDir, dir, 0, nil)
	}
	if err := helpers.Ensure(dir, true); err != nil {
		return nil, ReplayStats{}, wrapLogErr("open", ErrInvalidDir, dir, 0, err)
	}

	path := filepath.Join(dir, kvslite.WalFileName)
	created := !helpers.Exists(path)

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, walFileMode) //nolint:gosec
	if err != nil {
		return nil, ReplayStats{}, wrapLogErr("open", ErrOpen, path, 0, err)
	}
	if created {
		if err := syncDir(dir); err != nil {
			_ = w.Close()
			return nil, ReplayStats{}, wrapLogErr("open", ErrSync, dir, 0, err)
		}
		lg.Info("created wal", "path", path)
	}

	r, err := os.Open(path) //nolint:gosec
	if err != nil {
		_ = w.Close()
		return nil, ReplayStats{}, wrapLogErr("open", ErrOpen, path, 0, err)
	}

	info, err := r.Stat()
	if err != nil {
		_ = w.Close()
		_ = r.Close()
		return nil, ReplayStats{}, wrapLogErr("open", ErrOpen, path, 0, err)
	}

	src := bufio.NewReaderSize(io.NewSectionReader(r, 0, info.Size()), replayBufferSize)
	stats, err := Replay(src, info.Size(), lg, visit)
	if err != nil {
		_ = w.Close()
		_ = r.Close()
		return nil, stats, wrapLogErr("replay", ErrReplay, path, stats.LogicalSize, err)
	}

	if !stats.Clean() {
		lg.Warn("ignoring invalid wal tail",
			"path", path,
			"offset", stats.LogicalSize,
			"discarded_bytes", stats.DiscardedBytes,
			"tail", stats.TailStatus.String(),
			"reason", stats.Cause,
		)
	}
	lg.Info("wal opened", "path", path, "records", stats.Records, "size", stats.LogicalSize)

	return &Wal{
		dir:    dir,
		path:   path,
		w:      w,
		r:      r,
		offset: stats.LogicalSize,
		stale:  stats.DiscardedBytes > 0,
		logger: lg,
	}, stats, nil
}

// Append writes rec at the end of the log and returns the absolute offset of
// the record's value. When durable is true the file is fsynced before
// returning. On error the logical end of the log does not move.
func (l *Wal) Append(rec record.Record, durable bool) (int64, error) {
	if l.closed {
		return 0, wrapLogErr("append", ErrClosed, l.path, l.offset, nil)
	}

	data, err := record.Encode(rec)
	if err != nil {
		return 0, wrapLogErr("append", ErrAppend, l.path, l.offset, err)
	}

	if l.stale {
		if err := l.w.Truncate(l.offset); err != nil {
			l.logger.Error("wal truncate failed", err, "path", l.path, "offset", l.offset)
			return 0, wrapLogErr("append", ErrAppend, l.path, l.offset, err)
		}
		l.stale = false
	}

	n, err := l.w.WriteAt(data, l.offset)
	if err != nil {
		l.stale = true
		l.logger.Error("wal write failed", err, "path", l.path, "offset", l.offset, "want", len(data), "have", n)
		sentinel := generic.If(n > 0 && n < len(data), ErrShortWrite, ErrAppend)
		return 0, wrapLogErr("append", sentinel, l.path, l.offset, err)
	}

	if durable {
		if err := l.w.Sync(); err != nil {
			l.stale = true
			l.logger.Error("wal fsync failed", err, "path", l.path, "offset", l.offset)
			return 0, wrapLogErr("fsync", ErrSync, l.path, l.offset, err)
		}
	}

	valueOffset := l.offset + record.ValueOffset(len(rec.Key))
	l.offset += int64(len(data))
	return valueOffset, nil
}

// ReadValueAt reads length bytes at offset. The range must lie within the
// logical log.
func (l *Wal) ReadValueAt(offset int64, length uint32) ([]byte, error) {
	if l.closed {
		return nil, wrapLogErr("read", ErrClosed, l.path, offset, nil)
	}
	if offset < 0 || offset+int64(length) > l.offset {
		return nil, wrapLogErr("read", ErrOutOfRange, l.path, offset, nil)
	}

	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}

	n, err := l.r.ReadAt(buf, offset)
	if err != nil && (!errors.Is(err, io.EOF) || n != len(buf)) {
		return nil, wrapLogErr("read", ErrRead, l.path, offset, err)
	}
	return buf, nil
}

// Sync flushes appended records to stable storage.
func (l *Wal) Sync() error {
	if l.closed {
		return wrapLogErr("fsync", ErrClosed, l.path, l.offset, nil)
	}
	if err := l.w.Sync(); err != nil {
		return wrapLogErr("fsync", ErrSync, l.path, l.offset, err)
	}
	return nil
}

// Size returns the logical size of the log.
func (l *Wal) Size() int64 {
	return l.offset
}

// Path returns the log file path.
func (l *Wal) Path() string {
	return l.path
}

// Close syncs and closes the log. Closing a closed log is a no-op.
func (l *Wal) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if err := l.w.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := l.w.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := l.r.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		l.logger.Error("wal close failed", errors.Join(errs...), "path", l.path)
		return wrapLogErr("close", ErrClose, l.path, l.offset, errors.Join(errs...))
	}

	l.logger.Debug("wal closed", "path", l.path, "size", l.offset)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Sync()
}
