package wal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/julianstephens/go-utils/generic"
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/kvslite/record"
	"github.com/julianstephens/kvslite/internal/logger"
)

const replayBufferSize = 64 * 1024

type TailStatus int

const (
	// TailStatusValid indicates the log ends exactly on a frame boundary.
	TailStatusValid TailStatus = iota
	// TailStatusTruncated indicates the last frame was cut short, typically by a crash mid-write.
	TailStatusTruncated
	// TailStatusCorrupt indicates a frame failed validation.
	TailStatusCorrupt
)

func (ts TailStatus) String() string {
	switch ts {
	case TailStatusValid:
		return "valid"
	case TailStatusTruncated:
		return "truncated"
	case TailStatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

func (ts TailStatus) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

func (ts *TailStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "valid":
		*ts = TailStatusValid
	case "truncated":
		*ts = TailStatusTruncated
	case "corrupt":
		*ts = TailStatusCorrupt
	default:
		return fmt.Errorf("wal: unknown tail status %q", text)
	}
	return nil
}

// ReplayStats summarizes a recovery scan.
type ReplayStats struct {
	Records int `json:"records"`
	Puts    int `json:"puts"`
	Deletes int `json:"deletes"`

	// LogicalSize is the end of the last valid frame; appends resume here.
	LogicalSize  int64 `json:"logical_size"`
	PhysicalSize int64 `json:"physical_size"`
	// DiscardedBytes counts the bytes past LogicalSize that recovery ignored.
	DiscardedBytes int64 `json:"discarded_bytes"`

	TailStatus TailStatus `json:"tail_status"`
	// Cause is the *record.ParseError that ended the scan, if any.
	Cause error `json:"-"`
}

// Clean reports whether the whole file was made of valid frames.
func (s ReplayStats) Clean() bool {
	return s.TailStatus == TailStatusValid && s.DiscardedBytes == 0
}

// VisitFunc receives each valid frame in append order. Returning an error aborts the scan.
type VisitFunc func(record.Frame) error

// Replay decodes frames from r until the stream ends or a frame fails to
// decode. A decode failure ends the scan without error; the failing frame's
// offset becomes the logical size. Reader and visit errors are returned.
func Replay(r io.Reader, physicalSize int64, lg logger.Logger, visit VisitFunc) (ReplayStats, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	stats := ReplayStats{PhysicalSize: physicalSize}
	dec := record.NewDecoder(r)
	for {
		frame, err := dec.Next()
		if err != nil {
			if record.IsCleanEOF(err) {
				break
			}
			pe, ok := record.AsParseError(err)
			if !ok {
				lg.Error("wal read failed", err, "offset", stats.LogicalSize)
				return stats, err
			}
			stats.Cause = pe
			stats.TailStatus = generic.If(pe.Kind == record.KindTruncated, TailStatusTruncated, TailStatusCorrupt)
			lg.Debug("replay stopped at invalid frame", "offset", pe.Offset, "kind", pe.Kind.String())
			break
		}

		if visit != nil {
			if err := visit(frame); err != nil {
				return stats, err
			}
		}

		stats.Records++
		if frame.Record.Type == record.RecordTypePut {
			stats.Puts++
		} else {
			stats.Deletes++
		}
		stats.LogicalSize = frame.End()
	}

	if physicalSize > stats.LogicalSize {
		stats.DiscardedBytes = physicalSize - stats.LogicalSize
	}
	return stats, nil
}

// Inspect scans the log in dir without creating, locking or modifying anything.
func Inspect(dir string, lg logger.Logger) (ReplayStats, error) {
	path := filepath.Join(dir, kvslite.WalFileName)
	if !helpers.Exists(path) {
		return ReplayStats{}, wrapLogErr("inspect", ErrOpen, path, 0, os.ErrNotExist)
	}

	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return ReplayStats{}, wrapLogErr("inspect", ErrOpen, path, 0, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return ReplayStats{}, wrapLogErr("inspect", ErrOpen, path, 0, err)
	}

	stats, err := Replay(bufio.NewReaderSize(f, replayBufferSize), info.Size(), lg, nil)
	if err != nil {
		return stats, wrapLogErr("inspect", ErrReplay, path, stats.LogicalSize, err)
	}
	return stats, nil
}
