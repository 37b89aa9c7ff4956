package testutil

import (
	"bytes"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/kvslite/db"
	"github.com/julianstephens/kvslite/internal/kvslite/record"
	"github.com/julianstephens/kvslite/internal/kvslite/wal"
	"github.com/julianstephens/kvslite/internal/logger"
)

// Sequence is an ordered list of records to lay down as a log.
type Sequence struct {
	recs []record.Record
}

// NewSequence creates a new empty sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Put adds a put record.
func (s *Sequence) Put(key, value string) *Sequence {
	s.recs = append(s.recs, Put(key, value))
	return s
}

// Delete adds a delete record.
func (s *Sequence) Delete(key string) *Sequence {
	s.recs = append(s.recs, Del(key))
	return s
}

// Len returns the number of records in the sequence.
func (s *Sequence) Len() int {
	return len(s.recs)
}

// Damage mutates encoded log bytes before they are written to disk.
type Damage func(data []byte) []byte

// CutAt keeps only the first n bytes.
func CutAt(n int) Damage {
	return func(data []byte) []byte {
		if n > len(data) {
			return data
		}
		return data[:n]
	}
}

// CutLast drops the final n bytes.
func CutLast(n int) Damage {
	return func(data []byte) []byte {
		if n > len(data) {
			return data[:0]
		}
		return data[:len(data)-n]
	}
}

// Garbage appends raw bytes after the last record.
func Garbage(b []byte) Damage {
	return func(data []byte) []byte {
		return append(data, b...)
	}
}

// Flip inverts one bit at offset.
func Flip(offset int, bit uint) Damage {
	return func(data []byte) []byte {
		if offset >= 0 && offset < len(data) {
			data[offset] ^= 1 << (bit % 8)
		}
		return data
	}
}

// RecoveryHarness writes a sequence as a log, optionally damages it, and
// opens a database over the result.
type RecoveryHarness struct {
	t        *testing.T
	dir      string
	sequence *Sequence
	damage   []Damage
	opts     kvslite.Options
	lg       logger.Logger

	encoded []byte
	db      *db.DB
	stats   db.Stats
}

// NewHarness creates a harness rooted in a fresh temp dir.
func NewHarness(t *testing.T, seq *Sequence) *RecoveryHarness {
	t.Helper()
	return &RecoveryHarness{
		t:        t,
		dir:      t.TempDir(),
		sequence: seq,
		opts:     kvslite.DefaultOptions(),
		lg:       logger.NoOpLogger{},
	}
}

// WithLogger sets a custom logger for the database.
func (h *RecoveryHarness) WithLogger(lg logger.Logger) *RecoveryHarness {
	h.lg = lg
	return h
}

// WithOptions overrides the database options.
func (h *RecoveryHarness) WithOptions(opts kvslite.Options) *RecoveryHarness {
	h.opts = opts
	return h
}

// WithDamage queues mutations applied to the encoded log in order.
func (h *RecoveryHarness) WithDamage(d ...Damage) *RecoveryHarness {
	h.damage = append(h.damage, d...)
	return h
}

// Dir returns the database directory.
func (h *RecoveryHarness) Dir() string {
	return h.dir
}

// Encoded returns the undamaged log bytes. Valid after Open.
func (h *RecoveryHarness) Encoded() []byte {
	return h.encoded
}

// Open writes the log and opens the database. The database is closed when
// the test ends.
func (h *RecoveryHarness) Open() *db.DB {
	h.t.Helper()

	h.encoded = EncodeAll(h.t, h.sequence.recs...)
	data := bytes.Clone(h.encoded)
	for _, d := range h.damage {
		data = d(data)
	}
	WriteLog(h.t, h.dir, data)

	d, err := db.Open(h.dir, h.opts, h.lg)
	tst.RequireNoError(h.t, err)
	h.t.Cleanup(func() { _ = d.Close() })

	h.db = d
	h.stats, err = d.Stats()
	tst.RequireNoError(h.t, err)
	return d
}

// Reopen closes the current database and opens it again from disk.
func (h *RecoveryHarness) Reopen() *db.DB {
	h.t.Helper()
	h.requireOpen()
	tst.RequireNoError(h.t, h.db.Close())

	d, err := db.Open(h.dir, h.opts, h.lg)
	tst.RequireNoError(h.t, err)
	h.t.Cleanup(func() { _ = d.Close() })

	h.db = d
	h.stats, err = d.Stats()
	tst.RequireNoError(h.t, err)
	return d
}

// Stats returns the statistics captured by the last Open or Reopen.
func (h *RecoveryHarness) Stats() db.Stats {
	return h.stats
}

func (h *RecoveryHarness) requireOpen() {
	h.t.Helper()
	if h.db == nil {
		h.t.Fatalf("database not opened; call Open first")
	}
}

// AssertTailStatus asserts the tail classification seen at open.
func (h *RecoveryHarness) AssertTailStatus(expected wal.TailStatus) {
	h.t.Helper()
	h.requireOpen()
	if h.stats.Recovery.TailStatus != expected {
		h.t.Fatalf("expected TailStatus=%v, got %v", expected, h.stats.Recovery.TailStatus)
	}
}

// AssertRecords asserts how many records replay accepted.
func (h *RecoveryHarness) AssertRecords(expected int) {
	h.t.Helper()
	h.requireOpen()
	if h.stats.Recovery.Records != expected {
		h.t.Fatalf("expected %d replayed records, got %d", expected, h.stats.Recovery.Records)
	}
}

// AssertLogicalSize asserts the byte length of the accepted prefix.
func (h *RecoveryHarness) AssertLogicalSize(expected int64) {
	h.t.Helper()
	h.requireOpen()
	if h.stats.Recovery.LogicalSize != expected {
		h.t.Fatalf("expected LogicalSize=%d, got %d", expected, h.stats.Recovery.LogicalSize)
	}
}

// AssertValue asserts that key maps to expected. Pass nil to assert absence.
func (h *RecoveryHarness) AssertValue(key string, expected []byte) {
	h.t.Helper()
	h.requireOpen()
	value, found, err := h.db.Get([]byte(key))
	tst.RequireNoError(h.t, err)
	if expected == nil {
		if found {
			h.t.Fatalf("expected key %q to be absent, got %q", key, value)
		}
		return
	}
	if !found {
		h.t.Fatalf("expected key %q to be present", key)
	}
	if !bytes.Equal(value, expected) {
		h.t.Fatalf("key %q: expected %q, got %q", key, expected, value)
	}
}

// AssertKeyCount asserts the number of live keys.
func (h *RecoveryHarness) AssertKeyCount(expected int) {
	h.t.Helper()
	h.requireOpen()
	stats, err := h.db.Stats()
	tst.RequireNoError(h.t, err)
	if stats.KeyCount != expected {
		h.t.Fatalf("expected %d live keys, got %d", expected, stats.KeyCount)
	}
}
