package testutil

import (
	"os"
	"path/filepath"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/kvslite/internal/kvslite"
	"github.com/julianstephens/kvslite/internal/kvslite/record"
)

// LogPath returns the log file path inside a database directory.
func LogPath(dir string) string {
	return filepath.Join(dir, kvslite.WalFileName)
}

// Put builds a put record.
func Put(key, value string) record.Record {
	return record.Record{Type: record.RecordTypePut, Key: []byte(key), Value: []byte(value)}
}

// Del builds a delete record.
func Del(key string) record.Record {
	return record.Record{Type: record.RecordTypeDelete, Key: []byte(key)}
}

// EncodeAll concatenates the frames for recs.
func EncodeAll(t *testing.T, recs ...record.Record) []byte {
	t.Helper()
	var out []byte
	for _, rec := range recs {
		data, err := record.Encode(rec)
		tst.RequireNoError(t, err)
		out = append(out, data...)
	}
	return out
}

// WriteLog replaces the log in dir with data, creating dir if needed.
func WriteLog(t *testing.T, dir string, data []byte) string {
	t.Helper()
	tst.RequireNoError(t, os.MkdirAll(dir, 0o750))
	path := LogPath(dir)
	tst.RequireNoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// AppendBytes appends raw bytes to the file at path.
func AppendBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	tst.RequireNoError(t, err)
	defer func() { _ = f.Close() }()
	_, err = f.Write(data)
	tst.RequireNoError(t, err)
}

// FlipBit inverts one bit of the file at path.
func FlipBit(t *testing.T, path string, offset int64, bit uint) {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec
	tst.RequireNoError(t, err)
	if offset < 0 || offset >= int64(len(data)) {
		t.Fatalf("flip offset %d outside file of %d bytes", offset, len(data))
	}
	data[offset] ^= 1 << (bit % 8)
	tst.RequireNoError(t, os.WriteFile(path, data, 0o600))
}

// TruncateFile cuts the file at path to size bytes.
func TruncateFile(t *testing.T, path string, size int64) {
	t.Helper()
	tst.RequireNoError(t, os.Truncate(path, size))
}

// FileSize returns the size of the file at path.
func FileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	tst.RequireNoError(t, err)
	return info.Size()
}

// ReadFile returns the contents of the file at path.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec
	tst.RequireNoError(t, err)
	return data
}
