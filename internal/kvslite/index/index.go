package index

import (
	"bytes"

	"github.com/google/btree"

	"github.com/julianstephens/kvslite/internal/kvslite/record"
)

const defaultDegree = 32

// ValuePos locates a value inside the log.
type ValuePos struct {
	Offset int64
	Len    uint32
}

type item struct {
	key []byte
	pos ValuePos
}

func less(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Index maps live keys to the position of their latest value. It is not
// safe for concurrent use.
type Index struct {
	tree *btree.BTreeG[item]
}

func New() *Index {
	return &Index{tree: btree.NewG(defaultDegree, less)}
}

// Put inserts or replaces the position for key. The key is copied.
func (ix *Index) Put(key []byte, pos ValuePos) {
	ix.tree.ReplaceOrInsert(item{key: bytes.Clone(nonNil(key)), pos: pos})
}

func (ix *Index) Get(key []byte) (ValuePos, bool) {
	it, ok := ix.tree.Get(item{key: key})
	if !ok {
		return ValuePos{}, false
	}
	return it.pos, true
}

// Delete removes key and reports whether it was present.
func (ix *Index) Delete(key []byte) bool {
	_, ok := ix.tree.Delete(item{key: key})
	return ok
}

func (ix *Index) Len() int {
	return ix.tree.Len()
}

// Keys returns copies of all keys in ascending byte order.
func (ix *Index) Keys() [][]byte {
	keys := make([][]byte, 0, ix.tree.Len())
	ix.tree.Ascend(func(it item) bool {
		keys = append(keys, bytes.Clone(it.key))
		return true
	})
	return keys
}

// Apply folds one replayed frame into the index: a put records the value's
// position and a delete removes the key.
func (ix *Index) Apply(f record.Frame) error {
	switch f.Record.Type {
	case record.RecordTypePut:
		ix.Put(f.Record.Key, ValuePos{Offset: f.ValueOffset(), Len: f.ValueLen()})
	case record.RecordTypeDelete:
		ix.Delete(f.Record.Key)
	default:
		return record.ErrInvalidType
	}
	return nil
}

// bytes.Clone(nil) is nil; the empty key is stored as a non-nil empty slice.
func nonNil(key []byte) []byte {
	if key == nil {
		return []byte{}
	}
	return key
}
