package record

// RecordType identifies the mutation a record carries.
type RecordType uint8

const (
	RecordTypeUnknown RecordType = iota
	RecordTypePut
	RecordTypeDelete
)

func (t RecordType) String() string {
	switch t {
	case RecordTypePut:
		return "put"
	case RecordTypeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the record types that may appear in a log.
func (t RecordType) Valid() bool {
	return t == RecordTypePut || t == RecordTypeDelete
}

// Frame layout
//
//	magic(4) | rec_len(4) | version(1) | type(1) | key_len(4) | val_len(4) | key | value | crc32(4)
//
// All integers are little-endian. rec_len counts version through the end of
// value. The checksum covers rec_len through the end of value.
const (
	MagicSize      = 4
	LenSize        = 4
	HeaderSize     = MagicSize + LenSize
	BodyHeaderSize = 1 + 1 + 4 + 4
	CRCSize        = 4

	// FrameOverhead is the encoded size of a record with an empty key and value.
	FrameOverhead = HeaderSize + BodyHeaderSize + CRCSize

	Version byte = 1

	MaxKeySize   = 1024
	MaxValueSize = 1 << 20

	// MaxBodySize is the largest rec_len a well-formed frame can declare.
	MaxBodySize = BodyHeaderSize + MaxKeySize + MaxValueSize
)

// Magic marks the start of every frame.
var Magic = [MagicSize]byte{'K', 'V', 'S', 'L'}

// Record is a single logical mutation. Delete records carry no value.
type Record struct {
	Type  RecordType
	Key   []byte
	Value []byte
}

// NewPut builds a put record, rejecting keys and values over the size limits.
func NewPut(key, value []byte) (Record, error) {
	rec := Record{Type: RecordTypePut, Key: key, Value: value}
	if err := Validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// NewDelete builds a delete record for key.
func NewDelete(key []byte) (Record, error) {
	rec := Record{Type: RecordTypeDelete, Key: key}
	if err := Validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Frame is a decoded record together with its position in the log.
type Frame struct {
	// Offset is the byte offset of the frame's magic.
	Offset int64
	// Size is the number of bytes the frame occupies.
	Size   int64
	Record Record
}

// End returns the offset of the first byte after the frame.
func (f Frame) End() int64 {
	return f.Offset + f.Size
}

// ValueOffset returns the absolute offset of the first value byte.
func (f Frame) ValueOffset() int64 {
	return f.Offset + ValueOffset(len(f.Record.Key))
}

// ValueLen returns the length of the record's value.
func (f Frame) ValueLen() uint32 {
	return uint32(len(f.Record.Value)) //nolint:gosec
}

// EncodedSize returns the frame size for a record with the given key and value lengths.
func EncodedSize(keyLen, valueLen int) int64 {
	return int64(FrameOverhead + keyLen + valueLen)
}

// ValueOffset returns the position of the value within a frame whose key has keyLen bytes.
func ValueOffset(keyLen int) int64 {
	return int64(HeaderSize + BodyHeaderSize + keyLen)
}
