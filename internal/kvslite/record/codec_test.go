package record_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/julianstephens/kvslite/internal/kvslite/record"
)

// rawFrame builds a frame from explicit header fields so tests can produce
// frames the encoder refuses to emit. The checksum is always correct.
func rawFrame(recLen uint32, version, recType byte, keyLen, valueLen uint32, key, value []byte) []byte {
	body := new(bytes.Buffer)
	_ = binary.Write(body, binary.LittleEndian, recLen)
	body.WriteByte(version)
	body.WriteByte(recType)
	_ = binary.Write(body, binary.LittleEndian, keyLen)
	_ = binary.Write(body, binary.LittleEndian, valueLen)
	body.Write(key)
	body.Write(value)

	crc := crc32.ChecksumIEEE(body.Bytes())

	buf := new(bytes.Buffer)
	buf.WriteString("KVSL")
	buf.Write(body.Bytes())
	_ = binary.Write(buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

func mustEncode(t *testing.T, rec record.Record) []byte {
	t.Helper()
	data, err := record.Encode(rec)
	assert.NoError(t, err)
	return data
}

func TestEncode_Layout(t *testing.T) {
	data := mustEncode(t, record.Record{Type: record.RecordTypePut, Key: []byte("ab"), Value: []byte("xyz")})

	want := rawFrame(15, 1, 1, 2, 3, []byte("ab"), []byte("xyz"))
	assert.Equal(t, want, data)
	assert.Equal(t, int64(len(data)), record.EncodedSize(2, 3))
	assert.Equal(t, []byte("KVSL"), data[:4])
	assert.Equal(t, uint32(15), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, []byte("xyz"), data[record.ValueOffset(2):record.ValueOffset(2)+3])
}

func TestChecksum_IEEEPolynomial(t *testing.T) {
	// Standard CRC-32 check value for "123456789".
	assert.Equal(t, uint32(0xCBF43926), record.ComputeChecksum([]byte("123456789")))
	assert.True(t, record.VerifyChecksum([]byte("123456789"), 0xCBF43926))
	assert.False(t, record.VerifyChecksum([]byte("123456789"), 0xE3069283))

	data := mustEncode(t, record.Record{Type: record.RecordTypeDelete, Key: []byte("k")})
	stored := binary.LittleEndian.Uint32(data[len(data)-record.CRCSize:])
	assert.Equal(t, crc32.ChecksumIEEE(data[record.MagicSize:len(data)-record.CRCSize]), stored)
}

func TestRoundTrip_TableDriven(t *testing.T) {
	testCases := []struct {
		name string
		rec  record.Record
	}{
		{"put", record.Record{Type: record.RecordTypePut, Key: []byte("hello"), Value: []byte("world")}},
		{"put_empty_value", record.Record{Type: record.RecordTypePut, Key: []byte("k"), Value: []byte{}}},
		{"put_empty_key", record.Record{Type: record.RecordTypePut, Key: []byte{}, Value: []byte("v")}},
		{"delete", record.Record{Type: record.RecordTypeDelete, Key: []byte("gone")}},
		{"max_key", record.Record{
			Type:  record.RecordTypePut,
			Key:   bytes.Repeat([]byte{'k'}, record.MaxKeySize),
			Value: []byte("v"),
		}},
		{"max_value", record.Record{
			Type:  record.RecordTypePut,
			Key:   []byte("big"),
			Value: bytes.Repeat([]byte{0xAB}, record.MaxValueSize),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := mustEncode(t, tc.rec)

			frame, err := record.Decode(data)
			assert.NoError(t, err)
			assert.Equal(t, tc.rec.Type, frame.Record.Type)
			assert.True(t, bytes.Equal(tc.rec.Key, frame.Record.Key))
			assert.True(t, bytes.Equal(tc.rec.Value, frame.Record.Value))
			assert.Equal(t, int64(0), frame.Offset)
			assert.Equal(t, int64(len(data)), frame.Size)
			assert.Equal(t, uint32(len(tc.rec.Value)), frame.ValueLen())
		})
	}
}

func TestDecoder_ReadsConsecutiveFrames(t *testing.T) {
	recs := []record.Record{
		{Type: record.RecordTypePut, Key: []byte("a"), Value: []byte("1")},
		{Type: record.RecordTypeDelete, Key: []byte("a")},
		{Type: record.RecordTypePut, Key: []byte("bb"), Value: []byte("22")},
	}

	var stream []byte
	var offsets []int64
	for _, rec := range recs {
		offsets = append(offsets, int64(len(stream)))
		stream = append(stream, mustEncode(t, rec)...)
	}

	dec := record.NewDecoder(bytes.NewReader(stream))
	for i, rec := range recs {
		frame, err := dec.Next()
		assert.NoError(t, err)
		assert.Equal(t, offsets[i], frame.Offset)
		assert.Equal(t, rec.Type, frame.Record.Type)
		assert.Equal(t, string(rec.Key), string(frame.Record.Key))
		assert.Equal(t, frame.End(), dec.Offset())
		if rec.Type == record.RecordTypePut {
			assert.Equal(t, string(rec.Value), string(stream[frame.ValueOffset():frame.ValueOffset()+int64(frame.ValueLen())]))
		}
	}

	_, err := dec.Next()
	assert.True(t, record.IsCleanEOF(err))
	assert.Equal(t, int64(len(stream)), dec.Offset())
}

func TestDecode_EmptyInputIsCleanEOF(t *testing.T) {
	_, err := record.Decode(nil)
	assert.True(t, errors.Is(err, io.EOF))
	assert.False(t, record.IsCorruption(err))
}

func TestDecode_TruncatedAtEveryOffset(t *testing.T) {
	data := mustEncode(t, record.Record{Type: record.RecordTypePut, Key: []byte("key"), Value: []byte("value")})

	for cut := 1; cut < len(data); cut++ {
		_, err := record.Decode(data[:cut])
		assert.Error(t, err)
		assert.True(t, record.IsTruncation(err), "cut=%d err=%v", cut, err)
		assert.True(t, record.IsCorruption(err), "cut=%d", cut)

		pe, ok := record.AsParseError(err)
		assert.True(t, ok)
		assert.Equal(t, record.KindTruncated, pe.Kind)
		assert.Equal(t, int64(0), pe.Offset)
	}
}

func TestDecode_EveryBitFlipDetected(t *testing.T) {
	data := mustEncode(t, record.Record{Type: record.RecordTypePut, Key: []byte("k1"), Value: []byte("v1")})

	for i := range data {
		for bit := 0; bit < 8; bit++ {
			corrupt := bytes.Clone(data)
			corrupt[i] ^= 1 << bit

			_, err := record.Decode(corrupt)
			assert.Error(t, err, "byte=%d bit=%d", i, bit)
			assert.True(t, record.IsCorruption(err), "byte=%d bit=%d err=%v", i, bit, err)
		}
	}
}

func TestDecode_ChecksumMismatchReportsBothValues(t *testing.T) {
	data := mustEncode(t, record.Record{Type: record.RecordTypePut, Key: []byte("k"), Value: []byte("v")})
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	data[len(data)-5] ^= 0xFF

	_, err := record.Decode(data)
	assert.IsError(t, err, record.ErrChecksumMismatch)

	pe, ok := record.AsParseError(err)
	assert.True(t, ok)
	assert.Equal(t, stored, pe.ExpectedCRC)
	assert.NotEqual(t, stored, pe.ActualCRC)
	assert.Equal(t, record.ComputeChecksum(data[4:len(data)-4]), pe.ActualCRC)
}

func TestDecode_ErrorDetection_TableDriven(t *testing.T) {
	testCases := []struct {
		name         string
		data         []byte
		expectedKind record.ParseErrorKind
		sentinel     error
	}{
		{
			name: "invalid_magic",
			data: func() []byte {
				b := rawFrame(11, 1, 1, 1, 0, []byte("k"), nil)
				copy(b, "XXXX")
				return b
			}(),
			expectedKind: record.KindInvalidMagic,
			sentinel:     record.ErrInvalidMagic,
		},
		{
			name:         "rec_len_below_minimum",
			data:         rawFrame(9, 1, 1, 0, 0, nil, nil),
			expectedKind: record.KindInvalidLength,
			sentinel:     record.ErrInvalidLength,
		},
		{
			name: "rec_len_above_maximum",
			data: func() []byte {
				b := []byte("KVSL")
				return binary.LittleEndian.AppendUint32(b, record.MaxBodySize+1)
			}(),
			expectedKind: record.KindInvalidLength,
			sentinel:     record.ErrInvalidLength,
		},
		{
			name:         "unsupported_version",
			data:         rawFrame(11, 2, 1, 1, 0, []byte("k"), nil),
			expectedKind: record.KindUnsupportedVersion,
			sentinel:     record.ErrUnsupportedVersion,
		},
		{
			name:         "invalid_type",
			data:         rawFrame(11, 1, 3, 1, 0, []byte("k"), nil),
			expectedKind: record.KindInvalidType,
			sentinel:     record.ErrInvalidType,
		},
		{
			name:         "zero_type",
			data:         rawFrame(11, 1, 0, 1, 0, []byte("k"), nil),
			expectedKind: record.KindInvalidType,
			sentinel:     record.ErrInvalidType,
		},
		{
			name:         "key_len_too_large",
			data:         rawFrame(11, 1, 1, record.MaxKeySize+1, 0, []byte("k"), nil),
			expectedKind: record.KindKeyTooLarge,
			sentinel:     record.ErrKeyTooLarge,
		},
		{
			name:         "value_len_too_large",
			data:         rawFrame(11, 1, 1, 1, record.MaxValueSize+1, []byte("k"), nil),
			expectedKind: record.KindValueTooLarge,
			sentinel:     record.ErrValueTooLarge,
		},
		{
			name:         "lengths_disagree_with_rec_len",
			data:         rawFrame(12, 1, 1, 1, 0, []byte("k"), []byte("v")),
			expectedKind: record.KindInvalidLength,
			sentinel:     record.ErrInvalidLength,
		},
		{
			name:         "delete_with_value",
			data:         rawFrame(12, 1, 2, 1, 1, []byte("k"), []byte("v")),
			expectedKind: record.KindInvalidLength,
			sentinel:     record.ErrInvalidLength,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := record.Decode(tc.data)
			assert.IsError(t, err, tc.sentinel)
			assert.True(t, record.IsCorruption(err))

			pe, ok := record.AsParseError(err)
			assert.True(t, ok)
			assert.Equal(t, tc.expectedKind, pe.Kind)
		})
	}
}

func TestDecode_InvalidMagicReportsBytes(t *testing.T) {
	data := rawFrame(11, 1, 1, 1, 0, []byte("k"), nil)
	copy(data, "ABCD")

	_, err := record.Decode(data)
	pe, ok := record.AsParseError(err)
	assert.True(t, ok)
	assert.Equal(t, record.Magic, pe.ExpectedMagic)
	assert.Equal(t, [4]byte{'A', 'B', 'C', 'D'}, pe.ActualMagic)
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDecoder_PropagatesReaderErrors(t *testing.T) {
	ioErr := errors.New("disk on fire")
	data := mustEncode(t, record.Record{Type: record.RecordTypePut, Key: []byte("k"), Value: []byte("v")})

	dec := record.NewDecoder(&failingReader{data: data[:10], err: ioErr})
	_, err := dec.Next()
	assert.IsError(t, err, ioErr)
	assert.False(t, record.IsCorruption(err))
}

func TestEncode_SizeLimits(t *testing.T) {
	testCases := []struct {
		name     string
		rec      record.Record
		sentinel error
	}{
		{
			name:     "key_too_large",
			rec:      record.Record{Type: record.RecordTypePut, Key: make([]byte, record.MaxKeySize+1)},
			sentinel: record.ErrKeyTooLarge,
		},
		{
			name:     "value_too_large",
			rec:      record.Record{Type: record.RecordTypePut, Key: []byte("k"), Value: make([]byte, record.MaxValueSize+1)},
			sentinel: record.ErrValueTooLarge,
		},
		{
			name:     "delete_key_too_large",
			rec:      record.Record{Type: record.RecordTypeDelete, Key: make([]byte, record.MaxKeySize+1)},
			sentinel: record.ErrKeyTooLarge,
		},
		{
			name:     "unknown_type",
			rec:      record.Record{Type: record.RecordType(9), Key: []byte("k")},
			sentinel: record.ErrInvalidType,
		},
		{
			name:     "delete_with_value",
			rec:      record.Record{Type: record.RecordTypeDelete, Key: []byte("k"), Value: []byte("v")},
			sentinel: record.ErrInvalidLength,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := record.Encode(tc.rec)
			assert.IsError(t, err, tc.sentinel)
			assert.Equal(t, 0, len(data))
			assert.False(t, record.IsCorruption(err))

			var ve *record.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestConstructors(t *testing.T) {
	put, err := record.NewPut([]byte("k"), []byte("v"))
	assert.NoError(t, err)
	assert.Equal(t, record.RecordTypePut, put.Type)

	del, err := record.NewDelete([]byte("k"))
	assert.NoError(t, err)
	assert.Equal(t, record.RecordTypeDelete, del.Type)
	assert.Equal(t, 0, len(del.Value))

	_, err = record.NewPut(make([]byte, record.MaxKeySize+1), nil)
	assert.IsError(t, err, record.ErrKeyTooLarge)

	_, err = record.NewPut([]byte("k"), make([]byte, record.MaxValueSize+1))
	assert.IsError(t, err, record.ErrValueTooLarge)
}
