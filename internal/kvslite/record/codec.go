package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Encode serializes rec into a single frame.
func Encode(rec Record) ([]byte, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}

	keyLen, valueLen := len(rec.Key), len(rec.Value)
	recLen := BodyHeaderSize + keyLen + valueLen
	buf := make([]byte, HeaderSize+recLen+CRCSize)

	copy(buf[:MagicSize], Magic[:])
	binary.LittleEndian.PutUint32(buf[MagicSize:HeaderSize], uint32(recLen)) //nolint:gosec
	body := buf[HeaderSize : HeaderSize+recLen]
	body[0] = Version
	body[1] = byte(rec.Type)
	binary.LittleEndian.PutUint32(body[2:6], uint32(keyLen))   //nolint:gosec
	binary.LittleEndian.PutUint32(body[6:10], uint32(valueLen)) //nolint:gosec
	copy(body[BodyHeaderSize:], rec.Key)
	copy(body[BodyHeaderSize+keyLen:], rec.Value)

	crc := ComputeChecksum(buf[MagicSize : HeaderSize+recLen])
	binary.LittleEndian.PutUint32(buf[HeaderSize+recLen:], crc)

	return buf, nil
}

// Decode decodes the first frame in data.
func Decode(data []byte) (Frame, error) {
	return NewDecoder(bytes.NewReader(data)).Next()
}

// Decoder reads consecutive frames from a stream.
type Decoder struct {
	r      io.Reader
	offset int64
}

// NewDecoder creates a Decoder that reads frames from r, starting at offset 0.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Offset returns the number of bytes consumed from the underlying reader.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Next decodes the next frame.
//
// It returns io.EOF when the stream ends exactly on a frame boundary and a
// *ParseError when the bytes at the current position are not a valid frame.
// Any other error comes from the underlying reader. After a non-nil error
// the decoder must not be reused.
func (d *Decoder) Next() (Frame, error) {
	start := d.offset

	var hdr [HeaderSize]byte
	n, err := io.ReadFull(d.r, hdr[:MagicSize])
	d.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, truncatedOrErr(err, start, 0, HeaderSize, n)
	}

	if !bytes.Equal(hdr[:MagicSize], Magic[:]) {
		pe := &ParseError{
			Kind:          KindInvalidMagic,
			Offset:        start,
			ExpectedMagic: Magic,
			Err:           ErrInvalidMagic,
		}
		copy(pe.ActualMagic[:], hdr[:MagicSize])
		return Frame{}, pe
	}

	n, err = io.ReadFull(d.r, hdr[MagicSize:])
	d.offset += int64(n)
	if err != nil {
		return Frame{}, truncatedOrErr(err, start, 0, HeaderSize, MagicSize+n)
	}

	recLen := binary.LittleEndian.Uint32(hdr[MagicSize:])
	if recLen < BodyHeaderSize || recLen > MaxBodySize {
		return Frame{}, &ParseError{
			Kind:        KindInvalidLength,
			Offset:      start,
			DeclaredLen: recLen,
			Want:        MaxBodySize,
			Have:        int(recLen),
			Err:         ErrInvalidLength,
		}
	}

	// buf holds rec_len, the body and the trailing checksum so the
	// checksummed range is contiguous.
	buf := make([]byte, LenSize+int(recLen)+CRCSize)
	copy(buf[:LenSize], hdr[MagicSize:])
	n, err = io.ReadFull(d.r, buf[LenSize:])
	d.offset += int64(n)
	if err != nil {
		return Frame{}, truncatedOrErr(err, start, recLen, int(recLen)+CRCSize, n)
	}

	covered := buf[:LenSize+int(recLen)]
	stored := binary.LittleEndian.Uint32(buf[LenSize+int(recLen):])
	if actual := ComputeChecksum(covered); actual != stored {
		return Frame{}, &ParseError{
			Kind:        KindChecksumMismatch,
			Offset:      start,
			DeclaredLen: recLen,
			ExpectedCRC: stored,
			ActualCRC:   actual,
			Err:         ErrChecksumMismatch,
		}
	}

	body := buf[LenSize : LenSize+int(recLen)]
	if body[0] != Version {
		return Frame{}, &ParseError{
			Kind:        KindUnsupportedVersion,
			Offset:      start,
			DeclaredLen: recLen,
			Version:     body[0],
			Err:         ErrUnsupportedVersion,
		}
	}

	recType := RecordType(body[1])
	if !recType.Valid() {
		return Frame{}, &ParseError{
			Kind:        KindInvalidType,
			Offset:      start,
			DeclaredLen: recLen,
			RawType:     body[1],
			Err:         ErrInvalidType,
		}
	}

	keyLen := binary.LittleEndian.Uint32(body[2:6])
	valueLen := binary.LittleEndian.Uint32(body[6:10])
	if keyLen > MaxKeySize {
		return Frame{}, &ParseError{
			Kind:        KindKeyTooLarge,
			Offset:      start,
			DeclaredLen: recLen,
			Want:        MaxKeySize,
			Have:        int(keyLen),
			Err:         ErrKeyTooLarge,
		}
	}
	if valueLen > MaxValueSize {
		return Frame{}, &ParseError{
			Kind:        KindValueTooLarge,
			Offset:      start,
			DeclaredLen: recLen,
			Want:        MaxValueSize,
			Have:        int(valueLen),
			Err:         ErrValueTooLarge,
		}
	}
	if BodyHeaderSize+keyLen+valueLen != recLen || (recType == RecordTypeDelete && valueLen != 0) {
		return Frame{}, &ParseError{
			Kind:        KindInvalidLength,
			Offset:      start,
			DeclaredLen: recLen,
			Want:        int(recLen),
			Have:        int(BodyHeaderSize + keyLen + valueLen),
			Err:         ErrInvalidLength,
		}
	}

	keyEnd := BodyHeaderSize + keyLen
	rec := Record{
		Type: recType,
		Key:  body[BodyHeaderSize:keyEnd:keyEnd],
	}
	if recType == RecordTypePut {
		rec.Value = body[keyEnd:recLen:recLen]
	}

	return Frame{
		Offset: start,
		Size:   int64(HeaderSize) + int64(recLen) + CRCSize,
		Record: rec,
	}, nil
}

func truncatedOrErr(err error, start int64, declared uint32, want, have int) error {
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return &ParseError{
		Kind:        KindTruncated,
		Offset:      start,
		DeclaredLen: declared,
		Want:        want,
		Have:        have,
		Err:         io.ErrUnexpectedEOF,
	}
}
