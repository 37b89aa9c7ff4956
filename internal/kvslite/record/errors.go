package record

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrTruncated          = errors.New("record: truncated")
	ErrInvalidMagic       = errors.New("record: invalid magic")
	ErrInvalidLength      = errors.New("record: invalid length")
	ErrChecksumMismatch   = errors.New("record: checksum mismatch")
	ErrUnsupportedVersion = errors.New("record: unsupported version")
	ErrInvalidType        = errors.New("record: invalid type")
	ErrKeyTooLarge        = errors.New("record: key too large")
	ErrValueTooLarge      = errors.New("record: value too large")
)

type ParseErrorKind uint8

const (
	KindTruncated ParseErrorKind = iota
	KindInvalidMagic
	KindInvalidLength
	KindChecksumMismatch
	KindUnsupportedVersion
	KindInvalidType
	KindKeyTooLarge
	KindValueTooLarge
)

func (k ParseErrorKind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindInvalidMagic:
		return "invalid_magic"
	case KindInvalidLength:
		return "invalid_length"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindInvalidType:
		return "invalid_type"
	case KindKeyTooLarge:
		return "key_too_large"
	case KindValueTooLarge:
		return "value_too_large"
	default:
		return "unknown"
	}
}

func (k ParseErrorKind) sentinel() error {
	switch k {
	case KindTruncated:
		return ErrTruncated
	case KindInvalidMagic:
		return ErrInvalidMagic
	case KindInvalidLength:
		return ErrInvalidLength
	case KindChecksumMismatch:
		return ErrChecksumMismatch
	case KindUnsupportedVersion:
		return ErrUnsupportedVersion
	case KindInvalidType:
		return ErrInvalidType
	case KindKeyTooLarge:
		return ErrKeyTooLarge
	case KindValueTooLarge:
		return ErrValueTooLarge
	default:
		return nil
	}
}

// ParseError describes a frame that could not be decoded. Every ParseError
// marks the end of the trustworthy portion of a log.
type ParseError struct {
	Kind ParseErrorKind
	// Offset is the starting byte offset of the failing frame (at the magic).
	Offset      int64
	DeclaredLen uint32

	ExpectedMagic [MagicSize]byte
	ActualMagic   [MagicSize]byte
	// ExpectedCRC is the checksum stored in the frame; ActualCRC is the one recomputed from its bytes.
	ExpectedCRC uint32
	ActualCRC   uint32
	Version     byte
	RawType     byte

	Want int
	Have int
	Err  error
}

func (e *ParseError) Error() string {
	var detail string
	switch e.Kind {
	case KindInvalidMagic:
		detail = fmt.Sprintf("expected=%q actual=%q", e.ExpectedMagic[:], e.ActualMagic[:])
	case KindChecksumMismatch:
		detail = fmt.Sprintf("expected=0x%08x actual=0x%08x", e.ExpectedCRC, e.ActualCRC)
	case KindUnsupportedVersion:
		detail = fmt.Sprintf("version=%d", e.Version)
	case KindInvalidType:
		detail = fmt.Sprintf("type=0x%02x", e.RawType)
	default:
		detail = fmt.Sprintf("len=%d want=%d have=%d", e.DeclaredLen, e.Want, e.Have)
	}
	return fmt.Sprintf("record parse error kind=%s offset=%d %s", e.Kind, e.Offset, detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// ValidationError rejects a record before it is encoded. It is a caller
// error and never indicates corruption.
type ValidationError struct {
	Field   string // "key", "value" or "type"
	Size    int
	Max     int
	RawType byte
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "type" {
		return fmt.Sprintf("%v: 0x%02x", e.Err, e.RawType)
	}
	return fmt.Sprintf("%v: size=%d max=%d", e.Err, e.Size, e.Max)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func IsCleanEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func IsTruncation(err error) bool {
	return errors.Is(err, ErrTruncated)
}

// IsCorruption reports whether err came from decoding damaged or incomplete bytes.
func IsCorruption(err error) bool {
	_, ok := AsParseError(err)
	return ok
}
