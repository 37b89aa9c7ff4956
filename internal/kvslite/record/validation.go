package record

// Validate checks a record against the type and size rules enforced by Encode.
func Validate(rec Record) error {
	if !rec.Type.Valid() {
		return &ValidationError{Field: "type", RawType: byte(rec.Type), Err: ErrInvalidType}
	}
	if err := ValidateSizes(len(rec.Key), len(rec.Value)); err != nil {
		return err
	}
	if rec.Type == RecordTypeDelete && len(rec.Value) != 0 {
		return &ValidationError{Field: "value", Size: len(rec.Value), Max: 0, Err: ErrInvalidLength}
	}
	return nil
}

// ValidateSizes checks key and value lengths against MaxKeySize and MaxValueSize.
func ValidateSizes(keyLen, valueLen int) error {
	if keyLen > MaxKeySize {
		return &ValidationError{Field: "key", Size: keyLen, Max: MaxKeySize, Err: ErrKeyTooLarge}
	}
	if valueLen > MaxValueSize {
		return &ValidationError{Field: "value", Size: valueLen, Max: MaxValueSize, Err: ErrValueTooLarge}
	}
	return nil
}
