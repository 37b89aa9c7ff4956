package config

import (
	"errors"
	"fmt"
)

type ConfigErrorKind int

const (
	ConfigErrorKindNotFound ConfigErrorKind = iota + 1
	ConfigErrorKindAlreadyExists
	ConfigErrorKindUnsupportedVersion
	ConfigErrorKindInvalid
	ConfigErrorKindEncode
	ConfigErrorKindDecode
	ConfigErrorKindWrite
)

var (
	ErrConfigNotFound           = errors.New("config: file not found")
	ErrConfigAlreadyExists      = errors.New("config: file already exists")
	ErrConfigUnsupportedVersion = errors.New("config: unsupported version")
	ErrConfigInvalid            = errors.New("config: invalid value")
	ErrConfigEncode             = errors.New("config: unable to encode to JSON")
	ErrConfigDecode             = errors.New("config: unable to decode from JSON")
	ErrConfigWrite              = errors.New("config: unable to write to file")
)

func (k ConfigErrorKind) sentinel() error {
	switch k {
	case ConfigErrorKindNotFound:
		return ErrConfigNotFound
	case ConfigErrorKindAlreadyExists:
		return ErrConfigAlreadyExists
	case ConfigErrorKindUnsupportedVersion:
		return ErrConfigUnsupportedVersion
	case ConfigErrorKindInvalid:
		return ErrConfigInvalid
	case ConfigErrorKindEncode:
		return ErrConfigEncode
	case ConfigErrorKindDecode:
		return ErrConfigDecode
	case ConfigErrorKindWrite:
		return ErrConfigWrite
	default:
		return nil
	}
}

type ConfigError struct {
	Kind ConfigErrorKind
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%v", e.Kind.sentinel())
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
