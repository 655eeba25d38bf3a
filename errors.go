package xdr

import (
	"errors"
	"fmt"
)

var (
	ErrRange                    = errors.New("xdr: value out of range")
	ErrOverflow                 = errors.New("xdr: integer overflow")
	ErrLengthMismatch           = errors.New("xdr: length mismatch")
	ErrTruncatedInput           = errors.New("xdr: truncated input")
	ErrInvalidData              = errors.New("xdr: invalid data")
	ErrUnrecognizedDiscriminant = errors.New("xdr: unrecognized union discriminant")
	ErrMissingValue             = errors.New("xdr: union arm requires a value")
	ErrUnsupportedDefault       = errors.New("xdr: union has no default arm")
	ErrTrailingData             = errors.New("xdr: trailing data after value")
	ErrEncoding                 = errors.New("xdr: encoded text too long")
	ErrWrongType                = errors.New("xdr: value has wrong Go type")
	ErrUnknownType              = errors.New("xdr: unknown type")
	ErrUnsupported              = errors.New("xdr: unsupported Go type")
)

// errorf wraps a sentinel with context while keeping it matchable by errors.Is.
func errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
