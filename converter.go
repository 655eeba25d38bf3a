// Package xdr implements RFC 4506 External Data Representation encoding.
//
// Every XDR type is a Converter: a stateless value that writes to a
// WriteStream and reads from a ReadStream. Primitive converters are package
// variables; compound ones (Enum, Struct, Union, Option, arrays, opaque and
// strings) are built from other converters. Named and mutually recursive
// types are registered lazily in a Graph. Marshal and Unmarshal derive
// converters for Go structs by reflection.
package xdr

import (
	"fmt"
	"reflect"
)

// Converter encodes and decodes values of one XDR type through a stream.
// Converters hold no stream state and may be shared freely.
type Converter[T any] interface {
	Encode(v T, w *WriteStream) error
	Decode(r *ReadStream) (T, error)
	// IsValid reports whether Encode would accept v. It never fails.
	IsValid(v T) bool
}

// discriminator is implemented by converters that can map a raw 32-bit
// discriminant onto their own domain without touching a stream.
type discriminator[T any] interface {
	fromRaw(raw int32) (T, bool)
}

// prober is implemented by wrappers that may or may not sit on top of a
// discriminator. probe may materialize the wrapped converter.
type prober[T any] interface {
	probe() (discriminator[T], bool)
}

func probeOf[T any](c Converter[T]) (discriminator[T], bool) {
	switch p := c.(type) {
	case discriminator[T]:
		return p, true
	case prober[T]:
		return p.probe()
	}
	return nil, false
}

// Encode runs c against a fresh stream and returns the trimmed output.
func Encode[T any](c Converter[T], v T) ([]byte, error) {
	w := NewWriteStream()
	if err := c.Encode(v, w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode runs c over data and requires the whole buffer to be consumed.
func Decode[T any](c Converter[T], data []byte) (T, error) {
	r := NewReadStream(data)
	v, err := c.Decode(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if !r.EndReached() {
		var zero T
		return zero, errorf(ErrTrailingData, "%d of %d bytes unread", r.Remaining(), len(data))
	}
	return v, nil
}

// Erase adapts c to Converter[any]. Encoding a value of another Go type
// fails with ErrWrongType. A nil value stands for the zero T when T is a
// pointer, slice, map, interface or empty struct type.
func Erase[T any](c Converter[T]) Converter[any] {
	if ac, ok := any(c).(Converter[any]); ok {
		return ac
	}
	return erased[T]{c: c, nilable: nilable(reflect.TypeFor[T]())}
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	case reflect.Struct:
		return t.Size() == 0
	}
	return false
}

type erased[T any] struct {
	c       Converter[T]
	nilable bool
}

func (e erased[T]) cast(v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, e.nilable
	}
	t, ok := v.(T)
	return t, ok
}

func (e erased[T]) Encode(v any, w *WriteStream) error {
	t, ok := e.cast(v)
	if !ok {
		var zero T
		return fmt.Errorf("%w: got %T, want %T", ErrWrongType, v, zero)
	}
	return e.c.Encode(t, w)
}

func (e erased[T]) Decode(r *ReadStream) (any, error) {
	v, err := e.c.Decode(r)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e erased[T]) IsValid(v any) bool {
	t, ok := e.cast(v)
	return ok && e.c.IsValid(t)
}

func (e erased[T]) probe() (discriminator[any], bool) {
	d, ok := probeOf(e.c)
	if !ok {
		return nil, false
	}
	return erasedDiscriminator[T]{d}, true
}

type erasedDiscriminator[T any] struct {
	d discriminator[T]
}

func (e erasedDiscriminator[T]) fromRaw(raw int32) (any, bool) {
	v, ok := e.d.fromRaw(raw)
	if !ok {
		return nil, false
	}
	return v, true
}
