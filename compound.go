package xdr

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// Unbounded is the largest length a variable-size type can declare.
const Unbounded = math.MaxUint32

// EnumConverter maps enumerator names onto their int32 wire values.
type EnumConverter[E ~string] struct {
	name   string
	values map[E]int32
	names  map[int32]E
}

// NewEnum checks that values is a bijection before building the converter.
func NewEnum[E ~string](name string, values map[E]int32) (*EnumConverter[E], error) {
	names := make(map[int32]E, len(values))
	for n, v := range values {
		if prev, dup := names[v]; dup {
			return nil, errorf(ErrInvalidData, "enum %s: %s and %s share value %d", name, prev, n, v)
		}
		names[v] = n
	}
	vals := make(map[E]int32, len(values))
	for n, v := range values {
		vals[n] = v
	}
	return &EnumConverter[E]{name: name, values: vals, names: names}, nil
}

// Enum is NewEnum for mappings known to be valid; it panics otherwise.
func Enum[E ~string](name string, values map[E]int32) *EnumConverter[E] {
	c, err := NewEnum(name, values)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *EnumConverter[E]) Name() string { return c.name }

// Names lists the enumerators ordered by wire value.
func (c *EnumConverter[E]) Names() []E {
	out := make([]E, 0, len(c.values))
	for n := range c.values {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b E) int { return cmp.Compare(c.values[a], c.values[b]) })
	return out
}

// Value returns the wire value of an enumerator.
func (c *EnumConverter[E]) Value(n E) (int32, bool) {
	v, ok := c.values[n]
	return v, ok
}

func (c *EnumConverter[E]) Encode(v E, w *WriteStream) error {
	raw, ok := c.values[v]
	if !ok {
		return errorf(ErrInvalidData, "enum %s has no enumerator %q", c.name, string(v))
	}
	w.WriteInt32(raw)
	return nil
}

func (c *EnumConverter[E]) Decode(r *ReadStream) (E, error) {
	var zero E
	raw, err := r.ReadInt32()
	if err != nil {
		return zero, err
	}
	n, ok := c.names[raw]
	if !ok {
		return zero, errorf(ErrInvalidData, "enum %s has no value %d", c.name, raw)
	}
	return n, nil
}

func (c *EnumConverter[E]) IsValid(v E) bool {
	_, ok := c.values[v]
	return ok
}

func (c *EnumConverter[E]) fromRaw(raw int32) (E, bool) {
	n, ok := c.names[raw]
	return n, ok
}

// Field is one member of a struct converter. Build fields with FieldOf or
// FieldFunc.
type Field[S any] interface {
	FieldName() string
	encodeFrom(s *S, w *WriteStream) error
	decodeInto(s *S, r *ReadStream) error
	validIn(s *S) bool
}

type refField[S, F any] struct {
	name string
	conv Converter[F]
	ref  func(*S) *F
}

// FieldOf binds a field reached through a pointer accessor, typically
// func(s *S) *F { return &s.X }.
func FieldOf[S, F any](name string, conv Converter[F], ref func(*S) *F) Field[S] {
	return refField[S, F]{name: name, conv: conv, ref: ref}
}

func (f refField[S, F]) FieldName() string { return f.name }

func (f refField[S, F]) encodeFrom(s *S, w *WriteStream) error {
	return f.conv.Encode(*f.ref(s), w)
}

func (f refField[S, F]) decodeInto(s *S, r *ReadStream) error {
	v, err := f.conv.Decode(r)
	if err != nil {
		return err
	}
	*f.ref(s) = v
	return nil
}

func (f refField[S, F]) validIn(s *S) bool { return f.conv.IsValid(*f.ref(s)) }

type funcField[S, F any] struct {
	name string
	conv Converter[F]
	get  func(*S) F
	set  func(*S, F)
}

// FieldFunc binds a field through a getter and setter pair, for containers
// such as maps where a field has no addressable storage.
func FieldFunc[S, F any](name string, conv Converter[F], get func(*S) F, set func(*S, F)) Field[S] {
	return funcField[S, F]{name: name, conv: conv, get: get, set: set}
}

func (f funcField[S, F]) FieldName() string { return f.name }

func (f funcField[S, F]) encodeFrom(s *S, w *WriteStream) error {
	return f.conv.Encode(f.get(s), w)
}

func (f funcField[S, F]) decodeInto(s *S, r *ReadStream) error {
	v, err := f.conv.Decode(r)
	if err != nil {
		return err
	}
	f.set(s, v)
	return nil
}

func (f funcField[S, F]) validIn(s *S) bool { return f.conv.IsValid(f.get(s)) }

// StructConverter writes its fields back to back in declaration order.
type StructConverter[S any] struct {
	name   string
	fields []Field[S]
}

func Struct[S any](name string, fields ...Field[S]) *StructConverter[S] {
	return &StructConverter[S]{name: name, fields: fields}
}

func (c *StructConverter[S]) Name() string { return c.name }

// FieldNames lists the fields in wire order.
func (c *StructConverter[S]) FieldNames() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.FieldName()
	}
	return out
}

func (c *StructConverter[S]) Encode(v S, w *WriteStream) error {
	for _, f := range c.fields {
		if err := f.encodeFrom(&v, w); err != nil {
			return fmt.Errorf("%s.%s: %w", c.name, f.FieldName(), err)
		}
	}
	return nil
}

func (c *StructConverter[S]) Decode(r *ReadStream) (S, error) {
	var v S
	for _, f := range c.fields {
		if err := f.decodeInto(&v, r); err != nil {
			var zero S
			return zero, fmt.Errorf("%s.%s: %w", c.name, f.FieldName(), err)
		}
	}
	return v, nil
}

func (c *StructConverter[S]) IsValid(v S) bool {
	for _, f := range c.fields {
		if !f.validIn(&v) {
			return false
		}
	}
	return true
}

type optionConv[T any] struct {
	inner Converter[T]
}

// Option wraps inner as an optional value: nil is absent (flag 0), anything
// else is present (flag 1) followed by the value.
func Option[T any](inner Converter[T]) Converter[*T] {
	return optionConv[T]{inner: inner}
}

func (c optionConv[T]) Encode(v *T, w *WriteStream) error {
	if v == nil {
		w.WriteUint32(0)
		return nil
	}
	w.WriteUint32(1)
	return c.inner.Encode(*v, w)
}

// Decode accepts only 0 and 1 as presence flags.
func (c optionConv[T]) Decode(r *ReadStream) (*T, error) {
	flag, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case 1:
		v, err := c.inner.Decode(r)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	return nil, errorf(ErrInvalidData, "option flag %d", flag)
}

func (c optionConv[T]) IsValid(v *T) bool {
	return v == nil || c.inner.IsValid(*v)
}

type fixedArrayConv[T any] struct {
	inner Converter[T]
	n     int
}

// FixedArray encodes exactly n elements with no length prefix.
func FixedArray[T any](inner Converter[T], n int) Converter[[]T] {
	return fixedArrayConv[T]{inner: inner, n: n}
}

func (c fixedArrayConv[T]) Encode(v []T, w *WriteStream) error {
	if len(v) != c.n {
		return errorf(ErrLengthMismatch, "array has %d elements, want %d", len(v), c.n)
	}
	return encodeElems(c.inner, v, w)
}

func (c fixedArrayConv[T]) Decode(r *ReadStream) ([]T, error) {
	return decodeElems(c.inner, c.n, r)
}

func (c fixedArrayConv[T]) IsValid(v []T) bool {
	return len(v) == c.n && validElems(c.inner, v)
}

type varArrayConv[T any] struct {
	inner Converter[T]
	max   uint32
}

// VarArray encodes a length prefix followed by at most max elements.
func VarArray[T any](inner Converter[T], max uint32) Converter[[]T] {
	return varArrayConv[T]{inner: inner, max: max}
}

func (c varArrayConv[T]) Encode(v []T, w *WriteStream) error {
	if uint64(len(v)) > uint64(c.max) {
		return errorf(ErrLengthMismatch, "array has %d elements, max %d", len(v), c.max)
	}
	w.WriteUint32(uint32(len(v)))
	return encodeElems(c.inner, v, w)
}

func (c varArrayConv[T]) Decode(r *ReadStream) ([]T, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > c.max {
		return nil, errorf(ErrInvalidData, "array length %d exceeds max %d", n, c.max)
	}
	return decodeElems(c.inner, int(n), r)
}

func (c varArrayConv[T]) IsValid(v []T) bool {
	return uint64(len(v)) <= uint64(c.max) && validElems(c.inner, v)
}

func encodeElems[T any](inner Converter[T], v []T, w *WriteStream) error {
	for i := range v {
		if err := inner.Encode(v[i], w); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func decodeElems[T any](inner Converter[T], n int, r *ReadStream) ([]T, error) {
	// A hostile count must not drive the allocation; elements are at least
	// one byte unless they are void.
	out := make([]T, 0, min(n, r.Remaining()))
	for i := 0; i < n; i++ {
		v, err := inner.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func validElems[T any](inner Converter[T], v []T) bool {
	for i := range v {
		if !inner.IsValid(v[i]) {
			return false
		}
	}
	return true
}

type opaqueConv struct{ n int }

// Opaque is exactly n raw bytes, padded.
func Opaque(n int) Converter[[]byte] { return opaqueConv{n: n} }

func (c opaqueConv) Encode(v []byte, w *WriteStream) error {
	if len(v) != c.n {
		return errorf(ErrLengthMismatch, "opaque is %d bytes, want %d", len(v), c.n)
	}
	w.WriteBinary(v)
	return nil
}

func (c opaqueConv) Decode(r *ReadStream) ([]byte, error) { return r.ReadBinary(uint32(c.n)) }
func (c opaqueConv) IsValid(v []byte) bool                { return len(v) == c.n }

type varOpaqueConv struct{ max uint32 }

// VarOpaque is a length prefix followed by at most max raw bytes, padded.
func VarOpaque(max uint32) Converter[[]byte] { return varOpaqueConv{max: max} }

func (c varOpaqueConv) Encode(v []byte, w *WriteStream) error {
	if uint64(len(v)) > uint64(c.max) {
		return errorf(ErrLengthMismatch, "opaque is %d bytes, max %d", len(v), c.max)
	}
	w.WriteUint32(uint32(len(v)))
	w.WriteBinary(v)
	return nil
}

func (c varOpaqueConv) Decode(r *ReadStream) ([]byte, error) {
	n, err := readBoundedLength(r, c.max, "opaque")
	if err != nil {
		return nil, err
	}
	return r.ReadBinary(n)
}

func (c varOpaqueConv) IsValid(v []byte) bool { return uint64(len(v)) <= uint64(c.max) }

type stringConv struct{ max uint32 }

// String is length-prefixed UTF-8; max bounds the encoded byte length.
func String(max uint32) Converter[string] { return stringConv{max: max} }

func (c stringConv) Encode(v string, w *WriteStream) error {
	return w.WriteStringAndLength(v, c.max)
}

func (c stringConv) Decode(r *ReadStream) (string, error) {
	n, err := readBoundedLength(r, c.max, "string")
	if err != nil {
		return "", err
	}
	return r.ReadString(n)
}

func (c stringConv) IsValid(v string) bool {
	if !utf8.ValidString(v) {
		v = strings.ToValidUTF8(v, "\uFFFD")
	}
	return uint64(len(v)) <= uint64(c.max)
}

type textConv struct{ max uint32 }

// Text is String for UTF-16 code units.
func Text(max uint32) Converter[[]uint16] { return textConv{max: max} }

func (c textConv) Encode(v []uint16, w *WriteStream) error {
	return w.WriteTextAndLength(v, c.max)
}

func (c textConv) Decode(r *ReadStream) ([]uint16, error) {
	n, err := readBoundedLength(r, c.max, "string")
	if err != nil {
		return nil, err
	}
	return r.ReadText(n)
}

func (c textConv) IsValid(v []uint16) bool { return uint64(utf8Len(v)) <= uint64(c.max) }

func readBoundedLength(r *ReadStream, max uint32, what string) (uint32, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, errorf(ErrInvalidData, "%s length %d exceeds max %d", what, n, max)
	}
	return n, nil
}
