package xdr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/rawbytedev/goxdr/internal/common"
)

// codec is the reflective counterpart of Converter. decode stores into v,
// which must be settable.
type codec interface {
	encode(v reflect.Value, w *WriteStream) error
	decode(v reflect.Value, r *ReadStream) error
	valid(v reflect.Value) bool
}

type planCache struct {
	mu    sync.RWMutex
	plans map[reflect.Type]codec
}

var plans = &planCache{plans: make(map[reflect.Type]codec)}

var (
	integer64Type         = reflect.TypeFor[Integer64]()
	unsignedInteger64Type = reflect.TypeFor[UnsignedInteger64]()
)

func (p *planCache) getPlan(t reflect.Type) (codec, error) {
	p.mu.RLock()
	if c, ok := p.plans[t]; ok {
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if c, ok := p.plans[t]; ok {
		return c, nil
	}
	building := make(map[reflect.Type]*lazyCodec)
	c, err := p.build(t, building)
	if err != nil {
		return nil, err
	}
	for bt, lc := range building {
		p.plans[bt] = lc.c
	}
	p.plans[t] = c
	return c, nil
}

// build must run with p.mu held. Struct types under construction are
// reachable through building so that recursive types terminate.
func (p *planCache) build(t reflect.Type, building map[reflect.Type]*lazyCodec) (codec, error) {
	if c, ok := p.plans[t]; ok {
		return c, nil
	}
	if lc, ok := building[t]; ok {
		return lc, nil
	}

	switch t {
	case integer64Type:
		return convCodec[Integer64]{Hyper}, nil
	case unsignedInteger64Type:
		return convCodec[UnsignedInteger64]{UHyper}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return boolCodec{}, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int:
		return intCodec{}, nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint:
		return uintCodec{}, nil
	case reflect.Int64:
		return hyperCodec{}, nil
	case reflect.Uint64:
		return uhyperCodec{}, nil
	case reflect.Float32:
		return floatCodec{bits: 32}, nil
	case reflect.Float64:
		return floatCodec{bits: 64}, nil
	case reflect.String:
		return stringCodec{max: Unbounded}, nil
	case reflect.Slice, reflect.Array:
		return p.buildSequence(t, Unbounded, building)
	case reflect.Pointer:
		elem, err := p.build(t.Elem(), building)
		if err != nil {
			return nil, err
		}
		return ptrCodec{elem: elem}, nil
	case reflect.Struct:
		return p.buildStruct(t, building)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}

func (p *planCache) buildSequence(t reflect.Type, max uint32, building map[reflect.Type]*lazyCodec) (codec, error) {
	if t.Elem().Kind() == reflect.Uint8 {
		if t.Kind() == reflect.Array {
			return fixedBytesCodec{n: t.Len()}, nil
		}
		return bytesCodec{max: max}, nil
	}
	elem, err := p.build(t.Elem(), building)
	if err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Array {
		return arrayCodec{elem: elem, n: t.Len()}, nil
	}
	return sliceCodec{elem: elem, max: max}, nil
}

type fieldPlan struct {
	idx   int
	name  string
	codec codec
}

func (p *planCache) buildStruct(t reflect.Type, building map[reflect.Type]*lazyCodec) (codec, error) {
	lc := &lazyCodec{}
	building[t] = lc

	sc := &structCodec{name: t.Name()}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // skip unexported
		}
		tag, err := parseTag(sf.Tag.Get("xdr"))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if tag.skip {
			continue
		}
		var fc codec
		switch {
		case tag.maxLen != nil && sf.Type.Kind() == reflect.String:
			fc = stringCodec{max: *tag.maxLen}
		case tag.maxLen != nil && sf.Type.Kind() == reflect.Slice:
			fc, err = p.buildSequence(sf.Type, *tag.maxLen, building)
		case tag.maxLen != nil:
			err = fmt.Errorf("%w: maxlen on %s", ErrUnsupported, sf.Type)
		default:
			fc, err = p.build(sf.Type, building)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		sc.fields = append(sc.fields, fieldPlan{idx: i, name: sf.Name, codec: fc})
		if common.IsFixedKind(sf.Type.Kind()) {
			sc.fixedSize += common.WireSize(sf.Type.Kind())
		}
	}
	lc.c = sc
	return sc, nil
}

type fieldTag struct {
	skip   bool
	maxLen *uint32
}

// parseTag reads `xdr:"-"` and `xdr:"maxlen:N"`.
func parseTag(s string) (fieldTag, error) {
	var tag fieldTag
	if s == "" {
		return tag, nil
	}
	if s == "-" {
		tag.skip = true
		return tag, nil
	}
	for _, opt := range strings.Split(s, ",") {
		key, val, _ := strings.Cut(strings.TrimSpace(opt), ":")
		switch key {
		case "maxlen":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return tag, fmt.Errorf("%w: maxlen %q", ErrUnsupported, val)
			}
			m := uint32(n)
			tag.maxLen = &m
		default:
			return tag, fmt.Errorf("%w: tag option %q", ErrUnsupported, key)
		}
	}
	return tag, nil
}

// Marshal encodes v by reflection. A top-level pointer is followed rather
// than treated as an optional value.
func Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupported)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrUnsupported)
		}
		rv = rv.Elem()
	}
	c, err := plans.getPlan(rv.Type())
	if err != nil {
		return nil, err
	}
	w := NewWriteStream()
	if sc, ok := c.(*structCodec); ok {
		w.grow(sc.fixedSize)
	}
	if err := c.encode(rv, w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes data into the value v points to. All of data must be
// consumed.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Unmarshal needs a non-nil pointer, got %T", ErrUnsupported, v)
	}
	rv = rv.Elem()
	c, err := plans.getPlan(rv.Type())
	if err != nil {
		return err
	}
	r := NewReadStream(data)
	tmp := reflect.New(rv.Type()).Elem()
	if err := c.decode(tmp, r); err != nil {
		return err
	}
	if !r.EndReached() {
		return errorf(ErrTrailingData, "%d of %d bytes unread", r.Remaining(), len(data))
	}
	rv.Set(tmp)
	return nil
}

// ConverterFor derives a converter for T from its Go shape.
func ConverterFor[T any]() (Converter[T], error) {
	c, err := plans.getPlan(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return reflectConverter[T]{c: c}, nil
}

type reflectConverter[T any] struct{ c codec }

func (rc reflectConverter[T]) Encode(v T, w *WriteStream) error {
	return rc.c.encode(reflect.ValueOf(&v).Elem(), w)
}

func (rc reflectConverter[T]) Decode(r *ReadStream) (T, error) {
	var v T
	if err := rc.c.decode(reflect.ValueOf(&v).Elem(), r); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (rc reflectConverter[T]) IsValid(v T) bool {
	return rc.c.valid(reflect.ValueOf(&v).Elem())
}

type lazyCodec struct{ c codec }

func (l *lazyCodec) encode(v reflect.Value, w *WriteStream) error { return l.c.encode(v, w) }
func (l *lazyCodec) decode(v reflect.Value, r *ReadStream) error  { return l.c.decode(v, r) }
func (l *lazyCodec) valid(v reflect.Value) bool                   { return l.c.valid(v) }

type convCodec[T any] struct{ c Converter[T] }

func (cc convCodec[T]) encode(v reflect.Value, w *WriteStream) error {
	return cc.c.Encode(v.Interface().(T), w)
}

func (cc convCodec[T]) decode(v reflect.Value, r *ReadStream) error {
	x, err := cc.c.Decode(r)
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(x))
	return nil
}

func (cc convCodec[T]) valid(v reflect.Value) bool { return cc.c.IsValid(v.Interface().(T)) }

type boolCodec struct{}

func (boolCodec) encode(v reflect.Value, w *WriteStream) error { return Bool.Encode(v.Bool(), w) }

func (boolCodec) decode(v reflect.Value, r *ReadStream) error {
	b, err := Bool.Decode(r)
	if err != nil {
		return err
	}
	v.SetBool(b)
	return nil
}

func (boolCodec) valid(reflect.Value) bool { return true }

// intCodec writes every signed kind up to int as an XDR int.
type intCodec struct{}

func (intCodec) encode(v reflect.Value, w *WriteStream) error {
	n := v.Int()
	if n < math.MinInt32 || n > math.MaxInt32 {
		return errorf(ErrRange, "%d does not fit an xdr int", n)
	}
	w.WriteInt32(int32(n))
	return nil
}

func (intCodec) decode(v reflect.Value, r *ReadStream) error {
	n, err := r.ReadInt32()
	if err != nil {
		return err
	}
	if v.OverflowInt(int64(n)) {
		return errorf(ErrInvalidData, "%d overflows %s", n, v.Type())
	}
	v.SetInt(int64(n))
	return nil
}

func (intCodec) valid(v reflect.Value) bool {
	n := v.Int()
	return n >= math.MinInt32 && n <= math.MaxInt32
}

type uintCodec struct{}

func (uintCodec) encode(v reflect.Value, w *WriteStream) error {
	n := v.Uint()
	if n > math.MaxUint32 {
		return errorf(ErrRange, "%d does not fit an xdr unsigned int", n)
	}
	w.WriteUint32(uint32(n))
	return nil
}

func (uintCodec) decode(v reflect.Value, r *ReadStream) error {
	n, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if v.OverflowUint(uint64(n)) {
		return errorf(ErrInvalidData, "%d overflows %s", n, v.Type())
	}
	v.SetUint(uint64(n))
	return nil
}

func (uintCodec) valid(v reflect.Value) bool { return v.Uint() <= math.MaxUint32 }

type hyperCodec struct{}

func (hyperCodec) encode(v reflect.Value, w *WriteStream) error { return Int64.Encode(v.Int(), w) }

func (hyperCodec) decode(v reflect.Value, r *ReadStream) error {
	n, err := Int64.Decode(r)
	if err != nil {
		return err
	}
	v.SetInt(n)
	return nil
}

func (hyperCodec) valid(reflect.Value) bool { return true }

type uhyperCodec struct{}

func (uhyperCodec) encode(v reflect.Value, w *WriteStream) error { return Uint64.Encode(v.Uint(), w) }

func (uhyperCodec) decode(v reflect.Value, r *ReadStream) error {
	n, err := Uint64.Decode(r)
	if err != nil {
		return err
	}
	v.SetUint(n)
	return nil
}

func (uhyperCodec) valid(reflect.Value) bool { return true }

type floatCodec struct{ bits int }

func (c floatCodec) encode(v reflect.Value, w *WriteStream) error {
	if c.bits == 32 {
		return Float32.Encode(float32(v.Float()), w)
	}
	return Float64.Encode(v.Float(), w)
}

func (c floatCodec) decode(v reflect.Value, r *ReadStream) error {
	if c.bits == 32 {
		f, err := Float32.Decode(r)
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
		return nil
	}
	f, err := Float64.Decode(r)
	if err != nil {
		return err
	}
	v.SetFloat(f)
	return nil
}

func (floatCodec) valid(reflect.Value) bool { return true }

type stringCodec struct{ max uint32 }

func (c stringCodec) encode(v reflect.Value, w *WriteStream) error {
	return w.WriteStringAndLength(v.String(), c.max)
}

func (c stringCodec) decode(v reflect.Value, r *ReadStream) error {
	s, err := stringConv{max: c.max}.Decode(r)
	if err != nil {
		return err
	}
	v.SetString(s)
	return nil
}

func (c stringCodec) valid(v reflect.Value) bool { return stringConv{max: c.max}.IsValid(v.String()) }

type bytesCodec struct{ max uint32 }

func (c bytesCodec) encode(v reflect.Value, w *WriteStream) error {
	return varOpaqueConv{max: c.max}.Encode(v.Bytes(), w)
}

func (c bytesCodec) decode(v reflect.Value, r *ReadStream) error {
	b, err := varOpaqueConv{max: c.max}.Decode(r)
	if err != nil {
		return err
	}
	v.SetBytes(b)
	return nil
}

func (c bytesCodec) valid(v reflect.Value) bool { return uint64(v.Len()) <= uint64(c.max) }

// fixedBytesCodec copies per element so named byte types work too.
type fixedBytesCodec struct{ n int }

func (c fixedBytesCodec) encode(v reflect.Value, w *WriteStream) error {
	b := make([]byte, c.n)
	for i := range b {
		b[i] = byte(v.Index(i).Uint())
	}
	w.WriteBinary(b)
	return nil
}

func (c fixedBytesCodec) decode(v reflect.Value, r *ReadStream) error {
	b, err := r.ReadBinary(uint32(c.n))
	if err != nil {
		return err
	}
	for i, x := range b {
		v.Index(i).SetUint(uint64(x))
	}
	return nil
}

func (fixedBytesCodec) valid(reflect.Value) bool { return true }

type sliceCodec struct {
	elem codec
	max  uint32
}

func (c sliceCodec) encode(v reflect.Value, w *WriteStream) error {
	n := v.Len()
	if uint64(n) > uint64(c.max) {
		return errorf(ErrLengthMismatch, "array has %d elements, max %d", n, c.max)
	}
	w.WriteUint32(uint32(n))
	for i := 0; i < n; i++ {
		if err := c.elem.encode(v.Index(i), w); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (c sliceCodec) decode(v reflect.Value, r *ReadStream) error {
	n, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if n > c.max {
		return errorf(ErrInvalidData, "array length %d exceeds max %d", n, c.max)
	}
	out := reflect.MakeSlice(v.Type(), 0, min(int(n), r.Remaining()))
	for i := 0; i < int(n); i++ {
		out = reflect.Append(out, reflect.Zero(v.Type().Elem()))
		if err := c.elem.decode(out.Index(i), r); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	v.Set(out)
	return nil
}

func (c sliceCodec) valid(v reflect.Value) bool {
	if uint64(v.Len()) > uint64(c.max) {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if !c.elem.valid(v.Index(i)) {
			return false
		}
	}
	return true
}

type arrayCodec struct {
	elem codec
	n    int
}

func (c arrayCodec) encode(v reflect.Value, w *WriteStream) error {
	for i := 0; i < c.n; i++ {
		if err := c.elem.encode(v.Index(i), w); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (c arrayCodec) decode(v reflect.Value, r *ReadStream) error {
	for i := 0; i < c.n; i++ {
		if err := c.elem.decode(v.Index(i), r); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (c arrayCodec) valid(v reflect.Value) bool {
	for i := 0; i < c.n; i++ {
		if !c.elem.valid(v.Index(i)) {
			return false
		}
	}
	return true
}

// ptrCodec maps a pointer onto an XDR optional value.
type ptrCodec struct{ elem codec }

func (c ptrCodec) encode(v reflect.Value, w *WriteStream) error {
	if v.IsNil() {
		w.WriteUint32(0)
		return nil
	}
	w.WriteUint32(1)
	return c.elem.encode(v.Elem(), w)
}

func (c ptrCodec) decode(v reflect.Value, r *ReadStream) error {
	flag, err := r.ReadUint32()
	if err != nil {
		return err
	}
	switch flag {
	case 0:
		v.SetZero()
		return nil
	case 1:
		p := reflect.New(v.Type().Elem())
		if err := c.elem.decode(p.Elem(), r); err != nil {
			return err
		}
		v.Set(p)
		return nil
	}
	return errorf(ErrInvalidData, "option flag %d", flag)
}

func (c ptrCodec) valid(v reflect.Value) bool { return v.IsNil() || c.elem.valid(v.Elem()) }

type structCodec struct {
	name      string
	fields    []fieldPlan
	fixedSize int // wire bytes of the fixed-width fields
}

func (c *structCodec) encode(v reflect.Value, w *WriteStream) error {
	for _, f := range c.fields {
		if err := f.codec.encode(v.Field(f.idx), w); err != nil {
			return fmt.Errorf("%s.%s: %w", c.name, f.name, err)
		}
	}
	return nil
}

func (c *structCodec) decode(v reflect.Value, r *ReadStream) error {
	for _, f := range c.fields {
		if err := f.codec.decode(v.Field(f.idx), r); err != nil {
			return fmt.Errorf("%s.%s: %w", c.name, f.name, err)
		}
	}
	return nil
}

func (c *structCodec) valid(v reflect.Value) bool {
	for _, f := range c.fields {
		if !f.codec.valid(v.Field(f.idx)) {
			return false
		}
	}
	return true
}
