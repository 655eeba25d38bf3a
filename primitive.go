package xdr

import "math"

// Primitive converters. They are stateless and safe to share.
var (
	Int32   Converter[int32]             = int32Conv{}
	Uint32  Converter[uint32]            = uint32Conv{}
	Bool    Converter[bool]              = boolConv{}
	Void    Converter[struct{}]          = voidConv{}
	Hyper   Converter[Integer64]         = hyperConv{}
	UHyper  Converter[UnsignedInteger64] = uhyperConv{}
	Int64   Converter[int64]             = int64Conv{}
	Uint64  Converter[uint64]            = uint64Conv{}
	Float32 Converter[float32]           = float32Conv{}
	Float64 Converter[float64]           = float64Conv{}
)

type int32Conv struct{}

func (int32Conv) Encode(v int32, w *WriteStream) error { w.WriteInt32(v); return nil }
func (int32Conv) Decode(r *ReadStream) (int32, error)  { return r.ReadInt32() }
func (int32Conv) IsValid(int32) bool                   { return true }
func (int32Conv) fromRaw(raw int32) (int32, bool)      { return raw, true }

type uint32Conv struct{}

func (uint32Conv) Encode(v uint32, w *WriteStream) error { w.WriteUint32(v); return nil }
func (uint32Conv) Decode(r *ReadStream) (uint32, error)  { return r.ReadUint32() }
func (uint32Conv) IsValid(uint32) bool                   { return true }
func (uint32Conv) fromRaw(raw int32) (uint32, bool)      { return uint32(raw), true }

type boolConv struct{}

func (boolConv) Encode(v bool, w *WriteStream) error {
	if v {
		w.WriteInt32(1)
	} else {
		w.WriteInt32(0)
	}
	return nil
}

func (boolConv) Decode(r *ReadStream) (bool, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return false, err
	}
	b, ok := boolConv{}.fromRaw(v)
	if !ok {
		return false, errorf(ErrInvalidData, "bool value %d", v)
	}
	return b, nil
}

func (boolConv) IsValid(bool) bool { return true }

func (boolConv) fromRaw(raw int32) (bool, bool) {
	switch raw {
	case 0:
		return false, true
	case 1:
		return true, true
	}
	return false, false
}

type voidConv struct{}

func (voidConv) Encode(struct{}, *WriteStream) error  { return nil }
func (voidConv) Decode(*ReadStream) (struct{}, error) { return struct{}{}, nil }
func (voidConv) IsValid(struct{}) bool                { return true }

// Hypers are written high word first.
type hyperConv struct{}

func (hyperConv) Encode(v Integer64, w *WriteStream) error {
	w.WriteInt32(v.high)
	w.WriteUint32(v.low)
	return nil
}

func (hyperConv) Decode(r *ReadStream) (Integer64, error) {
	high, err := r.ReadInt32()
	if err != nil {
		return Integer64{}, err
	}
	low, err := r.ReadUint32()
	if err != nil {
		return Integer64{}, err
	}
	return Integer64{low: low, high: high}, nil
}

func (hyperConv) IsValid(Integer64) bool { return true }

type uhyperConv struct{}

func (uhyperConv) Encode(v UnsignedInteger64, w *WriteStream) error {
	w.WriteUint32(v.high)
	w.WriteUint32(v.low)
	return nil
}

func (uhyperConv) Decode(r *ReadStream) (UnsignedInteger64, error) {
	high, err := r.ReadUint32()
	if err != nil {
		return UnsignedInteger64{}, err
	}
	low, err := r.ReadUint32()
	if err != nil {
		return UnsignedInteger64{}, err
	}
	return UnsignedInteger64{low: low, high: high}, nil
}

func (uhyperConv) IsValid(UnsignedInteger64) bool { return true }

type int64Conv struct{}

func (int64Conv) Encode(v int64, w *WriteStream) error {
	return hyperConv{}.Encode(FromInt64(v), w)
}

func (int64Conv) Decode(r *ReadStream) (int64, error) {
	v, err := hyperConv{}.Decode(r)
	return v.Int64(), err
}

func (int64Conv) IsValid(int64) bool { return true }

type uint64Conv struct{}

func (uint64Conv) Encode(v uint64, w *WriteStream) error {
	return uhyperConv{}.Encode(FromUint64(v), w)
}

func (uint64Conv) Decode(r *ReadStream) (uint64, error) {
	v, err := uhyperConv{}.Decode(r)
	return v.Uint64(), err
}

func (uint64Conv) IsValid(uint64) bool { return true }

type float32Conv struct{}

func (float32Conv) Encode(v float32, w *WriteStream) error {
	w.WriteUint32(math.Float32bits(v))
	return nil
}

func (float32Conv) Decode(r *ReadStream) (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (float32Conv) IsValid(float32) bool { return true }

type float64Conv struct{}

func (float64Conv) Encode(v float64, w *WriteStream) error {
	return uint64Conv{}.Encode(math.Float64bits(v), w)
}

func (float64Conv) Decode(r *ReadStream) (float64, error) {
	v, err := uint64Conv{}.Decode(r)
	return math.Float64frombits(v), err
}

func (float64Conv) IsValid(float64) bool { return true }
