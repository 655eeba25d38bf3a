package xdr

import (
	"math"
	"math/bits"
)

// maxSafe is the largest integer a float64 represents exactly (2^53 - 1).
const maxSafe = 1<<53 - 1

// Integer64 is a signed 64-bit value held as two 32-bit words. Its numeric
// value is high*2^32 + low with low unsigned and high sign-extended.
type Integer64 struct {
	low  uint32
	high int32
}

// UnsignedInteger64 is Integer64's unsigned counterpart.
type UnsignedInteger64 struct {
	low  uint32
	high uint32
}

var (
	MinInteger64         = Integer64{low: 0, high: math.MinInt32}
	MaxInteger64         = Integer64{low: math.MaxUint32, high: math.MaxInt32}
	MaxUnsignedInteger64 = UnsignedInteger64{low: math.MaxUint32, high: math.MaxUint32}
)

// NewInteger64 validates the words before building the value.
func NewInteger64(low, high int64) (Integer64, error) {
	if low < 0 || low > math.MaxUint32 {
		return Integer64{}, errorf(ErrRange, "low word %d not in 0..%d", low, uint32(math.MaxUint32))
	}
	if high < math.MinInt32 || high > math.MaxInt32 {
		return Integer64{}, errorf(ErrRange, "high word %d not in %d..%d", high, math.MinInt32, math.MaxInt32)
	}
	return Integer64{low: uint32(low), high: int32(high)}, nil
}

// NewUnsignedInteger64 validates the words before building the value.
func NewUnsignedInteger64(low, high int64) (UnsignedInteger64, error) {
	if low < 0 || low > math.MaxUint32 {
		return UnsignedInteger64{}, errorf(ErrRange, "low word %d not in 0..%d", low, uint32(math.MaxUint32))
	}
	if high < 0 || high > math.MaxUint32 {
		return UnsignedInteger64{}, errorf(ErrRange, "high word %d not in 0..%d", high, uint32(math.MaxUint32))
	}
	return UnsignedInteger64{low: uint32(low), high: uint32(high)}, nil
}

// Words builds a value from wire words; every pair is valid.
func Words(low uint32, high int32) Integer64 { return Integer64{low: low, high: high} }

// UnsignedWords builds a value from wire words; every pair is valid.
func UnsignedWords(low, high uint32) UnsignedInteger64 {
	return UnsignedInteger64{low: low, high: high}
}

func FromInt64(n int64) Integer64 {
	return Integer64{low: uint32(n), high: int32(n >> 32)}
}

func FromUint64(n uint64) UnsignedInteger64 {
	return UnsignedInteger64{low: uint32(n), high: uint32(n >> 32)}
}

// Integer64FromFloat converts an exactly representable integral float.
func Integer64FromFloat(f float64) (Integer64, error) {
	if f != math.Trunc(f) || f < -maxSafe || f > maxSafe {
		return Integer64{}, errorf(ErrRange, "%v is not a safe integer", f)
	}
	return FromInt64(int64(f)), nil
}

// UnsignedInteger64FromFloat converts an exactly representable integral float.
func UnsignedInteger64FromFloat(f float64) (UnsignedInteger64, error) {
	if f != math.Trunc(f) || f < 0 || f > maxSafe {
		return UnsignedInteger64{}, errorf(ErrRange, "%v is not a safe non-negative integer", f)
	}
	return FromUint64(uint64(f)), nil
}

func (v Integer64) Low() uint32            { return v.low }
func (v Integer64) High() int32            { return v.high }
func (v Integer64) Int64() int64           { return int64(v.high)<<32 | int64(v.low) }
func (v Integer64) IsNegative() bool       { return v.high < 0 }
func (v Integer64) IsPositive() bool       { return v.high > 0 || (v.high == 0 && v.low > 0) }
func (v Integer64) Equal(o Integer64) bool { return v == o }

func (v UnsignedInteger64) Low() uint32                    { return v.low }
func (v UnsignedInteger64) High() uint32                   { return v.high }
func (v UnsignedInteger64) Uint64() uint64                 { return uint64(v.high)<<32 | uint64(v.low) }
func (v UnsignedInteger64) IsPositive() bool               { return v.high > 0 || v.low > 0 }
func (v UnsignedInteger64) Equal(o UnsignedInteger64) bool { return v == o }

// negateWords is two's-complement negation across both words.
func negateWords(low, high uint32) (uint32, uint32) {
	nl, borrow := bits.Sub32(0, low, 0)
	nh, _ := bits.Sub32(0, high, borrow)
	return nl, nh
}

// Negate fails with ErrOverflow for MinInteger64, the one value whose
// negation is not representable.
func (v Integer64) Negate() (Integer64, error) {
	if v == MinInteger64 {
		return Integer64{}, errorf(ErrOverflow, "cannot negate %s", v)
	}
	l, h := negateWords(v.low, uint32(v.high))
	return Integer64{low: l, high: int32(h)}, nil
}

// Abs returns the magnitude, which always fits the unsigned type.
func (v Integer64) Abs() UnsignedInteger64 {
	if v.high >= 0 {
		return UnsignedInteger64{low: v.low, high: uint32(v.high)}
	}
	l, h := negateWords(v.low, uint32(v.high))
	return UnsignedInteger64{low: l, high: h}
}

// Negate returns -v as a signed value; magnitudes above 2^63 fail with
// ErrRange.
func (v UnsignedInteger64) Negate() (Integer64, error) {
	if v.high > 1<<31 || (v.high == 1<<31 && v.low != 0) {
		return Integer64{}, errorf(ErrRange, "-%s is below the signed minimum", v)
	}
	l, h := negateWords(v.low, v.high)
	return Integer64{low: l, high: int32(h)}, nil
}

// Float64 returns the value as a float when it lies strictly inside ±2^53.
func (v Integer64) Float64() (float64, error) {
	if v.high >= 0x200000 {
		return 0, errorf(ErrRange, "%s is too large for a safe integer", v)
	}
	if v.high < -0x200000 || (v.high == -0x200000 && v.low == 0) {
		return 0, errorf(ErrRange, "%s is too small for a safe integer", v)
	}
	return float64(v.high)*(1<<32) + float64(v.low), nil
}

func (v UnsignedInteger64) Float64() (float64, error) {
	if v.high >= 0x200000 {
		return 0, errorf(ErrRange, "%s is too large for a safe integer", v)
	}
	return float64(v.high)*(1<<32) + float64(v.low), nil
}

// splitDelta returns the two's-complement words of d.
func splitDelta(d int64) (uint32, uint32) {
	return uint32(d), uint32(d >> 32)
}

// Add returns v+delta, failing with ErrRange when the sum leaves the
// signed range.
func (v Integer64) Add(delta int64) (Integer64, error) {
	dl, dh := splitDelta(delta)
	l, carry := bits.Add32(v.low, dl, 0)
	h, _ := bits.Add32(uint32(v.high), dh, carry)
	// Overflow iff both operands share a sign the result does not.
	if (v.high < 0) == (delta < 0) && (int32(h) < 0) != (v.high < 0) {
		return Integer64{}, errorf(ErrRange, "%s + %d overflows", v, delta)
	}
	return Integer64{low: l, high: int32(h)}, nil
}

func (v Integer64) Sub(delta int64) (Integer64, error) {
	if delta == math.MinInt64 {
		// -delta is not an int64; add in two halves.
		half, err := v.Add(-(math.MinInt64 / 2))
		if err != nil {
			return Integer64{}, err
		}
		return half.Add(-(math.MinInt64 / 2))
	}
	return v.Add(-delta)
}

// Add returns v+delta, failing with ErrRange below zero or above 2^64-1.
func (v UnsignedInteger64) Add(delta int64) (UnsignedInteger64, error) {
	if delta >= 0 {
		dl, dh := splitDelta(delta)
		l, c := bits.Add32(v.low, dl, 0)
		h, c := bits.Add32(v.high, dh, c)
		if c != 0 {
			return UnsignedInteger64{}, errorf(ErrRange, "%s + %d overflows", v, delta)
		}
		return UnsignedInteger64{low: l, high: h}, nil
	}
	// uint64(-delta) is the magnitude even for math.MinInt64.
	ml, mh := splitDelta(-delta)
	l, b := bits.Sub32(v.low, ml, 0)
	h, b := bits.Sub32(v.high, mh, b)
	if b != 0 {
		return UnsignedInteger64{}, errorf(ErrRange, "%s - %d underflows", v, uint64(-delta))
	}
	return UnsignedInteger64{low: l, high: h}, nil
}

func (v UnsignedInteger64) Sub(delta int64) (UnsignedInteger64, error) {
	if delta == math.MinInt64 {
		half, err := v.Add(-(math.MinInt64 / 2))
		if err != nil {
			return UnsignedInteger64{}, err
		}
		return half.Add(-(math.MinInt64 / 2))
	}
	return v.Add(-delta)
}
