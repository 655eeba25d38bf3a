package xdr

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Color string

var colors = Enum("Color", map[Color]int32{"RED": 0, "GREEN": 1, "BLUE": 5})

func TestEnum(t *testing.T) {
	data, err := Encode[Color](colors, "BLUE")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 5}, data)
	assert.Equal(t, Color("GREEN"), roundTrip[Color](t, colors, "GREEN"))

	_, err = Encode[Color](colors, "PINK")
	require.ErrorIs(t, err, ErrInvalidData)
	_, err = Decode[Color](colors, []byte{0, 0, 0, 2})
	require.ErrorIs(t, err, ErrInvalidData)

	assert.True(t, colors.IsValid("RED"))
	assert.False(t, colors.IsValid("red"))
	assert.Equal(t, []Color{"RED", "GREEN", "BLUE"}, colors.Names())
}

func TestEnumMustBeBijective(t *testing.T) {
	_, err := NewEnum("Dup", map[string]int32{"A": 1, "B": 1})
	require.ErrorIs(t, err, ErrInvalidData)
	assert.Panics(t, func() { Enum("Dup", map[string]int32{"A": 1, "B": 1}) })
}

type point struct {
	X, Y  int32
	Label string
}

var pointConv = Struct("Point",
	FieldOf("x", Int32, func(p *point) *int32 { return &p.X }),
	FieldOf("y", Int32, func(p *point) *int32 { return &p.Y }),
	FieldOf("label", String(8), func(p *point) *string { return &p.Label }),
)

func TestStructFieldOrder(t *testing.T) {
	data, err := Encode[point](pointConv, point{X: 1, Y: -1, Label: "ab"})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 1,
		0xff, 0xff, 0xff, 0xff,
		0, 0, 0, 2, 'a', 'b', 0, 0,
	}, data)
	assert.Equal(t, []string{"x", "y", "label"}, pointConv.FieldNames())

	condition := func(x, y int32) bool {
		p := point{X: x, Y: y, Label: "pt"}
		return roundTrip[point](t, pointConv, p) == p
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestStructErrorNamesField(t *testing.T) {
	_, err := Encode[point](pointConv, point{Label: "much too long"})
	require.ErrorIs(t, err, ErrEncoding)
	assert.Contains(t, err.Error(), "Point.label")
	assert.False(t, pointConv.IsValid(point{Label: "much too long"}))
}

func TestStructFieldFuncOnMap(t *testing.T) {
	type record = map[string]any
	get := func(name string) func(*record) int32 {
		return func(r *record) int32 {
			v, _ := (*r)[name].(int32)
			return v
		}
	}
	set := func(name string) func(*record, int32) {
		return func(r *record, v int32) {
			if *r == nil {
				*r = record{}
			}
			(*r)[name] = v
		}
	}
	c := Struct("Pair",
		FieldFunc("a", Int32, get("a"), set("a")),
		FieldFunc("b", Int32, get("b"), set("b")),
	)
	got := roundTrip[record](t, c, record{"a": int32(3), "b": int32(4)})
	assert.Equal(t, record{"a": int32(3), "b": int32(4)}, got)
}

func TestOption(t *testing.T) {
	opt := Option(Int32)
	data, err := Encode[*int32](opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)

	v := int32(7)
	data, err = Encode(opt, &v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 7}, data)
	got, err := Decode(opt, data)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, v, *got)

	_, err = Decode(opt, []byte{0, 0, 0, 2, 0, 0, 0, 7})
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestFixedArrayLength(t *testing.T) {
	arr := FixedArray(Int32, 3)
	_, err := Encode(arr, []int32{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Encode(arr, []int32{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrLengthMismatch)
	assert.False(t, arr.IsValid([]int32{1}))

	data, err := Encode(arr, []int32{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, data, 12)
	assert.Equal(t, []int32{1, 2, 3}, roundTrip(t, arr, []int32{1, 2, 3}))
}

func TestVarArrayBounds(t *testing.T) {
	arr := VarArray(Int32, 5)
	_, err := Encode(arr, make([]int32, 6))
	require.ErrorIs(t, err, ErrLengthMismatch)

	// prefix 6 followed by six elements
	data := []byte{0, 0, 0, 6}
	data = append(data, make([]byte, 24)...)
	_, err = Decode(arr, data)
	require.ErrorIs(t, err, ErrInvalidData)

	assert.Equal(t, []int32{9, 8}, roundTrip(t, arr, []int32{9, 8}))
}

func TestVarArrayHostileLength(t *testing.T) {
	arr := VarArray(Int32, Unbounded)
	_, err := Decode(arr, []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 1})
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestOpaque(t *testing.T) {
	fixed := Opaque(3)
	data, err := Encode(fixed, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0}, data)
	_, err = Encode(fixed, []byte{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)

	vo := VarOpaque(4)
	_, err = Encode(vo, []byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Decode(vo, []byte{0, 0, 0, 5, 1, 2, 3, 4, 5, 0, 0, 0})
	require.ErrorIs(t, err, ErrInvalidData)
	assert.Equal(t, []byte{7}, roundTrip(t, vo, []byte{7}))
}

func TestStringMax(t *testing.T) {
	s := String(4)
	assert.True(t, s.IsValid("four"))
	// two characters but four bytes each
	assert.False(t, s.IsValid("😀😀"))
	_, err := Decode(s, []byte{0, 0, 0, 5, 'a', 'b', 'c', 'd', 'e', 0, 0, 0})
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestText(t *testing.T) {
	c := Text(Unbounded)
	units := UTF16("héllo 😀")
	assert.Equal(t, units, roundTrip(t, c, units))
	assert.False(t, Text(3).IsValid(UTF16("😀")))
}

func TestAlignment(t *testing.T) {
	condition := func(payload []byte, text string) bool {
		for _, enc := range []func() ([]byte, int, error){
			func() ([]byte, int, error) {
				b, err := Encode(VarOpaque(Unbounded), payload)
				return b, len(payload), err
			},
			func() ([]byte, int, error) {
				b, err := Encode(String(Unbounded), text)
				return b, len(text), err
			},
			func() ([]byte, int, error) {
				b, err := Encode(VarArray(Int32, Unbounded), make([]int32, len(payload)))
				return b, 4 * len(payload), err
			},
		} {
			data, k, err := enc()
			require.NoError(t, err)
			if len(data)-4 != 4*((k+3)/4) {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestOpaqueRoundTripQuick(t *testing.T) {
	c := VarOpaque(Unbounded)
	condition := func(b []byte) bool {
		got := roundTrip(t, c, b)
		return bytes.Equal(got, b)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestEraseWrongType(t *testing.T) {
	c := Erase(Int32)
	_, err := Encode(c, "nope")
	require.ErrorIs(t, err, ErrWrongType)
	assert.False(t, c.IsValid(nil))

	data, err := Encode[any](c, int32(4))
	require.NoError(t, err)
	v, err := Decode(c, data)
	require.NoError(t, err)
	assert.Equal(t, int32(4), v)

	// nil is the zero value for nilable types
	opt := Erase(Option(Int32))
	data, err = Encode[any](opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)
	assert.True(t, Erase(Void).IsValid(nil))
}
