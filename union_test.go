package xdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowInt32 is Int32 without the stream-free discriminant lookup, so unions
// over it take the rewind path.
type slowInt32 struct{}

func (slowInt32) Encode(v int32, w *WriteStream) error { return Int32.Encode(v, w) }
func (slowInt32) Decode(r *ReadStream) (int32, error)  { return Int32.Decode(r) }
func (slowInt32) IsValid(v int32) bool                 { return true }

// slowColor rejects unknown values only by failing Decode.
type slowColor struct{ c *EnumConverter[Color] }

func (s slowColor) Encode(v Color, w *WriteStream) error { return s.c.Encode(v, w) }
func (s slowColor) Decode(r *ReadStream) (Color, error)  { return s.c.Decode(r) }
func (s slowColor) IsValid(v Color) bool                 { return s.c.IsValid(v) }

func shapeUnion(switchOn Converter[int32]) *UnionConverter[int32] {
	return Union("Shape", switchOn,
		Arm[int32](0, Erase(Int32)),
		Arm[int32](1, Erase(String(Unbounded))),
		VoidArm[int32](2),
	).WithDefault(Erase(Opaque(4)))
}

func TestUnionArms(t *testing.T) {
	for name, sw := range map[string]Converter[int32]{"probe": Int32, "rewind": slowInt32{}} {
		t.Run(name, func(t *testing.T) {
			u := shapeUnion(sw)

			data, err := Encode[UnionValue[int32]](u, Case[int32](0, int32(-3)))
			require.NoError(t, err)
			assert.Equal(t, []byte{0, 0, 0, 0, 0xff, 0xff, 0xff, 0xfd}, data)

			got, err := Decode[UnionValue[int32]](u, data)
			require.NoError(t, err)
			assert.Equal(t, Case[int32](0, int32(-3)), got)

			got = roundTrip[UnionValue[int32]](t, u, Case[int32](1, "circle"))
			assert.Equal(t, "circle", got.Value)

			got = roundTrip[UnionValue[int32]](t, u, VoidCase[int32](2))
			assert.Equal(t, VoidCase[int32](2), got)
		})
	}
}

func TestUnionDefaultArm(t *testing.T) {
	for name, sw := range map[string]Converter[int32]{"probe": Int32, "rewind": slowInt32{}} {
		t.Run(name, func(t *testing.T) {
			u := shapeUnion(sw)
			data := []byte{0, 0, 0, 99, 1, 2, 3, 4}
			got, err := Decode[UnionValue[int32]](u, data)
			require.NoError(t, err)
			assert.True(t, got.IsDefault)
			assert.Equal(t, int32(99), got.Discriminant)
			assert.Equal(t, []byte{1, 2, 3, 4}, got.Value)

			again, err := Encode[UnionValue[int32]](u, got)
			require.NoError(t, err)
			assert.Equal(t, data, again)
		})
	}
}

func TestUnionEnumSwitchFallsBack(t *testing.T) {
	for name, sw := range map[string]Converter[Color]{"probe": colors, "rewind": slowColor{colors}} {
		t.Run(name, func(t *testing.T) {
			// BLUE is a valid enumerator without an arm
			u := Union[Color]("Paint", sw,
				Arm[Color]("RED", Erase(Uint32)),
				VoidArm[Color]("GREEN"),
			).WithDefault(nil)

			got, err := Decode[UnionValue[Color]](u, []byte{0, 0, 0, 0, 0, 0, 0, 9})
			require.NoError(t, err)
			assert.Equal(t, Case[Color]("RED", uint32(9)), got)

			got, err = Decode[UnionValue[Color]](u, []byte{0, 0, 0, 5})
			require.NoError(t, err)
			assert.Equal(t, VoidDefault[Color](5), got)

			got, err = Decode[UnionValue[Color]](u, []byte{0, 0, 0, 42})
			require.NoError(t, err)
			assert.Equal(t, VoidDefault[Color](42), got)
		})
	}
}

func TestUnionWithoutDefault(t *testing.T) {
	u := Union[Color]("Paint", colors, VoidArm[Color]("RED"))

	_, err := Decode[UnionValue[Color]](u, []byte{0, 0, 0, 42})
	require.ErrorIs(t, err, ErrUnrecognizedDiscriminant)

	_, err = Encode[UnionValue[Color]](u, VoidDefault[Color](42))
	require.ErrorIs(t, err, ErrUnsupportedDefault)
	assert.False(t, u.IsValid(VoidDefault[Color](42)))
}

func TestUnionMissingValue(t *testing.T) {
	u := shapeUnion(Int32)
	_, err := Encode[UnionValue[int32]](u, VoidCase[int32](0))
	require.ErrorIs(t, err, ErrMissingValue)
	_, err = Encode[UnionValue[int32]](u, VoidDefault[int32](7))
	require.ErrorIs(t, err, ErrMissingValue)

	assert.False(t, u.IsValid(VoidCase[int32](1)))
	assert.False(t, u.IsValid(VoidDefault[int32](7)))
	assert.True(t, u.IsValid(DefaultCase[int32](7, []byte{0, 0, 0, 0})))
	assert.False(t, u.IsValid(DefaultCase[int32](7, []byte{0})))
	assert.True(t, u.IsValid(VoidCase[int32](2)))
}

func TestUnionDefaultCannotShadowArm(t *testing.T) {
	for name, sw := range map[string]Converter[int32]{"probe": Int32, "rewind": slowInt32{}} {
		t.Run(name, func(t *testing.T) {
			u := Union("U", sw, Arm[int32](0, Erase(Int32)), VoidArm[int32](2)).WithDefault(Erase(Int32))

			for _, raw := range []int32{0, 2} {
				v := DefaultCase[int32](raw, int32(7))
				assert.False(t, u.IsValid(v))
				_, err := Encode[UnionValue[int32]](u, v)
				require.ErrorIs(t, err, ErrInvalidData)
			}

			v := DefaultCase[int32](5, int32(7))
			require.True(t, u.IsValid(v))
			data, err := Encode[UnionValue[int32]](u, v)
			require.NoError(t, err)
			got, err := Decode[UnionValue[int32]](u, data)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestUnionUndeclaredArm(t *testing.T) {
	u := shapeUnion(Int32)
	_, err := Encode[UnionValue[int32]](u, VoidCase[int32](5))
	require.ErrorIs(t, err, ErrInvalidData)
	assert.False(t, u.IsValid(VoidCase[int32](5)))
}

func TestUnionDuplicateArmPanics(t *testing.T) {
	assert.Panics(t, func() {
		Union("Dup", Int32, VoidArm[int32](1), VoidArm[int32](1))
	})
}

func TestUnionArmPayloadErrorNamesArm(t *testing.T) {
	u := shapeUnion(Int32)
	_, err := Decode[UnionValue[int32]](u, []byte{0, 0, 0, 1, 0, 0, 0, 9})
	require.ErrorIs(t, err, ErrTruncatedInput)
	assert.Contains(t, err.Error(), "Shape.1")
}

func TestUnionThroughErasedSwitch(t *testing.T) {
	u := Union[any]("Dyn", Erase[Color](colors),
		Arm[any](Color("RED"), Erase(Int32)),
	).WithDefault(nil)

	got, err := Decode[UnionValue[any]](u, []byte{0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, Color("RED"), got.Arm)
	assert.Equal(t, int32(1), got.Value)

	got, err = Decode[UnionValue[any]](u, []byte{0, 0, 0, 77})
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
}
