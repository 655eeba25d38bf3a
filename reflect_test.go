package xdr

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MixedStruct struct {
	Val      string
	Mod      int8
	Data     string
	Integers int16
	Float3   float32
	Float6   float64
}

func FuzzMarshalUnmarshal(f *testing.F) {
	f.Add("azerty", int8(-3), "", int16(12), float32(1.5), 2.25)
	f.Fuzz(fuzzMixedTypes)
}

func fuzzMixedTypes(t *testing.T, Val string, Mod int8, Data string, Integers int16, Float3 float32, Float6 float64) {
	val := MixedStruct{Val: Val, Mod: Mod, Data: Data, Integers: Integers, Float3: Float3, Float6: Float6}
	data, err := Marshal(val)
	require.NoError(t, err)
	res := &MixedStruct{}
	require.NoError(t, Unmarshal(data, res))
	again, err := Marshal(res)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestMarshalMatchesConverters(t *testing.T) {
	type Msg struct {
		ID    uint32
		Name  string
		Flags []bool
		Hash  [3]byte
		Blob  []byte
		Big   int64
	}
	v := Msg{ID: 7, Name: "xdr", Flags: []bool{true, false}, Hash: [3]byte{1, 2, 3}, Blob: []byte{9}, Big: -1}
	got, err := Marshal(&v)
	require.NoError(t, err)

	w := NewWriteStream()
	require.NoError(t, Uint32.Encode(7, w))
	require.NoError(t, String(Unbounded).Encode("xdr", w))
	require.NoError(t, VarArray(Bool, Unbounded).Encode([]bool{true, false}, w))
	require.NoError(t, Opaque(3).Encode([]byte{1, 2, 3}, w))
	require.NoError(t, VarOpaque(Unbounded).Encode([]byte{9}, w))
	require.NoError(t, Int64.Encode(-1, w))
	assert.Equal(t, w.Bytes(), got)

	var back Msg
	require.NoError(t, Unmarshal(got, &back))
	assert.Equal(t, v, back)
}

func TestMarshalQuick(t *testing.T) {
	type NewStructint struct {
		Int1  uint8
		Int2  int8
		Int3  uint16
		Int4  int16
		Int5  uint32
		Int6  int32
		Int7  uint64
		Int9  int64
		Const bool
		Fixed [2]int16
		List  []uint32
	}
	condition := func(z NewStructint) bool {
		data, err := Marshal(z)
		require.NoError(t, err)
		res := &NewStructint{}
		require.NoError(t, Unmarshal(data, res))
		if len(z.List) == 0 {
			// decoding yields an empty, non-nil slice
			res.List = z.List
		}
		return assert.ObjectsAreEqual(z, *res)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

type linked struct {
	Value int32
	Next  *linked
}

func TestPointerIsOptional(t *testing.T) {
	v := linked{Value: 1, Next: &linked{Value: 2}}
	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 1, 0, 0, 0, 1,
		0, 0, 0, 2, 0, 0, 0, 0,
	}, data)

	var back linked
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, v, back)
}

type octet uint8

func TestNamedByteTypes(t *testing.T) {
	type Digest struct {
		Sum  [4]octet
		Body []octet `xdr:"maxlen:8"`
	}
	v := Digest{Sum: [4]octet{1, 2, 3, 4}, Body: []octet{0xde, 0xad, 0xbe}}
	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 3, 0xde, 0xad, 0xbe, 0}, data)

	plain, err := Marshal(struct {
		Sum  [4]byte
		Body []byte
	}{[4]byte{1, 2, 3, 4}, []byte{0xde, 0xad, 0xbe}})
	require.NoError(t, err)
	assert.Equal(t, plain, data)

	var back Digest
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, v, back)

	_, err = Marshal(Digest{Body: make([]octet, 9)})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestTags(t *testing.T) {
	type Tagged struct {
		Name    string `xdr:"maxlen:4"`
		Secret  string `xdr:"-"`
		Items   []int32 `xdr:"maxlen:2"`
		private int32
	}
	data, err := Marshal(Tagged{Name: "abcd", Secret: "x", Items: []int32{1}, private: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 4, 'a', 'b', 'c', 'd', 0, 0, 0, 1, 0, 0, 0, 1}, data)

	_, err = Marshal(Tagged{Name: "abcde"})
	require.ErrorIs(t, err, ErrEncoding)
	_, err = Marshal(Tagged{Items: []int32{1, 2, 3}})
	require.ErrorIs(t, err, ErrLengthMismatch)

	type BadTag struct {
		N int32 `xdr:"maxlen:3"`
	}
	_, err = Marshal(BadTag{})
	require.ErrorIs(t, err, ErrUnsupported)

	type UnknownOpt struct {
		N int32 `xdr:"compress"`
	}
	_, err = Marshal(UnknownOpt{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestUnsupportedKinds(t *testing.T) {
	type WithMap struct{ M map[string]int }
	_, err := Marshal(WithMap{})
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = Marshal(nil)
	require.ErrorIs(t, err, ErrUnsupported)
	err = Unmarshal([]byte{0, 0, 0, 0}, linked{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestIntRange(t *testing.T) {
	type Wide struct{ N int }
	n := int64(1) << 40
	_, err := Marshal(Wide{N: int(n)})
	require.ErrorIs(t, err, ErrRange)

	type Narrow struct{ N int8 }
	var out Narrow
	err = Unmarshal([]byte{0, 0, 1, 0x2c}, &out)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestUnmarshalLeavesTargetOnError(t *testing.T) {
	out := linked{Value: 42}
	err := Unmarshal([]byte{0, 0, 0, 1, 0, 0, 0, 1, 0, 0}, &out)
	require.ErrorIs(t, err, ErrTruncatedInput)
	assert.Equal(t, linked{Value: 42}, out)

	err = Unmarshal([]byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}, &out)
	require.ErrorIs(t, err, ErrTrailingData)
	assert.Equal(t, linked{Value: 42}, out)
}

func TestInteger64Fields(t *testing.T) {
	type Account struct {
		Balance Integer64
		Limit   UnsignedInteger64
	}
	v := Account{Balance: FromInt64(-5), Limit: MaxUnsignedInteger64}
	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Len(t, data, 16)
	var back Account
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, v, back)
}

func TestConverterFor(t *testing.T) {
	c, err := ConverterFor[linked]()
	require.NoError(t, err)
	v := linked{Value: 3}
	assert.Equal(t, v, roundTrip(t, c, v))

	// derived converters compose with hand-built ones
	opt := Option(c)
	got := roundTrip(t, opt, &v)
	require.NotNil(t, got)
	assert.Equal(t, v, *got)

	type Short struct {
		S string `xdr:"maxlen:1"`
	}
	sc, err := ConverterFor[Short]()
	require.NoError(t, err)
	assert.True(t, sc.IsValid(Short{S: "a"}))
	assert.False(t, sc.IsValid(Short{S: "ab"}))

	_, err = ConverterFor[chan int]()
	require.ErrorIs(t, err, ErrUnsupported)
}
