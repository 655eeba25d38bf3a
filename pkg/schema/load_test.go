package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsFieldOrder(t *testing.T) {
	s, err := Load(strings.NewReader(`
types:
  P:
    struct: {z: int, a: int, m: bool}
`))
	require.NoError(t, err)
	data, err := s.Marshal("P", Record{"z": int32(1), "a": int32(2), "m": true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 1}, data)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"empty":          {"", ErrInvalid},
		"unknown key":    {"other: 1", ErrInvalid},
		"types list":     {"types: [a, b]", ErrInvalid},
		"bad constant":   {"constants: {A: x}", ErrInvalid},
		"two kinds":      {"types: {T: {enum: {A: 1}, struct: {a: int}}}", ErrInvalid},
		"unknown kind":   {"types: {T: {record: {a: int}}}", ErrInvalid},
		"enum constant":  {"types: {T: {enum: {A: MISSING}}}", ErrUndefinedConstant},
		"size constant":  {"types: {T: int<MISSING>}", ErrUndefinedConstant},
		"syntax":         {"types: {T: 'int<'}", ErrSyntax},
		"no switch":      {"types: {U: {union: {cases: {1: void}}}}", ErrInvalid},
		"union key":      {"types: {U: {union: {switch: int, other: 1}}}", ErrInvalid},
		"undefined type": {"types: {T: Missing}", ErrInvalid},
		"duplicate":      {"constants: {T: 1}\ntypes: {T: int}", ErrDuplicate},
		"enum range":     {"types: {T: {enum: {A: 0x100000000}}}", ErrInvalid},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(c.doc))
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/nope.yaml")
	require.Error(t, err)
}

func TestTypedefKeyword(t *testing.T) {
	s, err := Load(strings.NewReader(`
constants: {N: 2}
types:
  Pair: {typedef: "int[N]"}
`))
	require.NoError(t, err)
	v, err := s.FromNative("Pair", []any{1, 2})
	require.NoError(t, err)
	data, err := s.Marshal("Pair", v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 2}, data)

	_, err = s.Marshal("Pair", []any{int32(1)})
	require.Error(t, err)
}
