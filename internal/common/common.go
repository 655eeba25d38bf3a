// Package common holds the alignment arithmetic and Go kind tables shared by
// the codec engine and the reflection binding.
package common

import "reflect"

// Unit is the XDR alignment unit in bytes.
const Unit = 4

// PaddedLen rounds n up to the next multiple of Unit.
func PaddedLen(n int) int {
	return (n + Unit - 1) &^ (Unit - 1)
}

// PaddedLen64 is PaddedLen for lengths read off the wire, where n may be
// close to 2^32 and must not overflow int on 32-bit hosts.
func PaddedLen64(n uint32) uint64 {
	return (uint64(n) + Unit - 1) &^ (Unit - 1)
}

// Padding returns the number of zero bytes that follow n data bytes.
// Example: n=5 -> 3, n=8 -> 0
func Padding(n int) int {
	return PaddedLen(n) - n
}

// IsFixedKind reports whether k is a fixed-width primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// WireSize returns the encoded width of a fixed-width kind, or -1.
// Everything narrower than 32 bits widens to a full XDR unit.
func WireSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}
