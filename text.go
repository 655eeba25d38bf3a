package xdr

import (
	"unicode/utf16"
	"unicode/utf8"
)

const (
	surrHighStart = 0xd800
	surrLowStart  = 0xdc00
	surrEnd       = 0xe000
)

// UTF16 converts a Go string to UTF-16 code units.
func UTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// utf16ToString decodes code units; unpaired surrogates become U+FFFD.
func utf16ToString(units []uint16) string {
	return string(utf16.Decode(units))
}

// appendUTF16AsUTF8 transcodes units to UTF-8. A high surrogate followed by
// a low surrogate becomes one 4-byte sequence; any other surrogate unit is
// written in its 3-byte form so that it survives a round trip through Text.
func appendUTF16AsUTF8(dst []byte, units []uint16) []byte {
	for i := 0; i < len(units); i++ {
		c := rune(units[i])
		switch {
		case c < 0x80:
			dst = append(dst, byte(c))
		case c < 0x800:
			dst = append(dst, byte(c>>6)|0xc0, byte(c&0x3f)|0x80)
		case c >= surrHighStart && c < surrLowStart && i+1 < len(units) &&
			units[i+1] >= surrLowStart && units[i+1] < surrEnd:
			cp := utf16.DecodeRune(c, rune(units[i+1]))
			i++
			dst = append(dst,
				byte(cp>>18)|0xf0,
				byte((cp>>12)&0x3f)|0x80,
				byte((cp>>6)&0x3f)|0x80,
				byte(cp&0x3f)|0x80)
		default:
			dst = append(dst, byte(c>>12)|0xe0, byte((c>>6)&0x3f)|0x80, byte(c&0x3f)|0x80)
		}
	}
	return dst
}

// decodeUTF8ToUTF16 is deliberately permissive: continuation bytes are
// masked rather than validated, and an incomplete sequence at the tail is
// dropped. Bytes that cannot start a sequence decode to U+FFFD.
func decodeUTF8ToUTF16(b []byte) []uint16 {
	out := make([]uint16, 0, len(b))
	n := len(b)
	i := 0
	for i < n {
		c := b[i]
		i++
		switch {
		case c&0x80 == 0:
			out = append(out, uint16(c))
		case c&0xe0 == 0xc0:
			if i >= n {
				return out
			}
			out = append(out, uint16(c&0x1f)<<6|uint16(b[i]&0x3f))
			i++
		case c&0xf0 == 0xe0:
			if i+1 >= n {
				return out
			}
			out = append(out, uint16(c&0x0f)<<12|uint16(b[i]&0x3f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf8 == 0xf0:
			if i+2 >= n {
				return out
			}
			cp := rune(c&0x07)<<18 | rune(b[i]&0x3f)<<12 | rune(b[i+1]&0x3f)<<6 | rune(b[i+2]&0x3f)
			i += 3
			if cp < 0x10000 || cp > utf8.MaxRune {
				out = append(out, utf8.RuneError)
				continue
			}
			hi, lo := utf16.EncodeRune(cp)
			out = append(out, uint16(hi), uint16(lo))
		default:
			out = append(out, utf8.RuneError)
		}
	}
	return out
}

// utf8Len is the encoded size of units under appendUTF16AsUTF8.
func utf8Len(units []uint16) int {
	n := 0
	for i := 0; i < len(units); i++ {
		c := units[i]
		switch {
		case c < 0x80:
			n++
		case c < 0x800:
			n += 2
		case c >= surrHighStart && c < surrLowStart && i+1 < len(units) &&
			units[i+1] >= surrLowStart && units[i+1] < surrEnd:
			n += 4
			i++
		default:
			n += 3
		}
	}
	return n
}
