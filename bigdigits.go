package xdr

import (
	"regexp"
	"strings"
)

const alphabet = "0123456789abcdef"

var literalPattern = regexp.MustCompile(`^\s*([-+]?)\s*(0x|0b|0o)?([0-9a-f]+)\s*$`)

// convertBases re-expresses a big-endian digit array given in baseIn as a
// big-endian digit array in baseOut, one multiply-add-carry pass per input
// digit. All arithmetic stays on small integers.
func convertBases(digits []uint32, baseIn, baseOut uint32) []uint32 {
	// little-endian while accumulating
	acc := []uint32{0}
	for _, d := range digits {
		for i := range acc {
			acc[i] *= baseIn
		}
		acc[0] += d
		for i := 0; i < len(acc); i++ {
			if acc[i] >= baseOut {
				if i+1 == len(acc) {
					acc = append(acc, 0)
				}
				acc[i+1] += acc[i] / baseOut
				acc[i] %= baseOut
			}
		}
	}
	for i, j := 0, len(acc)-1; i < j; i, j = i+1, j-1 {
		acc[i], acc[j] = acc[j], acc[i]
	}
	return acc
}

// maxDigits is the longest 64-bit literal per base, leading zeros aside.
var maxDigits = map[uint32]int{2: 64, 8: 22, 10: 20, 16: 16}

// parseLiteral splits a numeric literal into its sign and the two 32-bit
// words of its magnitude. Commas are ignored anywhere in the literal.
func parseLiteral(text string) (negative bool, low, high uint32, err error) {
	text = strings.ReplaceAll(strings.ToLower(text), ",", "")
	m := literalPattern.FindStringSubmatch(text)
	if m == nil {
		return false, 0, 0, errorf(ErrInvalidData, "invalid number literal %q", text)
	}

	base := uint32(10)
	switch m[2] {
	case "0x":
		base = 16
	case "0b":
		base = 2
	case "0o":
		base = 8
	}

	digits := make([]uint32, len(m[3]))
	for i := 0; i < len(m[3]); i++ {
		d := uint32(strings.IndexByte(alphabet, m[3][i]))
		if d >= base {
			return false, 0, 0, errorf(ErrInvalidData, "digit %q not allowed in base %d", m[3][i], base)
		}
		digits[i] = d
	}
	if len(strings.TrimLeft(m[3], "0")) > maxDigits[base] {
		return false, 0, 0, errorf(ErrOverflow, "%q does not fit in 64 bits", text)
	}

	bytes := convertBases(digits, base, 256)
	if len(bytes) > 8 {
		return false, 0, 0, errorf(ErrOverflow, "%q does not fit in 64 bits", text)
	}
	var word [8]uint32
	copy(word[8-len(bytes):], bytes)
	high = word[0]<<24 | word[1]<<16 | word[2]<<8 | word[3]
	low = word[4]<<24 | word[5]<<16 | word[6]<<8 | word[7]
	return m[1] == "-", low, high, nil
}

// ParseInteger64 parses a decimal, 0x, 0b or 0o literal.
func ParseInteger64(text string) (Integer64, error) {
	neg, low, high, err := parseLiteral(text)
	if err != nil {
		return Integer64{}, err
	}
	if neg {
		return UnsignedInteger64{low: low, high: high}.Negate()
	}
	if high > 1<<31-1 {
		return Integer64{}, errorf(ErrRange, "%q exceeds the signed maximum", text)
	}
	return Integer64{low: low, high: int32(high)}, nil
}

// ParseUnsignedInteger64 is ParseInteger64 for the unsigned type; a minus
// sign is rejected even in front of zero.
func ParseUnsignedInteger64(text string) (UnsignedInteger64, error) {
	neg, low, high, err := parseLiteral(text)
	if err != nil {
		return UnsignedInteger64{}, err
	}
	if neg {
		return UnsignedInteger64{}, errorf(ErrRange, "negative literal %q for unsigned value", text)
	}
	return UnsignedInteger64{low: low, high: high}, nil
}

func (v UnsignedInteger64) decimalDigits() []uint32 {
	return convertBases([]uint32{v.high >> 16, v.high & 0xffff, v.low >> 16, v.low & 0xffff}, 0x10000, 10)
}

// String renders the value in decimal with comma-separated triplets,
// e.g. "18,446,744,073,709,551,615".
func (v UnsignedInteger64) String() string {
	digits := v.decimalDigits()
	var sb strings.Builder
	sb.Grow(len(digits) + len(digits)/3)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(alphabet[d])
	}
	return sb.String()
}

// Decimal renders the value in plain decimal digits.
func (v UnsignedInteger64) Decimal() string {
	digits := v.decimalDigits()
	b := make([]byte, len(digits))
	for i, d := range digits {
		b[i] = alphabet[d]
	}
	return string(b)
}

func (v Integer64) String() string {
	if v.high < 0 {
		return "-" + v.Abs().String()
	}
	return v.Abs().String()
}

func (v Integer64) Decimal() string {
	if v.high < 0 {
		return "-" + v.Abs().Decimal()
	}
	return v.Abs().Decimal()
}
