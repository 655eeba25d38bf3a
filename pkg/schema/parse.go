package schema

import (
	"fmt"
	"math"
	"strconv"
	"unicode"

	xdr "github.com/rawbytedev/goxdr"
)

// ConstFunc resolves a named constant.
type ConstFunc func(name string) (int64, bool)

// ParseType reads a type expression in XDR notation, e.g. "int",
// "unsigned hyper", "string<32>", "opaque[4]", "Point<>", "Node*" or
// "int[MAX]". Sizes may name constants resolved through consts.
func ParseType(expr string, consts ConstFunc) (Type, error) {
	p := &typeParser{src: expr, consts: consts}
	p.next()
	t, err := p.parse()
	if err != nil {
		return Type{}, fmt.Errorf("%w: %q: %w", ErrSyntax, expr, err)
	}
	return t, nil
}

type token struct {
	kind byte // 'i' ident, 'n' number, 0 end, else punctuation
	text string
}

type typeParser struct {
	src    string
	pos    int
	tok    token
	consts ConstFunc
}

func (p *typeParser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{}
		return
	}
	start := p.pos
	c := rune(p.src[p.pos])
	switch {
	case c == '_' || unicode.IsLetter(c):
		for p.pos < len(p.src) && isIdent(rune(p.src[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: 'i', text: p.src[start:p.pos]}
	case unicode.IsDigit(c):
		for p.pos < len(p.src) && isIdent(rune(p.src[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: 'n', text: p.src[start:p.pos]}
	default:
		p.pos++
		p.tok = token{kind: byte(c), text: string(c)}
	}
}

func isIdent(c rune) bool { return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c) }

func (p *typeParser) expect(kind byte) error {
	if p.tok.kind != kind {
		return p.unexpected()
	}
	p.next()
	return nil
}

func (p *typeParser) unexpected() error {
	if p.tok.kind == 0 {
		return fmt.Errorf("unexpected end")
	}
	return fmt.Errorf("unexpected %q at %d", p.tok.text, p.pos-len(p.tok.text))
}

func (p *typeParser) parse() (Type, error) {
	t, err := p.base()
	if err != nil {
		return t, err
	}
	for p.tok.kind != 0 {
		switch p.tok.kind {
		case '[':
			p.next()
			n, err := p.size()
			if err != nil {
				return t, err
			}
			if err := p.expect(']'); err != nil {
				return t, err
			}
			t = Array(t, n)
		case '<':
			n, err := p.maxBound()
			if err != nil {
				return t, err
			}
			t = VarArray(t, n)
		case '*':
			p.next()
			t = Option(t)
		default:
			return t, p.unexpected()
		}
	}
	return t, nil
}

func (p *typeParser) base() (Type, error) {
	if p.tok.kind != 'i' {
		return Type{}, p.unexpected()
	}
	word := p.tok.text
	p.next()
	switch word {
	case "int":
		return Int(), nil
	case "uint":
		return Uint(), nil
	case "hyper":
		return Hyper(), nil
	case "uhyper":
		return UHyper(), nil
	case "unsigned":
		if p.tok.kind == 'i' && (p.tok.text == "int" || p.tok.text == "hyper") {
			w := p.tok.text
			p.next()
			if w == "hyper" {
				return UHyper(), nil
			}
		}
		return Uint(), nil
	case "bool":
		return Bool(), nil
	case "float":
		return Float(), nil
	case "double":
		return Double(), nil
	case "void":
		return Void(), nil
	case "string":
		if p.tok.kind != '<' {
			return String(xdr.Unbounded), nil
		}
		n, err := p.maxBound()
		return String(n), err
	case "opaque":
		switch p.tok.kind {
		case '[':
			p.next()
			n, err := p.size()
			if err != nil {
				return Type{}, err
			}
			return Opaque(n), p.expect(']')
		case '<':
			n, err := p.maxBound()
			return VarOpaque(n), err
		}
		return Type{}, fmt.Errorf("opaque needs [n] or <max>")
	}
	return Ref(word), nil
}

// maxBound reads "<>" or "<n>".
func (p *typeParser) maxBound() (uint32, error) {
	if err := p.expect('<'); err != nil {
		return 0, err
	}
	if p.tok.kind == '>' {
		p.next()
		return xdr.Unbounded, nil
	}
	n, err := p.size()
	if err != nil {
		return 0, err
	}
	return n, p.expect('>')
}

func (p *typeParser) size() (uint32, error) {
	var n int64
	switch p.tok.kind {
	case 'n':
		v, err := strconv.ParseInt(p.tok.text, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad size %q", p.tok.text)
		}
		n = v
	case 'i':
		v, ok := p.lookup(p.tok.text)
		if !ok {
			return 0, fmt.Errorf("%w %s", ErrUndefinedConstant, p.tok.text)
		}
		n = v
	default:
		return 0, p.unexpected()
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("size %d out of range", n)
	}
	p.next()
	return uint32(n), nil
}

func (p *typeParser) lookup(name string) (int64, bool) {
	if p.consts == nil {
		return 0, false
	}
	return p.consts(name)
}
