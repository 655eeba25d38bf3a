package schema

import (
	"fmt"
	"strings"

	xdr "github.com/rawbytedev/goxdr"
)

type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindHyper
	KindUHyper
	KindBool
	KindFloat
	KindDouble
	KindVoid
	KindString
	KindOpaque
	KindVarOpaque
	KindArray
	KindVarArray
	KindOption
	KindRef
)

// Type is a type expression: a primitive, a constructed type or a
// reference to a named definition.
type Type struct {
	Kind Kind
	N    uint32 // fixed length or maximum
	Elem *Type
	Ref  string
}

func Int() Type    { return Type{Kind: KindInt} }
func Uint() Type   { return Type{Kind: KindUint} }
func Hyper() Type  { return Type{Kind: KindHyper} }
func UHyper() Type { return Type{Kind: KindUHyper} }
func Bool() Type   { return Type{Kind: KindBool} }
func Float() Type  { return Type{Kind: KindFloat} }
func Double() Type { return Type{Kind: KindDouble} }
func Void() Type   { return Type{Kind: KindVoid} }

// String is string<max>; pass xdr.Unbounded for string<>.
func String(max uint32) Type           { return Type{Kind: KindString, N: max} }
func Opaque(n uint32) Type             { return Type{Kind: KindOpaque, N: n} }
func VarOpaque(max uint32) Type        { return Type{Kind: KindVarOpaque, N: max} }
func Array(t Type, n uint32) Type      { return Type{Kind: KindArray, N: n, Elem: &t} }
func VarArray(t Type, max uint32) Type { return Type{Kind: KindVarArray, N: max, Elem: &t} }
func Option(t Type) Type               { return Type{Kind: KindOption, Elem: &t} }
func Ref(name string) Type             { return Type{Kind: KindRef, Ref: name} }

// String renders t in XDR notation.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func bound(n uint32) string {
	if n == xdr.Unbounded {
		return ""
	}
	return fmt.Sprint(n)
}

func (t Type) write(b *strings.Builder) {
	switch t.Kind {
	case KindInt:
		b.WriteString("int")
	case KindUint:
		b.WriteString("unsigned int")
	case KindHyper:
		b.WriteString("hyper")
	case KindUHyper:
		b.WriteString("unsigned hyper")
	case KindBool:
		b.WriteString("bool")
	case KindFloat:
		b.WriteString("float")
	case KindDouble:
		b.WriteString("double")
	case KindVoid:
		b.WriteString("void")
	case KindString:
		fmt.Fprintf(b, "string<%s>", bound(t.N))
	case KindOpaque:
		fmt.Fprintf(b, "opaque[%d]", t.N)
	case KindVarOpaque:
		fmt.Fprintf(b, "opaque<%s>", bound(t.N))
	case KindArray:
		t.Elem.write(b)
		fmt.Fprintf(b, "[%d]", t.N)
	case KindVarArray:
		t.Elem.write(b)
		fmt.Fprintf(b, "<%s>", bound(t.N))
	case KindOption:
		t.Elem.write(b)
		b.WriteByte('*')
	case KindRef:
		b.WriteString(t.Ref)
	}
}

// refs appends the names t refers to.
func (t Type) refs(out []string) []string {
	switch {
	case t.Kind == KindRef:
		return append(out, t.Ref)
	case t.Elem != nil:
		return t.Elem.refs(out)
	}
	return out
}
