// Package schema describes XDR types at runtime and binds them to an
// xdr.Graph over dynamic values.
//
// Values are plain Go data: int32, uint32, xdr.Integer64,
// xdr.UnsignedInteger64, bool, float32, float64, string, []byte, []any,
// Record for structs, the enumerator name for enums, nil for void and
// absent optionals, and xdr.UnionValue[any] for unions. The union arm tag
// has the value type of the switch (enumerator name, int32, uint32 or bool).
package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	xdr "github.com/rawbytedev/goxdr"
	"github.com/rawbytedev/goxdr/internal/logger"
)

var (
	ErrSyntax            = errors.New("schema: bad type expression")
	ErrUndefinedConstant = errors.New("schema: undefined constant")
	ErrDuplicate         = errors.New("schema: duplicate name")
	ErrInvalid           = errors.New("schema: invalid definition")
	ErrBound             = errors.New("schema: already bound")
)

// Record is the dynamic value of a struct.
type Record = map[string]any

type defKind uint8

const (
	defTypedef defKind = iota
	defEnum
	defStruct
	defUnion
)

func (k defKind) String() string {
	switch k {
	case defTypedef:
		return "typedef"
	case defEnum:
		return "enum"
	case defStruct:
		return "struct"
	case defUnion:
		return "union"
	}
	return "unknown"
}

// Field is one struct member.
type Field struct {
	Name string
	Type Type
}

// UnionCase maps one discriminant literal to an arm. Arm names an entry of
// UnionDef.Arms, or is "void".
type UnionCase struct {
	Value string
	Arm   string
}

// UnionDef declares a union. Default, when set, names the arm that catches
// every other discriminant ("void" for a void default).
type UnionDef struct {
	Switch  Type
	Cases   []UnionCase
	Arms    map[string]Type
	Default string
}

const voidArm = "void"

type definition struct {
	name   string
	kind   defKind
	alias  Type
	enum   map[string]int32
	fields []Field
	union  UnionDef

	// resolved at Bind
	tags   []any
	arms   []*Type // nil for void
	defArm *Type
}

// Schema collects constants and named types. Definitions may refer to
// names defined later; Bind checks the whole set and registers it on the
// graph.
type Schema struct {
	mu     sync.RWMutex
	consts map[string]int64
	defs   map[string]*definition
	order  []string
	graph  *xdr.Graph
	bound  bool
}

func New() *Schema {
	return &Schema{
		consts: make(map[string]int64),
		defs:   make(map[string]*definition),
		graph:  xdr.NewGraph(),
	}
}

func (s *Schema) add(d *definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return ErrBound
	}
	if _, dup := s.defs[d.name]; dup {
		return fmt.Errorf("%w: type %s", ErrDuplicate, d.name)
	}
	if _, dup := s.consts[d.name]; dup {
		return fmt.Errorf("%w: %s is a constant", ErrDuplicate, d.name)
	}
	s.defs[d.name] = d
	s.order = append(s.order, d.name)
	return nil
}

// Const declares a named constant usable as a size or enum value.
func (s *Schema) Const(name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return ErrBound
	}
	if _, dup := s.consts[name]; dup {
		return fmt.Errorf("%w: constant %s", ErrDuplicate, name)
	}
	if _, dup := s.defs[name]; dup {
		return fmt.Errorf("%w: %s is a type", ErrDuplicate, name)
	}
	s.consts[name] = value
	return nil
}

// Constant looks up a constant.
func (s *Schema) Constant(name string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.consts[name]
	return v, ok
}

func (s *Schema) Typedef(name string, t Type) error {
	return s.add(&definition{name: name, kind: defTypedef, alias: t})
}

// Enum declares an enumeration; values must be distinct.
func (s *Schema) Enum(name string, values map[string]int32) error {
	seen := make(map[int32]string, len(values))
	for k, v := range values {
		if other, dup := seen[v]; dup {
			return fmt.Errorf("%w: enum %s assigns %d to %s and %s", ErrInvalid, name, v, other, k)
		}
		seen[v] = k
	}
	return s.add(&definition{name: name, kind: defEnum, enum: values})
}

func (s *Schema) Struct(name string, fields ...Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			return fmt.Errorf("%w: struct %s repeats field %s", ErrInvalid, name, f.Name)
		}
		seen[f.Name] = true
	}
	return s.add(&definition{name: name, kind: defStruct, fields: slices.Clone(fields)})
}

func (s *Schema) Union(name string, u UnionDef) error {
	return s.add(&definition{name: name, kind: defUnion, union: u})
}

// Names lists the defined types in definition order.
func (s *Schema) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Graph is the graph the schema binds into.
func (s *Schema) Graph() *xdr.Graph { return s.graph }

// Bind validates every definition and registers it on the graph.
// Converters are built lazily on first use.
func (s *Schema) Bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return ErrBound
	}
	for _, name := range s.order {
		if err := s.resolve(s.defs[name]); err != nil {
			return err
		}
	}
	for _, name := range s.order {
		s.define(s.defs[name])
	}
	s.bound = true
	logger.Info("schema bound", logger.KeyTypeCount, len(s.order))
	return nil
}

func (s *Schema) checkType(owner string, t Type) error {
	for _, r := range t.refs(nil) {
		if _, ok := s.defs[r]; !ok {
			return fmt.Errorf("%w: %s refers to undefined type %s", ErrInvalid, owner, r)
		}
	}
	return nil
}

// resolve must run with s.mu held.
func (s *Schema) resolve(d *definition) error {
	switch d.kind {
	case defTypedef:
		if err := s.checkType(d.name, d.alias); err != nil {
			return err
		}
		if _, err := s.base(d.alias, nil); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	case defStruct:
		for _, f := range d.fields {
			if err := s.checkType(d.name+"."+f.Name, f.Type); err != nil {
				return err
			}
		}
	case defUnion:
		return s.resolveUnion(d)
	}
	return nil
}

func (s *Schema) resolveUnion(d *definition) error {
	u := d.union
	if err := s.checkType(d.name, u.Switch); err != nil {
		return err
	}
	sw, err := s.base(u.Switch, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	if sw.enum == nil && sw.kind != KindInt && sw.kind != KindUint && sw.kind != KindBool {
		return fmt.Errorf("%w: union %s cannot switch on %s", ErrInvalid, d.name, u.Switch)
	}
	for arm, t := range u.Arms {
		if err := s.checkType(d.name+"."+arm, t); err != nil {
			return err
		}
	}
	armType := func(name string) (*Type, error) {
		if name == voidArm {
			return nil, nil
		}
		t, ok := u.Arms[name]
		if !ok {
			return nil, fmt.Errorf("%w: union %s has no arm %s", ErrInvalid, d.name, name)
		}
		if t.Kind == KindVoid {
			return nil, nil
		}
		return &t, nil
	}
	d.tags = d.tags[:0]
	d.arms = d.arms[:0]
	seen := make(map[any]bool, len(u.Cases))
	for _, c := range u.Cases {
		tag, err := s.tagOf(sw, c.Value)
		if err != nil {
			return fmt.Errorf("union %s: %w", d.name, err)
		}
		if seen[tag] {
			return fmt.Errorf("%w: union %s repeats case %s", ErrInvalid, d.name, c.Value)
		}
		seen[tag] = true
		at, err := armType(c.Arm)
		if err != nil {
			return err
		}
		d.tags = append(d.tags, tag)
		d.arms = append(d.arms, at)
	}
	d.defArm = nil
	if u.Default != "" {
		at, err := armType(u.Default)
		if err != nil {
			return err
		}
		d.defArm = at
	}
	return nil
}

// base follows typedefs until it reaches a definition or a non-reference
// type. seen guards against typedef cycles.
func (s *Schema) base(t Type, seen map[string]bool) (switchBase, error) {
	for t.Kind == KindRef {
		d := s.defs[t.Ref]
		switch d.kind {
		case defEnum:
			return switchBase{kind: KindRef, enum: d}, nil
		case defTypedef:
			if seen == nil {
				seen = make(map[string]bool)
			}
			if seen[d.name] {
				return switchBase{}, fmt.Errorf("%w: typedef cycle through %s", ErrInvalid, d.name)
			}
			seen[d.name] = true
			t = d.alias
		default:
			return switchBase{kind: KindRef}, nil
		}
	}
	return switchBase{kind: t.Kind}, nil
}

type switchBase struct {
	kind Kind
	enum *definition
}

// tagOf turns a case literal into the dynamic discriminant value.
func (s *Schema) tagOf(sw switchBase, lit string) (any, error) {
	switch {
	case sw.enum != nil:
		if _, ok := sw.enum.enum[lit]; !ok {
			return nil, fmt.Errorf("%w: %s is not a %s enumerator", ErrInvalid, lit, sw.enum.name)
		}
		return lit, nil
	case sw.kind == KindBool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return nil, fmt.Errorf("%w: case %q is not a bool", ErrInvalid, lit)
		}
		return b, nil
	case sw.kind == KindInt || sw.kind == KindUint:
		n, ok := s.consts[lit]
		if !ok {
			v, err := strconv.ParseInt(lit, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: case %q", ErrUndefinedConstant, lit)
			}
			n = v
		}
		if sw.kind == KindInt {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%w: case %d out of int range", ErrInvalid, n)
			}
			return int32(n), nil
		}
		if n < 0 || n > math.MaxUint32 {
			return nil, fmt.Errorf("%w: case %d out of unsigned int range", ErrInvalid, n)
		}
		return uint32(n), nil
	}
	return nil, fmt.Errorf("%w: cannot switch on this type", ErrInvalid)
}

// define must run with s.mu held, after resolve.
func (s *Schema) define(d *definition) {
	deps := s.depsOf(d)
	g := s.graph
	switch d.kind {
	case defTypedef:
		alias := d.alias
		xdr.Define(g, d.name, func() xdr.Converter[any] { return s.converter(alias) }, deps...)
	case defEnum:
		values := d.enum
		xdr.Define(g, d.name, func() xdr.Converter[string] { return xdr.Enum(d.name, values) }, deps...)
	case defStruct:
		xdr.Define(g, d.name, func() xdr.Converter[Record] {
			fields := make([]xdr.Field[Record], len(d.fields))
			for i, f := range d.fields {
				fields[i] = recordField(f.Name, s.converter(f.Type))
			}
			return xdr.Struct(d.name, fields...)
		}, deps...)
	case defUnion:
		xdr.Define(g, d.name, func() xdr.Converter[xdr.UnionValue[any]] {
			arms := make([]xdr.UnionArm[any], len(d.tags))
			for i, tag := range d.tags {
				arms[i] = xdr.Arm(tag, s.armConverter(d.arms[i]))
			}
			u := xdr.Union(d.name, s.converter(d.union.Switch), arms...)
			if d.union.Default != "" {
				u = u.WithDefault(s.armConverter(d.defArm))
			}
			return u
		}, deps...)
	}
}

func (s *Schema) depsOf(d *definition) []string {
	var deps []string
	switch d.kind {
	case defTypedef:
		deps = d.alias.refs(deps)
	case defStruct:
		for _, f := range d.fields {
			deps = f.Type.refs(deps)
		}
	case defUnion:
		deps = d.union.Switch.refs(deps)
		for _, name := range sortedKeys(d.union.Arms) {
			deps = d.union.Arms[name].refs(deps)
		}
	}
	slices.Sort(deps)
	return slices.Compact(deps)
}

func (s *Schema) armConverter(t *Type) xdr.Converter[any] {
	if t == nil {
		return nil
	}
	return s.converter(*t)
}

// converter builds the dynamic converter for t. References go through the
// graph so that they stay lazy.
func (s *Schema) converter(t Type) xdr.Converter[any] {
	switch t.Kind {
	case KindInt:
		return xdr.Erase(xdr.Int32)
	case KindUint:
		return xdr.Erase(xdr.Uint32)
	case KindHyper:
		return xdr.Erase(xdr.Hyper)
	case KindUHyper:
		return xdr.Erase(xdr.UHyper)
	case KindBool:
		return xdr.Erase(xdr.Bool)
	case KindFloat:
		return xdr.Erase(xdr.Float32)
	case KindDouble:
		return xdr.Erase(xdr.Float64)
	case KindVoid:
		return voidConv{}
	case KindString:
		return xdr.Erase(xdr.String(t.N))
	case KindOpaque:
		return xdr.Erase(xdr.Opaque(int(t.N)))
	case KindVarOpaque:
		return xdr.Erase(xdr.VarOpaque(t.N))
	case KindArray:
		return xdr.Erase(xdr.FixedArray(s.converter(*t.Elem), int(t.N)))
	case KindVarArray:
		return xdr.Erase(xdr.VarArray(s.converter(*t.Elem), t.N))
	case KindOption:
		return optionConv{opt: xdr.Option(s.converter(*t.Elem))}
	case KindRef:
		c, err := s.graph.Lookup(t.Ref)
		if err != nil {
			// Bind checked every reference
			panic(err)
		}
		return c
	}
	panic(fmt.Sprintf("schema: unknown kind %d", t.Kind))
}

func recordField(name string, c xdr.Converter[any]) xdr.Field[Record] {
	return xdr.FieldFunc(name, c,
		func(r *Record) any { return (*r)[name] },
		func(r *Record, v any) {
			if *r == nil {
				*r = make(Record)
			}
			(*r)[name] = v
		})
}

// voidConv is xdr.Void with nil as its only value.
type voidConv struct{}

func (voidConv) Encode(v any, w *xdr.WriteStream) error { return nil }
func (voidConv) Decode(r *xdr.ReadStream) (any, error)  { return nil, nil }
func (voidConv) IsValid(v any) bool                     { return v == nil }

// optionConv presents an optional value as nil or the value itself.
type optionConv struct{ opt xdr.Converter[*any] }

func (c optionConv) Encode(v any, w *xdr.WriteStream) error {
	if v == nil {
		return c.opt.Encode(nil, w)
	}
	return c.opt.Encode(&v, w)
}

func (c optionConv) Decode(r *xdr.ReadStream) (any, error) {
	p, err := c.opt.Decode(r)
	if err != nil || p == nil {
		return nil, err
	}
	return *p, nil
}

func (c optionConv) IsValid(v any) bool {
	if v == nil {
		return true
	}
	return c.opt.IsValid(&v)
}

func (s *Schema) lookup(name string) (xdr.Converter[any], error) {
	s.mu.RLock()
	bound := s.bound
	s.mu.RUnlock()
	if !bound {
		return nil, fmt.Errorf("%w: schema is not bound", ErrInvalid)
	}
	return s.graph.Lookup(name)
}

// Converter returns the converter of a named type.
func (s *Schema) Converter(name string) (xdr.Converter[any], error) { return s.lookup(name) }

// Marshal encodes v as the named type.
func (s *Schema) Marshal(name string, v any) ([]byte, error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	b, err := xdr.Encode(c, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// Unmarshal decodes data, which must hold exactly one value of the named
// type.
func (s *Schema) Unmarshal(name string, data []byte) (any, error) {
	c, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	v, err := xdr.Decode(c, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// Validate reports whether v is a valid value of the named type.
func (s *Schema) Validate(name string, v any) bool {
	c, err := s.lookup(name)
	return err == nil && c.IsValid(v)
}

// Closure returns the named types plus everything they depend on.
func (s *Schema) Closure(roots ...string) ([]string, error) {
	return s.graph.Closure(roots...)
}

// Describe returns the kind of a named type (typedef, enum, struct or
// union) and the type names its definition refers to.
func (s *Schema) Describe(name string) (kind string, refs []string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[name]
	if !ok {
		return "", nil, false
	}
	return d.kind.String(), s.depsOf(d), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
