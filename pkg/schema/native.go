package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"

	xdr "github.com/rawbytedev/goxdr"
)

// ErrValue reports native data that does not fit the requested type.
var ErrValue = errors.New("schema: bad value")

// FromNative converts YAML or JSON shaped data into a dynamic value of the
// named type. Integers may be given as numbers or numeric strings, hypers
// also as comma-grouped or prefixed literals, opaque data as hex strings,
// structs as maps and unions as {type: tag, value: v} or
// {default: raw, value: v}.
func (s *Schema) FromNative(name string, v any) (any, error) {
	if err := s.checkBound(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.defs[name]; !ok {
		return nil, fmt.Errorf("%w: %s", xdr.ErrUnknownType, name)
	}
	return s.fromNative(Ref(name), v, name)
}

// ToNative renders a dynamic value of the named type in the shape
// FromNative accepts.
func (s *Schema) ToNative(name string, v any) (any, error) {
	if err := s.checkBound(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.defs[name]; !ok {
		return nil, fmt.Errorf("%w: %s", xdr.ErrUnknownType, name)
	}
	return s.toNative(Ref(name), v, name)
}

func (s *Schema) checkBound() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.bound {
		return fmt.Errorf("%w: schema is not bound", ErrInvalid)
	}
	return nil
}

func badValue(path string, want string, v any) error {
	return fmt.Errorf("%w: %s: want %s, got %T", ErrValue, path, want, v)
}

func (s *Schema) fromNative(t Type, v any, path string) (any, error) {
	switch t.Kind {
	case KindInt:
		n, ok := asInt(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, badValue(path, "int", v)
		}
		return int32(n), nil
	case KindUint:
		n, ok := asInt(v)
		if !ok || n < 0 || n > math.MaxUint32 {
			return nil, badValue(path, "unsigned int", v)
		}
		return uint32(n), nil
	case KindHyper:
		return hyperFromNative(v, path)
	case KindUHyper:
		return uhyperFromNative(v, path)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, badValue(path, "bool", v)
	case KindFloat:
		f, ok := asFloat(v)
		if !ok {
			return nil, badValue(path, "float", v)
		}
		return float32(f), nil
	case KindDouble:
		f, ok := asFloat(v)
		if !ok {
			return nil, badValue(path, "double", v)
		}
		return f, nil
	case KindVoid:
		if v != nil {
			return nil, badValue(path, "void", v)
		}
		return nil, nil
	case KindString:
		if str, ok := v.(string); ok {
			return str, nil
		}
		return nil, badValue(path, "string", v)
	case KindOpaque, KindVarOpaque:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			out, err := hex.DecodeString(b)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrValue, path, err)
			}
			return out, nil
		}
		return nil, badValue(path, "hex string", v)
	case KindArray, KindVarArray:
		list, ok := v.([]any)
		if !ok {
			return nil, badValue(path, "list", v)
		}
		out := make([]any, len(list))
		for i, e := range list {
			x, err := s.fromNative(*t.Elem, e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case KindOption:
		if v == nil {
			return nil, nil
		}
		return s.fromNative(*t.Elem, v, path)
	case KindRef:
		return s.defFromNative(s.defs[t.Ref], v, path)
	}
	return nil, fmt.Errorf("%w: %s: unknown kind %d", ErrInvalid, path, t.Kind)
}

func (s *Schema) defFromNative(d *definition, v any, path string) (any, error) {
	switch d.kind {
	case defTypedef:
		return s.fromNative(d.alias, v, path)
	case defEnum:
		if name, ok := v.(string); ok {
			if _, known := d.enum[name]; known {
				return name, nil
			}
		}
		if n, ok := asInt(v); ok {
			for name, value := range d.enum {
				if int64(value) == n {
					return name, nil
				}
			}
		}
		return nil, fmt.Errorf("%w: %s: %v is not a %s enumerator", ErrValue, path, v, d.name)
	case defStruct:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, badValue(path, "map", v)
		}
		out := make(Record, len(d.fields))
		for _, f := range d.fields {
			fv, present := m[f.Name]
			if !present && f.Type.Kind != KindOption && f.Type.Kind != KindVoid {
				return nil, fmt.Errorf("%w: %s: missing field %s", ErrValue, path, f.Name)
			}
			x, err := s.fromNative(f.Type, fv, path+"."+f.Name)
			if err != nil {
				return nil, err
			}
			out[f.Name] = x
		}
		for k := range m {
			if _, ok := out[k]; !ok {
				return nil, fmt.Errorf("%w: %s: unknown field %s", ErrValue, path, k)
			}
		}
		return out, nil
	case defUnion:
		return s.unionFromNative(d, v, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalid, path)
}

func (s *Schema) unionFromNative(d *definition, v any, path string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, badValue(path, "map with type or default", v)
	}
	payload, hasValue := m["value"]
	for k := range m {
		if k != "type" && k != "default" && k != "value" {
			return nil, fmt.Errorf("%w: %s: unknown union key %s", ErrValue, path, k)
		}
	}

	if raw, isDefault := m["default"]; isDefault {
		n, ok := asInt(raw)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, badValue(path+".default", "int", raw)
		}
		return s.defaultFromNative(d, int32(n), payload, hasValue, path)
	}

	rawTag, ok := m["type"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: union needs type or default", ErrValue, path)
	}
	tag, err := s.fromNative(d.union.Switch, rawTag, path+".type")
	if err != nil {
		return nil, err
	}
	for i, t := range d.tags {
		if t != tag {
			continue
		}
		if d.arms[i] == nil {
			if hasValue && payload != nil {
				return nil, fmt.Errorf("%w: %s: arm %v is void", ErrValue, path, tag)
			}
			return xdr.VoidCase[any](tag), nil
		}
		x, err := s.fromNative(*d.arms[i], payload, path+".value")
		if err != nil {
			return nil, err
		}
		return xdr.Case[any](tag, x), nil
	}
	// a valid discriminant without an arm goes to the default arm
	raw, err := s.rawDiscriminant(d, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValue, path, err)
	}
	return s.defaultFromNative(d, raw, payload, hasValue, path)
}

func (s *Schema) defaultFromNative(d *definition, raw int32, payload any, hasValue bool, path string) (any, error) {
	if d.union.Default == "" {
		return nil, fmt.Errorf("%w: %s: union %s has no default arm for %d", ErrValue, path, d.name, raw)
	}
	if d.defArm == nil {
		if hasValue && payload != nil {
			return nil, fmt.Errorf("%w: %s: default arm is void", ErrValue, path)
		}
		return xdr.VoidDefault[any](raw), nil
	}
	x, err := s.fromNative(*d.defArm, payload, path+".value")
	if err != nil {
		return nil, err
	}
	return xdr.DefaultCase[any](raw, x), nil
}

func (s *Schema) rawDiscriminant(d *definition, tag any) (int32, error) {
	switch t := tag.(type) {
	case int32:
		return t, nil
	case uint32:
		return int32(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		sw, err := s.base(d.union.Switch, nil)
		if err != nil {
			return 0, err
		}
		if sw.enum != nil {
			if n, ok := sw.enum.enum[t]; ok {
				return n, nil
			}
		}
	}
	return 0, fmt.Errorf("no discriminant for %v", tag)
}

func (s *Schema) toNative(t Type, v any, path string) (any, error) {
	want := func(ok bool, what string) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s: want %s, got %T", xdr.ErrWrongType, path, what, v)
	}
	switch t.Kind {
	case KindInt:
		_, ok := v.(int32)
		return v, want(ok, "int32")
	case KindUint:
		_, ok := v.(uint32)
		return v, want(ok, "uint32")
	case KindHyper:
		h, ok := v.(xdr.Integer64)
		if !ok {
			return nil, want(false, "xdr.Integer64")
		}
		return h.Decimal(), nil
	case KindUHyper:
		h, ok := v.(xdr.UnsignedInteger64)
		if !ok {
			return nil, want(false, "xdr.UnsignedInteger64")
		}
		return h.Decimal(), nil
	case KindBool:
		_, ok := v.(bool)
		return v, want(ok, "bool")
	case KindFloat:
		_, ok := v.(float32)
		return v, want(ok, "float32")
	case KindDouble:
		_, ok := v.(float64)
		return v, want(ok, "float64")
	case KindVoid:
		return nil, want(v == nil, "nil")
	case KindString:
		_, ok := v.(string)
		return v, want(ok, "string")
	case KindOpaque, KindVarOpaque:
		b, ok := v.([]byte)
		if !ok {
			return nil, want(false, "[]byte")
		}
		return hex.EncodeToString(b), nil
	case KindArray, KindVarArray:
		list, ok := v.([]any)
		if !ok {
			return nil, want(false, "[]any")
		}
		out := make([]any, len(list))
		for i, e := range list {
			x, err := s.toNative(*t.Elem, e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case KindOption:
		if v == nil {
			return nil, nil
		}
		return s.toNative(*t.Elem, v, path)
	case KindRef:
		return s.defToNative(s.defs[t.Ref], v, path)
	}
	return nil, fmt.Errorf("%w: %s: unknown kind %d", ErrInvalid, path, t.Kind)
}

func (s *Schema) defToNative(d *definition, v any, path string) (any, error) {
	switch d.kind {
	case defTypedef:
		return s.toNative(d.alias, v, path)
	case defEnum:
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want enumerator name, got %T", xdr.ErrWrongType, path, v)
		}
		return name, nil
	case defStruct:
		r, ok := v.(Record)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want Record, got %T", xdr.ErrWrongType, path, v)
		}
		out := make(map[string]any, len(d.fields))
		for _, f := range d.fields {
			x, err := s.toNative(f.Type, r[f.Name], path+"."+f.Name)
			if err != nil {
				return nil, err
			}
			out[f.Name] = x
		}
		return out, nil
	case defUnion:
		u, ok := v.(xdr.UnionValue[any])
		if !ok {
			return nil, fmt.Errorf("%w: %s: want xdr.UnionValue[any], got %T", xdr.ErrWrongType, path, v)
		}
		out := make(map[string]any, 2)
		arm := d.defArm
		if u.IsDefault {
			out["default"] = u.Discriminant
		} else {
			tag, err := s.toNative(d.union.Switch, u.Arm, path+".type")
			if err != nil {
				return nil, err
			}
			out["type"] = tag
			arm = nil
			for i, t := range d.tags {
				if t == u.Arm {
					arm = d.arms[i]
				}
			}
		}
		if arm != nil {
			x, err := s.toNative(*arm, u.Value, path+".value")
			if err != nil {
				return nil, err
			}
			out["value"] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalid, path)
}

func hyperFromNative(v any, path string) (any, error) {
	switch h := v.(type) {
	case xdr.Integer64:
		return h, nil
	case string:
		n, err := xdr.ParseInteger64(h)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	case uint64:
		if h > math.MaxInt64 {
			return nil, fmt.Errorf("%s: %w", path, xdr.ErrRange)
		}
		return xdr.FromInt64(int64(h)), nil
	}
	if n, ok := asInt(v); ok {
		return xdr.FromInt64(n), nil
	}
	return nil, badValue(path, "hyper", v)
}

func uhyperFromNative(v any, path string) (any, error) {
	switch h := v.(type) {
	case xdr.UnsignedInteger64:
		return h, nil
	case string:
		n, err := xdr.ParseUnsignedInteger64(h)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	case uint64:
		return xdr.FromUint64(h), nil
	}
	if n, ok := asInt(v); ok && n >= 0 {
		return xdr.FromUint64(uint64(n)), nil
	}
	return nil, badValue(path, "unsigned hyper", v)
}

// asInt accepts any Go integer, an integral float or a numeric string.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 0, 64)
		return i, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case string:
		x, err := strconv.ParseFloat(f, 64)
		return x, err == nil
	}
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	return 0, false
}
