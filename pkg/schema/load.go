package schema

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/goxdr/internal/logger"
)

// document is the YAML form of a schema:
//
//	constants:
//	  MAXNAME: 32
//	types:
//	  Name: string<MAXNAME>
//	  Color:
//	    enum: {RED: 0, GREEN: 1}
//	  Point:
//	    struct: {x: int, y: int, label: Name}
//	  Shape:
//	    union:
//	      switch: Color
//	      cases: {RED: radius, GREEN: void}
//	      arms: {radius: unsigned int}
//	      default: void
//
// Mapping order is kept: struct fields and union cases are declared in
// document order.
type document struct {
	Constants yaml.Node `yaml:"constants"`
	Types     yaml.Node `yaml:"types"`
}

// Load reads a YAML schema and binds it.
func Load(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s := New()
	if err := s.loadConstants(&doc.Constants); err != nil {
		return nil, err
	}
	if err := s.loadTypes(&doc.Types); err != nil {
		return nil, err
	}
	if err := s.Bind(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads a YAML schema file and binds it.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("schema loaded", logger.KeySchema, path, logger.KeyTypeCount, len(s.Names()))
	return s, nil
}

type pair struct{ key, value *yaml.Node }

// pairs lists the entries of a mapping node in order. A zero node is an
// empty mapping.
func pairs(n *yaml.Node, what string) ([]pair, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "%s must be a mapping", what)
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind != yaml.ScalarNode {
			return nil, nodeError(k, "%s keys must be scalars", what)
		}
		out = append(out, pair{key: k, value: n.Content[i+1]})
	}
	return out, nil
}

func nodeError(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalid, n.Line, fmt.Sprintf(format, args...))
}

func scalar(n *yaml.Node, what string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", nodeError(n, "%s must be a scalar", what)
	}
	return n.Value, nil
}

func (s *Schema) loadConstants(n *yaml.Node) error {
	entries, err := pairs(n, "constants")
	if err != nil {
		return err
	}
	for _, e := range entries {
		var v int64
		if err := e.value.Decode(&v); err != nil {
			return nodeError(e.value, "constant %s: %v", e.key.Value, err)
		}
		if err := s.Const(e.key.Value, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) loadTypes(n *yaml.Node) error {
	entries, err := pairs(n, "types")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.loadType(e.key.Value, e.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) parse(n *yaml.Node, what string) (Type, error) {
	text, err := scalar(n, what)
	if err != nil {
		return Type{}, err
	}
	t, err := ParseType(text, s.Constant)
	if err != nil {
		return Type{}, fmt.Errorf("line %d: %s: %w", n.Line, what, err)
	}
	return t, nil
}

func (s *Schema) loadType(name string, n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		t, err := s.parse(n, name)
		if err != nil {
			return err
		}
		return s.Typedef(name, t)
	}
	entries, err := pairs(n, name)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return nodeError(n, "type %s needs exactly one of typedef, enum, struct, union", name)
	}
	body := entries[0].value
	switch kind := entries[0].key.Value; kind {
	case "typedef":
		t, err := s.parse(body, name)
		if err != nil {
			return err
		}
		return s.Typedef(name, t)
	case "enum":
		return s.loadEnum(name, body)
	case "struct":
		return s.loadStruct(name, body)
	case "union":
		return s.loadUnion(name, body)
	default:
		return nodeError(entries[0].key, "type %s: unknown kind %s", name, kind)
	}
}

func (s *Schema) loadEnum(name string, n *yaml.Node) error {
	entries, err := pairs(n, name)
	if err != nil {
		return err
	}
	values := make(map[string]int32, len(entries))
	for _, e := range entries {
		text, err := scalar(e.value, name+"."+e.key.Value)
		if err != nil {
			return err
		}
		v, ok := s.Constant(text)
		if !ok {
			parsed, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return fmt.Errorf("line %d: %w %s in enum %s", e.value.Line, ErrUndefinedConstant, text, name)
			}
			v = parsed
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nodeError(e.value, "enum %s: %d does not fit an int", name, v)
		}
		if _, dup := values[e.key.Value]; dup {
			return nodeError(e.key, "enum %s repeats %s", name, e.key.Value)
		}
		values[e.key.Value] = int32(v)
	}
	return s.Enum(name, values)
}

func (s *Schema) loadStruct(name string, n *yaml.Node) error {
	entries, err := pairs(n, name)
	if err != nil {
		return err
	}
	fields := make([]Field, 0, len(entries))
	for _, e := range entries {
		t, err := s.parse(e.value, name+"."+e.key.Value)
		if err != nil {
			return err
		}
		fields = append(fields, Field{Name: e.key.Value, Type: t})
	}
	return s.Struct(name, fields...)
}

func (s *Schema) loadUnion(name string, n *yaml.Node) error {
	entries, err := pairs(n, name)
	if err != nil {
		return err
	}
	var u UnionDef
	u.Arms = make(map[string]Type)
	hasSwitch := false
	for _, e := range entries {
		switch e.key.Value {
		case "switch":
			if u.Switch, err = s.parse(e.value, name+".switch"); err != nil {
				return err
			}
			hasSwitch = true
		case "cases":
			cases, err := pairs(e.value, name+".cases")
			if err != nil {
				return err
			}
			for _, c := range cases {
				arm, err := scalar(c.value, name+".cases."+c.key.Value)
				if err != nil {
					return err
				}
				u.Cases = append(u.Cases, UnionCase{Value: c.key.Value, Arm: arm})
			}
		case "arms":
			arms, err := pairs(e.value, name+".arms")
			if err != nil {
				return err
			}
			for _, a := range arms {
				t, err := s.parse(a.value, name+".arms."+a.key.Value)
				if err != nil {
					return err
				}
				u.Arms[a.key.Value] = t
			}
		case "default":
			if u.Default, err = scalar(e.value, name+".default"); err != nil {
				return err
			}
		default:
			return nodeError(e.key, "union %s: unknown key %s", name, e.key.Value)
		}
	}
	if !hasSwitch {
		return nodeError(n, "union %s needs a switch", name)
	}
	return s.Union(name, u)
}
