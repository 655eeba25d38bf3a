package xdr

import "fmt"

// UnionValue is a decoded or to-be-encoded union. Exactly one of Arm and
// Discriminant is meaningful: Arm for declared arms, Discriminant (the raw
// wire tag) when IsDefault is set.
type UnionValue[D any] struct {
	Arm          D
	IsDefault    bool
	Discriminant int32
	Value        any
	HasValue     bool
}

func Case[D any](arm D, v any) UnionValue[D] {
	return UnionValue[D]{Arm: arm, Value: v, HasValue: true}
}

func VoidCase[D any](arm D) UnionValue[D] {
	return UnionValue[D]{Arm: arm}
}

func DefaultCase[D any](raw int32, v any) UnionValue[D] {
	return UnionValue[D]{IsDefault: true, Discriminant: raw, Value: v, HasValue: true}
}

func VoidDefault[D any](raw int32) UnionValue[D] {
	return UnionValue[D]{IsDefault: true, Discriminant: raw}
}

// UnionArm declares the payload carried for one discriminant. A nil
// payload declares a void arm.
type UnionArm[D comparable] struct {
	Tag     D
	Payload Converter[any]
}

func Arm[D comparable](tag D, payload Converter[any]) UnionArm[D] {
	return UnionArm[D]{Tag: tag, Payload: payload}
}

func VoidArm[D comparable](tag D) UnionArm[D] {
	return UnionArm[D]{Tag: tag}
}

// UnionConverter is a discriminated union with an optional default arm
// that catches discriminants no declared arm matches.
type UnionConverter[D comparable] struct {
	name       string
	switchOn   Converter[D]
	arms       map[D]Converter[any]
	order      []D
	hasDefault bool
	defValue   Converter[any]
}

// Union panics if two arms share a tag.
func Union[D comparable](name string, switchOn Converter[D], arms ...UnionArm[D]) *UnionConverter[D] {
	c := &UnionConverter[D]{
		name:     name,
		switchOn: switchOn,
		arms:     make(map[D]Converter[any], len(arms)),
		order:    make([]D, 0, len(arms)),
	}
	for _, a := range arms {
		if _, dup := c.arms[a.Tag]; dup {
			panic(fmt.Sprintf("xdr: union %s declares arm %v twice", name, a.Tag))
		}
		c.arms[a.Tag] = a.Payload
		c.order = append(c.order, a.Tag)
	}
	return c
}

// WithDefault returns a copy of c with a default arm; a nil payload makes
// the default arm void.
func (c *UnionConverter[D]) WithDefault(payload Converter[any]) *UnionConverter[D] {
	cp := *c
	cp.hasDefault = true
	cp.defValue = payload
	return &cp
}

func (c *UnionConverter[D]) Name() string { return c.name }

// Arms lists the declared tags in declaration order.
func (c *UnionConverter[D]) Arms() []D { return append([]D(nil), c.order...) }

func (c *UnionConverter[D]) HasDefault() bool { return c.hasDefault }

func (c *UnionConverter[D]) Encode(v UnionValue[D], w *WriteStream) error {
	if v.IsDefault {
		if !c.hasDefault {
			return errorf(ErrUnsupportedDefault, "union %s has no default arm", c.name)
		}
		if c.declares(v.Discriminant) {
			return errorf(ErrInvalidData, "union %s: default discriminant %d belongs to a declared arm", c.name, v.Discriminant)
		}
		w.WriteInt32(v.Discriminant)
		return c.encodePayload(c.defValue, v, "default", w)
	}
	payload, ok := c.arms[v.Arm]
	if !ok {
		return errorf(ErrInvalidData, "union %s has no arm %v", c.name, v.Arm)
	}
	if err := c.switchOn.Encode(v.Arm, w); err != nil {
		return fmt.Errorf("union %s: %w", c.name, err)
	}
	return c.encodePayload(payload, v, fmt.Sprint(v.Arm), w)
}

func (c *UnionConverter[D]) encodePayload(payload Converter[any], v UnionValue[D], arm string, w *WriteStream) error {
	if payload == nil {
		return nil
	}
	if !v.HasValue {
		return errorf(ErrMissingValue, "union %s arm %s needs a value", c.name, arm)
	}
	if err := payload.Encode(v.Value, w); err != nil {
		return fmt.Errorf("%s.%s: %w", c.name, arm, err)
	}
	return nil
}

// Decode reads the raw discriminant first and only then resolves it through
// the switch converter, so a tag unknown to the switch type still reaches
// the default arm instead of failing the whole value.
func (c *UnionConverter[D]) Decode(r *ReadStream) (UnionValue[D], error) {
	start := r.Pos()
	raw, err := r.ReadInt32()
	if err != nil {
		return UnionValue[D]{}, err
	}

	if tag, ok := c.resolve(raw, r, start); ok {
		if payload, declared := c.arms[tag]; declared {
			if payload == nil {
				return VoidCase(tag), nil
			}
			val, err := payload.Decode(r)
			if err != nil {
				return UnionValue[D]{}, fmt.Errorf("%s.%v: %w", c.name, tag, err)
			}
			return Case(tag, val), nil
		}
		r.seek(start + 4)
	}

	if !c.hasDefault {
		return UnionValue[D]{}, errorf(ErrUnrecognizedDiscriminant, "union %s: discriminant %d", c.name, raw)
	}
	if c.defValue == nil {
		return VoidDefault[D](raw), nil
	}
	val, err := c.defValue.Decode(r)
	if err != nil {
		return UnionValue[D]{}, fmt.Errorf("%s.default: %w", c.name, err)
	}
	return DefaultCase[D](raw, val), nil
}

// resolve maps raw onto the switch domain. Without a stream-free lookup it
// rewinds and lets the switch converter re-read the tag; on failure the
// cursor is left just past the raw tag.
func (c *UnionConverter[D]) resolve(raw int32, r *ReadStream, start int) (D, bool) {
	if d, ok := probeOf(c.switchOn); ok {
		return d.fromRaw(raw)
	}
	r.rewind(4)
	tag, err := c.switchOn.Decode(r)
	if err != nil {
		r.seek(start + 4)
		var zero D
		return zero, false
	}
	return tag, true
}

// declares reports whether raw decodes to one of the declared arms.
func (c *UnionConverter[D]) declares(raw int32) bool {
	var (
		tag D
		ok  bool
	)
	if d, found := probeOf(c.switchOn); found {
		tag, ok = d.fromRaw(raw)
	} else {
		w := NewWriteStream()
		w.WriteInt32(raw)
		var err error
		tag, err = c.switchOn.Decode(NewReadStream(w.Bytes()))
		ok = err == nil
	}
	if !ok {
		return false
	}
	_, declared := c.arms[tag]
	return declared
}

func (c *UnionConverter[D]) IsValid(v UnionValue[D]) bool {
	if v.IsDefault {
		if !c.hasDefault || c.declares(v.Discriminant) {
			return false
		}
		return c.defValue == nil || (v.HasValue && c.defValue.IsValid(v.Value))
	}
	if !c.switchOn.IsValid(v.Arm) {
		return false
	}
	payload, ok := c.arms[v.Arm]
	if !ok {
		return false
	}
	return payload == nil || (v.HasValue && payload.IsValid(v.Value))
}
