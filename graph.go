package xdr

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rawbytedev/goxdr/internal/logger"
)

// Type is a named converter built on first use. A factory may refer to
// other Types, including ones not yet defined or itself, but must not encode,
// decode or validate through them while it runs.
type Type[T any] struct {
	name    string
	deps    []string
	factory func() Converter[T]

	once   sync.Once
	conv   Converter[T]
	failed string
}

// NewType returns a standalone lazy converter.
func NewType[T any](name string, factory func() Converter[T]) *Type[T] {
	return &Type[T]{name: name, factory: factory}
}

func (t *Type[T]) Name() string { return t.name }

// Deps are the names declared when the type was defined.
func (t *Type[T]) Deps() []string { return slices.Clone(t.deps) }

// Converter materializes the type if needed and returns the cached result.
// A factory that panics leaves the type unusable; later calls panic again
// with the original cause.
func (t *Type[T]) Converter() Converter[T] {
	t.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				t.failed = fmt.Sprint(r)
				panic(r)
			}
		}()
		logger.Debug("materializing xdr type", logger.KeyType, t.name)
		t.conv = t.factory()
		if t.conv == nil {
			panic(fmt.Sprintf("xdr: factory for %s returned nil", t.name))
		}
	})
	if t.conv == nil {
		panic(fmt.Sprintf("xdr: type %s failed to build: %s", t.name, t.failed))
	}
	return t.conv
}

func (t *Type[T]) Encode(v T, w *WriteStream) error { return t.Converter().Encode(v, w) }
func (t *Type[T]) Decode(r *ReadStream) (T, error)  { return t.Converter().Decode(r) }
func (t *Type[T]) IsValid(v T) bool                 { return t.Converter().IsValid(v) }

func (t *Type[T]) probe() (discriminator[T], bool) { return probeOf(t.Converter()) }

// Marshal encodes v into a fresh buffer.
func (t *Type[T]) Marshal(v T) ([]byte, error) {
	b, err := Encode[T](t, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	return b, nil
}

// Unmarshal decodes data, which must hold exactly one value.
func (t *Type[T]) Unmarshal(data []byte) (T, error) {
	v, err := Decode[T](t, data)
	if err != nil {
		return v, fmt.Errorf("%s: %w", t.name, err)
	}
	return v, nil
}

type node interface {
	Name() string
	Deps() []string
	erase() Converter[any]
	warm()
}

func (t *Type[T]) erase() Converter[any] { return Erase[T](t) }
func (t *Type[T]) warm()                 { t.Converter() }

// Graph is a registry of named, possibly mutually recursive, types.
// Definitions are expected up front; lookups are safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]node
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]node)}
}

// Define registers a type under name. It panics if the name is taken.
func Define[T any](g *Graph, name string, factory func() Converter[T], deps ...string) *Type[T] {
	t := &Type[T]{name: name, deps: slices.Clone(deps), factory: factory}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodes == nil {
		g.nodes = make(map[string]node)
	}
	if _, dup := g.nodes[name]; dup {
		panic(fmt.Sprintf("xdr: type %s defined twice", name))
	}
	g.nodes[name] = t
	return t
}

func (g *Graph) node(name string) (node, bool) {
	g.mu.RLock()
	n, ok := g.nodes[name]
	g.mu.RUnlock()
	return n, ok
}

// Lookup returns the named type as an untyped converter without
// materializing it.
func (g *Graph) Lookup(name string) (Converter[any], error) {
	n, ok := g.node(name)
	if !ok {
		return nil, errorf(ErrUnknownType, "%s", name)
	}
	return n.erase(), nil
}

// Has reports whether name is defined.
func (g *Graph) Has(name string) bool {
	_, ok := g.node(name)
	return ok
}

// Names lists every defined type, sorted.
func (g *Graph) Names() []string {
	g.mu.RLock()
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	g.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Closure returns roots plus every type reachable through declared
// dependencies, in discovery order. With no roots it starts from all types.
func (g *Graph) Closure(roots ...string) ([]string, error) {
	if len(roots) == 0 {
		roots = g.Names()
	}
	todo := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			todo = append(todo, r)
		}
	}
	done := make([]string, 0, len(todo))
	for len(todo) > 0 {
		name := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		n, ok := g.node(name)
		if !ok {
			return nil, errorf(ErrUnknownType, "%s", name)
		}
		done = append(done, name)
		for _, d := range n.Deps() {
			if !seen[d] {
				seen[d] = true
				todo = append(todo, d)
			}
		}
	}
	return done, nil
}

// Warm materializes every type so that later use never runs a factory.
func (g *Graph) Warm() {
	g.mu.RLock()
	nodes := make([]node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()
	for _, n := range nodes {
		n.warm()
	}
	logger.Debug("xdr graph warmed", logger.KeyTypeCount, len(nodes))
}
