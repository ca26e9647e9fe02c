package tesmx

import (
	"fmt"
	"slices"

	"github.com/comalice/tesmx/internal/primitives"
)

// Tagged is implemented by every state, message and command value. The tag is
// the discriminant of the closed sum type the value belongs to and must
// uniquely determine the shape of the value.
type Tagged interface {
	Tag() string
}

// Variant is a payload stamped with its discriminant. It is the zero-effort
// way to build a sum type when several variants share a payload shape.
type Variant[P any] struct {
	Kind    string
	Payload P
}

// Tag returns the discriminant.
func (v Variant[P]) Tag() string { return v.Kind }

func (v Variant[P]) String() string { return fmt.Sprintf("%s%+v", v.Kind, v.Payload) }

// Registry is a closed, ordered list of tags.
type Registry struct {
	name  string
	tags  []string
	index map[string]int
}

// NewRegistry declares the tags of one sum type. Empty or duplicate tags are
// rejected with a *ConfigurationError.
func NewRegistry(name string, tags ...string) (*Registry, error) {
	if err := primitives.CheckTags(name, tags); err != nil {
		return nil, &ConfigurationError{Machine: name, Reason: err.Error()}
	}
	r := &Registry{
		name:  name,
		tags:  slices.Clone(tags),
		index: make(map[string]int, len(tags)),
	}
	for i, t := range tags {
		r.index[t] = i
	}
	return r, nil
}

// MustRegistry is NewRegistry for package-level declarations.
func MustRegistry(name string, tags ...string) *Registry {
	r, err := NewRegistry(name, tags...)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Tags returns the declared tags in declaration order.
func (r *Registry) Tags() []string { return slices.Clone(r.tags) }

// Has reports whether tag is declared.
func (r *Registry) Has(tag string) bool {
	_, ok := r.index[tag]
	return ok
}

// Len returns the number of declared tags.
func (r *Registry) Len() int { return len(r.tags) }

// Constructor returns the constructor for a declared tag. The constructor
// stamps tag onto its payload and does nothing else.
func Constructor[P any](r *Registry, tag string) (func(P) Variant[P], error) {
	if !r.Has(tag) {
		return nil, configErrorf(r.name, "tag %q is not declared", tag)
	}
	return func(p P) Variant[P] {
		return Variant[P]{Kind: tag, Payload: p}
	}, nil
}

// MustConstructor is Constructor for package-level declarations.
func MustConstructor[P any](r *Registry, tag string) func(P) Variant[P] {
	c, err := Constructor[P](r, tag)
	if err != nil {
		panic(err)
	}
	return c
}

// Shape groups the registries declared by a YAML shape document.
type Shape struct {
	Name     string
	// Version is the declared version, or a content hash when none is given.
	Version  string
	States   *Registry
	Messages *Registry
	Commands *Registry
}

// LoadShape parses a YAML shape document into registries.
//
//	name: TrafficLight
//	states: [green, yellow, red]
//	messages: [timer_elapsed, reset]
//	commands: [scheduleNextChange, logChange]
func LoadShape(data []byte) (Shape, error) {
	s, err := primitives.ParseShape(data)
	if err != nil {
		return Shape{}, &ConfigurationError{Reason: err.Error()}
	}
	out := Shape{Name: s.Name, Version: primitives.ComputeVersion(s)}
	if out.States, err = NewRegistry(s.Name+".states", s.States...); err != nil {
		return Shape{}, err
	}
	if out.Messages, err = NewRegistry(s.Name+".messages", s.Messages...); err != nil {
		return Shape{}, err
	}
	if out.Commands, err = NewRegistry(s.Name+".commands", s.Commands...); err != nil {
		return Shape{}, err
	}
	return out, nil
}
