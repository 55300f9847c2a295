// Package bean defines bean descriptors, the stable pointers handed out to
// callers, profile predicates and alias resolution.
package bean

import (
	"fmt"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// Kind says what declared a bean.
type Kind string

const (
	XMLBean       Kind = "xml"
	Component     Kind = "component"
	FactoryMethod Kind = "factory-method"
	Scanned       Kind = "scanned"
	Placeholder   Kind = "placeholder"
	Custom        Kind = "custom"
)

// Descriptor is an immutable snapshot of one declared bean.
type Descriptor struct {
	Name    string
	Aliases []string
	// DeclaredType is the qualified class written at the declaration, if any.
	DeclaredType string
	// EffectiveTypes are the types produced once factory indirection is
	// unwrapped. Empty when it equals DeclaredType.
	EffectiveTypes []string
	ParentName     string
	FactoryBean    string
	FactoryMethod  string
	Profiles       Profiles
	Source         source.Location
	Abstract       bool
	Primary        bool
	Kind           Kind

	unit source.Unit
	base *Pointer
}

// New freezes d, binds it to the unit that declared it and returns its base
// pointer. d must not be modified afterwards.
func New(d *Descriptor, unit source.Unit) *Pointer {
	d.unit = unit
	d.base = &Pointer{d: d}
	return d.base
}

// Unit returns the declaring configuration unit.
func (d *Descriptor) Unit() source.Unit {
	return d.unit
}

// Types returns the effective types, falling back to the declared type.
func (d *Descriptor) Types() []string {
	if len(d.EffectiveTypes) > 0 {
		return d.EffectiveTypes
	}
	if d.DeclaredType != "" {
		return []string{d.DeclaredType}
	}
	return nil
}

// Pointer is a handle to a descriptor, optionally presented under another name.
// Two pointers are the same bean iff they share a descriptor.
type Pointer struct {
	d    *Descriptor
	name string
}

// Descriptor returns the underlying descriptor.
func (p *Pointer) Descriptor() *Descriptor {
	return p.d
}

// Name returns the presented name: the alias the bean was reached by, or its
// own name.
func (p *Pointer) Name() string {
	if p.name != "" {
		return p.name
	}
	return p.d.Name
}

// Derive presents the same bean under name.
func (p *Pointer) Derive(name string) *Pointer {
	if name == "" || name == p.d.Name {
		return p.d.base
	}
	return &Pointer{d: p.d, name: name}
}

// Base strips any alias presentation.
func (p *Pointer) Base() *Pointer {
	return p.d.base
}

// Same reports whether p and o refer to the same descriptor.
func (p *Pointer) Same(o *Pointer) bool {
	return p != nil && o != nil && p.d == o.d
}

// Valid reports whether the declaring unit still exists.
func (p *Pointer) Valid() bool {
	return p != nil && p.d != nil && (p.d.unit == nil || p.d.unit.Valid())
}

// Names returns the bean name followed by its declared aliases.
func (p *Pointer) Names() []string {
	var out []string
	if p.d.Name != "" {
		out = append(out, p.d.Name)
	}
	return append(out, p.d.Aliases...)
}

func (p *Pointer) String() string {
	name := p.Name()
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s(%s)@%s:%d", name, p.d.DeclaredType, p.d.Source.File, p.d.Source.Line)
}

// Dedup returns ps without repeated descriptors, keeping first occurrences.
func Dedup(ps []*Pointer) []*Pointer {
	seen := make(map[*Descriptor]struct{}, len(ps))
	out := ps[:0:0]
	for _, p := range ps {
		if _, ok := seen[p.d]; ok {
			continue
		}
		seen[p.d] = struct{}{}
		out = append(out, p)
	}
	return out
}
