// Package model composes local bean models (XML files, configuration
// classes, component scans) into a possibly cyclic graph and answers bean
// queries over it. Models live in an arena and refer to each other by ID.
package model

import (
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// ID identifies a model inside its arena.
type ID int

// Kind is the variant of a model.
type Kind string

const (
	XMLKind      Kind = "xml"
	ClassKind    Kind = "class"
	ScanKind     Kind = "scan"
	FileSetKind  Kind = "fileset"
	CombinedKind Kind = "combined"
)

// EdgeType says why one model depends on another.
type EdgeType string

const (
	Import        EdgeType = "import"
	ComponentScan EdgeType = "component-scan"
	Inheritance   EdgeType = "inheritance"
	Custom        EdgeType = "custom"
)

// Edge describes one dependency between models.
type Edge struct {
	Label  string
	Type   EdgeType
	Source source.Location
}

// Dependency is an outgoing edge to another model.
type Dependency struct {
	Model ID
	Edge  Edge
}

// Model is one node of the model graph.
type Model interface {
	ID() ID
	Kind() Kind
	String() string
	Module() string
	// ActiveProfiles returns the profile context of the model, if it has one.
	ActiveProfiles() (bean.ProfileSet, bool)
	// LocalBeans returns the beans declared by this model alone.
	LocalBeans() []*bean.Pointer
	// Dependencies returns the direct outgoing edges.
	Dependencies() []Dependency
	// Processor returns the local finder. Composite models have none.
	Processor() *lookup.Processor
}

// Local is a model backed by a single configuration unit.
type Local interface {
	Model
	Unit() (source.Unit, bool)
	Names() *bean.NameMapper
}

type base struct {
	id       ID
	mc       *Context
	module   string
	profiles bean.ProfileSet
}

func (b *base) ID() ID         { return b.id }
func (b *base) Module() string { return b.module }

func (b *base) ActiveProfiles() (bean.ProfileSet, bool) {
	return b.profiles, true
}

// depSet accumulates dependencies without repeating a (model, type, label)
// triple, keeping first-seen order.
type depSet struct {
	out  []Dependency
	seen map[depKey]struct{}
}

type depKey struct {
	id    ID
	typ   EdgeType
	label string
}

func (s *depSet) add(m Model, e Edge) {
	if m == nil {
		return
	}
	if s.seen == nil {
		s.seen = make(map[depKey]struct{})
	}
	k := depKey{m.ID(), e.Type, e.Label}
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.out = append(s.out, Dependency{Model: m.ID(), Edge: e})
}
