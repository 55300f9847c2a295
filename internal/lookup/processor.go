package lookup

import (
	"slices"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// Source is the model a processor searches. Only local beans are searched;
// graph traversal is the caller's job.
type Source interface {
	LocalBeans() []*bean.Pointer
	NameMapper() *bean.NameMapper
	// Trackers lists what the local beans depend on.
	Trackers() []*tracker.Tracker
	// ResolveParent finds a parent bean by name, possibly outside the model.
	ResolveParent(name string) (*bean.Pointer, bool)
}

// TypeQuery selects beans by class.
type TypeQuery struct {
	Type string
	// WithInheritors also matches beans of concrete subclasses of Type.
	WithInheritors bool
	// Effective matches the produced type of factory beans and the type
	// inherited from a parent bean definition.
	Effective bool
	// IncludeAbstract lets abstract template beans match.
	IncludeAbstract bool
}

type nameKey struct {
	name     string
	profiles string
}

type typeKey struct {
	query    TypeQuery
	profiles string
}

type state struct {
	beans     []*bean.Pointer
	names     *bean.NameMapper
	byName    *LRU[nameKey, []*bean.Pointer]
	firstName *LRU[nameKey, *bean.Pointer]
	byType    *LRU[typeKey, []*bean.Pointer]
	firstType *LRU[typeKey, *bean.Pointer]
}

// Processor answers by-name and by-type queries over one model's local beans.
// Each query shape has a find-all and a find-first cache; both are dropped
// together whenever the model's dependencies move.
type Processor struct {
	src        Source
	types      source.TypeSystem
	inheritors *InheritorCache
	size       int
	state      *tracker.Value[*state]
}

// NewProcessor creates a processor for src. size bounds every cache.
func NewProcessor(src Source, types source.TypeSystem, inheritors *InheritorCache, size int) *Processor {
	p := &Processor{src: src, types: types, inheritors: inheritors, size: size}
	p.state = tracker.NewValue(func(d *tracker.Deps) (*state, error) {
		d.Add(src.Trackers()...)
		return p.newState(), nil
	})
	return p
}

func (p *Processor) newState() *state {
	valid := func(k typeKey) bool {
		if p.types == nil {
			return true
		}
		_, ok := p.types.Class(k.query.Type)
		return ok
	}
	return &state{
		beans:     p.src.LocalBeans(),
		names:     p.src.NameMapper(),
		byName:    NewLRU[nameKey, []*bean.Pointer](p.size, nil),
		firstName: NewLRU[nameKey, *bean.Pointer](p.size, nil),
		byType:    NewLRU[typeKey, []*bean.Pointer](p.size, valid),
		firstType: NewLRU[typeKey, *bean.Pointer](p.size, valid),
	}
}

func (p *Processor) current() *state {
	return p.state.MustGet()
}

// FindByName returns every local bean reachable by name, presented as name.
func (p *Processor) FindByName(name string, active bean.ProfileSet) []*bean.Pointer {
	if name == "" {
		return nil
	}
	st := p.current()
	return st.byName.GetOrCompute(nameKey{name, active.String()}, func() []*bean.Pointer {
		var out []*bean.Pointer
		p.scanByName(st, name, active, func(ptr *bean.Pointer) bool {
			out = append(out, ptr)
			return true
		})
		return out
	})
}

// FindFirstByName returns the first local bean reachable by name.
func (p *Processor) FindFirstByName(name string, active bean.ProfileSet) (*bean.Pointer, bool) {
	if name == "" {
		return nil, false
	}
	st := p.current()
	found := st.firstName.GetOrCompute(nameKey{name, active.String()}, func() *bean.Pointer {
		var first *bean.Pointer
		p.scanByName(st, name, active, func(ptr *bean.Pointer) bool {
			first = ptr
			return false
		})
		return first
	})
	return found, found != nil
}

func (p *Processor) scanByName(st *state, name string, active bean.ProfileSet, emit func(*bean.Pointer) bool) {
	direct := false
	for _, ptr := range st.beans {
		d := ptr.Descriptor()
		if d.Name != name && !slices.Contains(d.Aliases, name) {
			continue
		}
		direct = true
		if !accept(ptr, active) {
			continue
		}
		if !emit(ptr.Derive(name)) {
			return
		}
	}
	if direct || st.names == nil {
		return
	}
	if ptr, ok := st.names.Resolve(name); ok && accept(ptr, active) {
		emit(ptr)
	}
}

// FindByType returns every local bean matching q in declaration order.
func (p *Processor) FindByType(q TypeQuery, active bean.ProfileSet) []*bean.Pointer {
	if q.Type == "" {
		return nil
	}
	st := p.current()
	return st.byType.GetOrCompute(typeKey{q, active.String()}, func() []*bean.Pointer {
		var out []*bean.Pointer
		p.scanByType(st, q, active, func(ptr *bean.Pointer) bool {
			out = append(out, ptr)
			return true
		})
		return bean.Dedup(out)
	})
}

// FindFirstByType returns the first local bean matching q without
// materializing the full result.
func (p *Processor) FindFirstByType(q TypeQuery, active bean.ProfileSet) (*bean.Pointer, bool) {
	if q.Type == "" {
		return nil, false
	}
	st := p.current()
	found := st.firstType.GetOrCompute(typeKey{q, active.String()}, func() *bean.Pointer {
		var first *bean.Pointer
		p.scanByType(st, q, active, func(ptr *bean.Pointer) bool {
			first = ptr
			return false
		})
		return first
	})
	return found, found != nil
}

func (p *Processor) scanByType(st *state, q TypeQuery, active bean.ProfileSet, emit func(*bean.Pointer) bool) {
	targets := []string{q.Type}
	if q.WithInheritors && p.inheritors != nil {
		for _, inh := range p.inheritors.Inheritors(q.Type) {
			if inh != q.Type {
				targets = append(targets, inh)
			}
		}
	}

	seen := make(map[*bean.Descriptor]struct{})
	for _, target := range targets {
		for _, ptr := range st.beans {
			d := ptr.Descriptor()
			if _, dup := seen[d]; dup {
				continue
			}
			if d.Abstract && !q.IncludeAbstract {
				continue
			}
			if !slices.Contains(p.beanTypes(ptr, q.Effective), target) {
				continue
			}
			if !accept(ptr, active) {
				continue
			}
			seen[d] = struct{}{}
			if !emit(ptr) {
				return
			}
		}
	}
}

// beanTypes returns the types a bean is searched under.
func (p *Processor) beanTypes(ptr *bean.Pointer, effective bool) []string {
	d := ptr.Descriptor()
	if !effective {
		if d.DeclaredType == "" {
			return nil
		}
		return []string{d.DeclaredType}
	}
	if types := d.Types(); len(types) > 0 {
		return types
	}
	return p.parentTypes(ptr)
}

// parentTypes walks the parent chain of a class-less bean until an ancestor
// declares a class. A self or cyclic parent chain yields nothing.
func (p *Processor) parentTypes(ptr *bean.Pointer) []string {
	visited := map[*bean.Descriptor]struct{}{ptr.Descriptor(): {}}
	cur := ptr.Descriptor()
	for cur.ParentName != "" {
		parent, ok := p.src.ResolveParent(cur.ParentName)
		if !ok {
			return nil
		}
		pd := parent.Descriptor()
		if _, seen := visited[pd]; seen {
			return nil
		}
		visited[pd] = struct{}{}
		if pd.DeclaredType != "" {
			out := []string{pd.DeclaredType}
			for _, t := range pd.EffectiveTypes {
				if !slices.Contains(out, t) {
					out = append(out, t)
				}
			}
			if p.types != nil {
				if obj, ok := p.types.FactoryObjectType(pd.DeclaredType); ok && !slices.Contains(out, obj) {
					out = append(out, obj)
				}
			}
			return out
		}
		cur = pd
	}
	return nil
}

// EffectiveTypes exposes the types a bean is matched under for effective
// queries, including those inherited from parent definitions.
func (p *Processor) EffectiveTypes(ptr *bean.Pointer) []string {
	return p.beanTypes(ptr, true)
}

func accept(ptr *bean.Pointer, active bean.ProfileSet) bool {
	return ptr.Valid() && ptr.Descriptor().Profiles.Accepts(active)
}
