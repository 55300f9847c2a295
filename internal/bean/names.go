package bean

import "github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"

// AliasDecl is one alias registration: Alias resolves to Target.
type AliasDecl struct {
	Alias  string
	Target string
	Source source.Location
}

// NameMapper resolves bean names and alias chains within one set of beans.
// It is rebuilt from scratch whenever its inputs change, so the result does
// not depend on the order in which aliases were edited.
type NameMapper struct {
	byName   map[string]*Pointer
	aliases  map[string]AliasDecl
	order    []AliasDecl
	allNames map[*Descriptor][]string
}

// NewNameMapper indexes beans by name and registers every inline alias of
// those beans followed by the standalone aliases.
func NewNameMapper(beans []*Pointer, standalone []AliasDecl) *NameMapper {
	m := &NameMapper{
		byName:   make(map[string]*Pointer),
		aliases:  make(map[string]AliasDecl),
		allNames: make(map[*Descriptor][]string),
	}

	for _, p := range beans {
		d := p.Descriptor()
		if d.Name == "" {
			continue
		}
		if _, dup := m.byName[d.Name]; !dup {
			m.byName[d.Name] = p.Base()
		}
	}

	register := func(a AliasDecl) {
		if a.Alias == "" || a.Target == "" || a.Alias == a.Target {
			return
		}
		if _, dup := m.aliases[a.Alias]; dup {
			return
		}
		m.aliases[a.Alias] = a
		m.order = append(m.order, a)
	}
	for _, p := range beans {
		d := p.Descriptor()
		for _, alias := range d.Aliases {
			register(AliasDecl{Alias: alias, Target: d.Name, Source: d.Source})
		}
	}
	for _, a := range standalone {
		register(a)
	}

	for _, p := range beans {
		d := p.Descriptor()
		if d.Name != "" && m.byName[d.Name] == p.Base() {
			m.allNames[d] = []string{d.Name}
		}
	}
	for _, a := range m.order {
		if _, real := m.byName[a.Alias]; real {
			continue
		}
		if target, ok := m.Resolve(a.Alias); ok {
			d := target.Descriptor()
			m.allNames[d] = append(m.allNames[d], a.Alias)
		}
	}
	return m
}

// Resolve finds the bean registered under name, following aliases. The
// returned pointer is presented as name. An alias cycle resolves to nothing.
func (m *NameMapper) Resolve(name string) (*Pointer, bool) {
	visited := make(map[string]struct{})
	cur := name
	for {
		if p, ok := m.byName[cur]; ok {
			return p.Derive(name), true
		}
		a, ok := m.aliases[cur]
		if !ok {
			return nil, false
		}
		if _, seen := visited[cur]; seen {
			return nil, false
		}
		visited[cur] = struct{}{}
		cur = a.Target
	}
}

// AliasTarget returns the direct target of an alias declared here.
func (m *NameMapper) AliasTarget(alias string) (AliasDecl, bool) {
	a, ok := m.aliases[alias]
	return a, ok
}

// Aliases returns every alias registration in declaration order.
func (m *NameMapper) Aliases() []AliasDecl {
	return append([]AliasDecl(nil), m.order...)
}

// AllNames returns every name p is reachable by: its own name followed by all
// aliases whose chain ends at it.
func (m *NameMapper) AllNames(p *Pointer) []string {
	return append([]string(nil), m.allNames[p.Descriptor()]...)
}

// Has reports whether name resolves to a bean.
func (m *NameMapper) Has(name string) bool {
	_, ok := m.Resolve(name)
	return ok
}

// Names returns every declared bean name and alias.
func (m *NameMapper) Names() []string {
	out := make([]string, 0, len(m.byName)+len(m.order))
	for name := range m.byName {
		out = append(out, name)
	}
	for _, a := range m.order {
		out = append(out, a.Alias)
	}
	return out
}
