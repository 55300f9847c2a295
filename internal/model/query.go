package model

import (
	"context"
	"slices"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
)

// Graph-level queries. Each walks the models reachable from m and asks every
// model's local processor under that model's own active profiles. A
// cancelled walk, or one that reaches a disposed module, yields nothing.

// FindBeanByName returns the first bean reachable by name. Aliases declared
// in one file for a bean of another file are followed.
func FindBeanByName(ctx context.Context, mc *Context, m Model, name string) (*bean.Pointer, bool) {
	if name == "" {
		return nil, false
	}
	if p, ok := firstByName(ctx, mc, m, name); ok {
		return p, true
	}
	return crossFileAlias(ctx, mc, m, name)
}

// FindBeansByName returns every bean reachable by name, each once.
func FindBeansByName(ctx context.Context, mc *Context, m Model, name string) []*bean.Pointer {
	if name == "" {
		return nil
	}
	var out []*bean.Pointer
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return nil
		}
		if proc := cur.Processor(); proc != nil {
			out = append(out, proc.FindByName(name, profilesOf(cur))...)
		}
	}
	if len(out) == 0 {
		if p, ok := crossFileAlias(ctx, mc, m, name); ok {
			return []*bean.Pointer{p}
		}
	}
	return bean.Dedup(out)
}

// FindBeansByType returns every bean reachable from m that matches q, each
// once, in walk order.
func FindBeansByType(ctx context.Context, mc *Context, m Model, q lookup.TypeQuery) []*bean.Pointer {
	if q.Type == "" {
		return nil
	}
	var out []*bean.Pointer
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return nil
		}
		if proc := cur.Processor(); proc != nil {
			out = append(out, proc.FindByType(q, profilesOf(cur))...)
		}
	}
	return bean.Dedup(out)
}

// BeanExists reports whether any reachable bean produces typ, counting
// inheritors and factory products. It stops at the first match.
func BeanExists(ctx context.Context, mc *Context, m Model, typ string) bool {
	if typ == "" {
		return false
	}
	q := lookup.TypeQuery{Type: typ, WithInheritors: true, Effective: true}
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return false
		}
		if proc := cur.Processor(); proc != nil {
			if _, ok := proc.FindFirstByType(q, profilesOf(cur)); ok {
				return true
			}
		}
	}
	return false
}

// AllBeans returns every bean reachable from m that passes its model's
// profile gate. It touches every model; prefer the targeted queries.
func AllBeans(ctx context.Context, mc *Context, m Model) []*bean.Pointer {
	var out []*bean.Pointer
	for p, err := range Beans(ctx, mc, m) {
		if err != nil {
			return nil
		}
		out = append(out, p)
	}
	return bean.Dedup(out)
}

// RelatedModels returns the direct dependencies of m, each model once, in
// edge order.
func RelatedModels(mc *Context, m Model) []Model {
	var out []Model
	seen := make(map[ID]struct{})
	for _, dep := range m.Dependencies() {
		if _, ok := seen[dep.Model]; ok {
			continue
		}
		seen[dep.Model] = struct{}{}
		if target, ok := mc.Get(dep.Model); ok {
			out = append(out, target)
		}
	}
	return out
}

// ActiveProfiles returns the profile context of m. Combined models have none.
func ActiveProfiles(m Model) (bean.ProfileSet, bool) {
	return m.ActiveProfiles()
}

// DescendantBeans returns every bean that inherits from p through parent
// references, across all XML models reachable from m.
func DescendantBeans(ctx context.Context, mc *Context, m Model, p *bean.Pointer) []*bean.Pointer {
	if p == nil {
		return nil
	}
	var files []*XMLModel
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return nil
		}
		if x, ok := cur.(*XMLModel); ok {
			files = append(files, x)
		}
	}
	childrenOf := func(name string) []*bean.Pointer {
		var out []*bean.Pointer
		for _, x := range files {
			out = append(out, x.state().children[name]...)
		}
		return out
	}
	return descendants(p, childrenOf, nil)
}

// descendants collects the transitive children of p depth first. A child
// refers to its parent by any of the parent's names. Cycles, including a bean
// that is its own parent, end the search.
func descendants(p *bean.Pointer, childrenOf func(string) []*bean.Pointer, names *bean.NameMapper) []*bean.Pointer {
	var out []*bean.Pointer
	seen := map[*bean.Descriptor]struct{}{p.Descriptor(): {}}
	var visit func(cur *bean.Pointer)
	visit = func(cur *bean.Pointer) {
		for _, name := range namesOf(cur, names) {
			for _, child := range childrenOf(name) {
				if _, ok := seen[child.Descriptor()]; ok {
					continue
				}
				seen[child.Descriptor()] = struct{}{}
				out = append(out, child)
				visit(child)
			}
		}
	}
	visit(p)
	return out
}

func namesOf(p *bean.Pointer, names *bean.NameMapper) []string {
	out := p.Names()
	if names == nil {
		return out
	}
	for _, n := range names.AllNames(p) {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func profilesOf(m Model) bean.ProfileSet {
	active, _ := m.ActiveProfiles()
	return active
}

func firstByName(ctx context.Context, mc *Context, m Model, name string) (*bean.Pointer, bool) {
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return nil, false
		}
		if proc := cur.Processor(); proc != nil {
			if p, ok := proc.FindFirstByName(name, profilesOf(cur)); ok {
				return p, true
			}
		}
	}
	return nil, false
}

// crossFileAlias follows an alias declared in some reachable file to a bean
// declared anywhere in the graph. Alias cycles resolve to nothing.
func crossFileAlias(ctx context.Context, mc *Context, m Model, name string) (*bean.Pointer, bool) {
	seen := make(map[string]struct{})
	cur := name
	for {
		if _, ok := seen[cur]; ok {
			return nil, false
		}
		seen[cur] = struct{}{}
		target, ok := aliasTarget(ctx, mc, m, cur)
		if !ok {
			return nil, false
		}
		if p, ok := firstByName(ctx, mc, m, target); ok {
			return p.Derive(name), true
		}
		cur = target
	}
}

func aliasTarget(ctx context.Context, mc *Context, m Model, alias string) (string, bool) {
	for cur, err := range Models(ctx, mc, m) {
		if err != nil {
			return "", false
		}
		if local, ok := cur.(Local); ok {
			if a, ok := local.Names().AliasTarget(alias); ok && a.Target != "" {
				return a.Target, true
			}
		}
	}
	return "", false
}
