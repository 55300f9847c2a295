package workspace

import (
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

const objectType = "java.lang.Object"

var factoryBases = map[string]struct{}{
	"FactoryBean":         {},
	"AbstractFactoryBean": {},
	"SmartFactoryBean":    {},
}

// ResolveTypeName resolves a type name written inside from: nested and
// enclosing classes, single-type imports, the same package, then on-demand
// imports. Names that cannot be resolved are returned as written, without
// type arguments.
func (w *Workspace) ResolveTypeName(from *source.Class, name string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolveLocked(from, name)
}

func (w *Workspace) resolveLocked(from *source.Class, name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return ""
	}
	if _, ok := w.classes[name]; ok || from == nil {
		return name
	}

	for outer := from; outer != nil; {
		if _, ok := w.classes[outer.FQN+"."+name]; ok {
			return outer.FQN + "." + name
		}
		next, ok := w.classes[outer.Outer]
		if !ok || outer.Outer == "" {
			break
		}
		outer = next
	}

	first, rest, dotted := strings.Cut(name, ".")
	for _, imp := range from.Imports {
		if strings.HasSuffix(imp, ".*") || source.SimpleName(imp) != first {
			continue
		}
		if dotted {
			return imp + "." + rest
		}
		return imp
	}

	if from.Package != "" {
		if cand := from.Package + "." + name; w.classes[cand] != nil {
			return cand
		}
	}
	for _, imp := range from.Imports {
		if pkg, ok := strings.CutSuffix(imp, ".*"); ok {
			if cand := pkg + "." + name; w.classes[cand] != nil {
				return cand
			}
		}
	}
	return name
}

// supertypes returns the resolved direct supertypes of fqn.
func (w *Workspace) supertypes(fqn string) []string {
	out, _ := w.supers.Get(fqn, func(d *tracker.Deps) ([]string, error) {
		d.Add(w.trackers.Classes)
		w.mu.RLock()
		defer w.mu.RUnlock()
		c, ok := w.classes[fqn]
		if !ok {
			return nil, nil
		}
		var names []string
		if c.Superclass != "" {
			names = append(names, w.resolveLocked(c, c.Superclass))
		}
		for _, i := range c.Interfaces {
			names = append(names, w.resolveLocked(c, i))
		}
		return names, nil
	})
	return out
}

// IsAssignable reports whether sub is super or inherits from it. Every type
// is assignable to java.lang.Object.
func (w *Workspace) IsAssignable(sub, super string) bool {
	if sub == super || super == objectType {
		return sub != ""
	}
	seen := map[string]struct{}{sub: {}}
	queue := []string{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range w.supertypes(cur) {
			if s == super {
				return true
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			queue = append(queue, s)
		}
	}
	return false
}

// Inheritors returns the classes visible from module that inherit from fqn,
// directly or transitively, sorted by name.
func (w *Workspace) Inheritors(moduleName, fqn string) []*source.Class {
	var out []*source.Class
	for _, c := range w.Classes(moduleName) {
		if c.FQN != fqn && w.IsAssignable(c.FQN, fqn) {
			out = append(out, c)
		}
	}
	return out
}

// FactoryObjectType returns the T of FactoryBean<T> implemented by fqn,
// searching its superclasses and superinterfaces.
func (w *Workspace) FactoryObjectType(fqn string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.factoryTypeLocked(fqn, make(map[string]struct{}))
}

func (w *Workspace) factoryTypeLocked(fqn string, seen map[string]struct{}) (string, bool) {
	if _, ok := seen[fqn]; ok {
		return "", false
	}
	seen[fqn] = struct{}{}
	c, ok := w.classes[fqn]
	if !ok {
		return "", false
	}

	for i, iface := range c.Interfaces {
		if _, base := factoryBases[source.SimpleName(iface)]; base && len(c.InterfaceArgs[i]) > 0 {
			return w.resolveLocked(c, c.InterfaceArgs[i][0]), true
		}
	}
	if c.Superclass != "" {
		if _, base := factoryBases[source.SimpleName(c.Superclass)]; base && len(c.SuperArgs) > 0 {
			return w.resolveLocked(c, c.SuperArgs[0]), true
		}
		if t, ok := w.factoryTypeLocked(w.resolveLocked(c, c.Superclass), seen); ok {
			return t, true
		}
	}
	for _, iface := range c.Interfaces {
		if t, ok := w.factoryTypeLocked(w.resolveLocked(c, iface), seen); ok {
			return t, true
		}
	}
	return "", false
}
