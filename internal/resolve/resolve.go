// Package resolve builds the root models of each module: one per configured
// file set, or the auto-discovered configuration units when a module has no
// file sets, and the combined model that spans them.
package resolve

import (
	"context"
	"slices"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/model"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// Manager resolves and caches the model graph roots per module.
type Manager struct {
	mc       *model.Context
	profiles bean.ProfileSet

	roots    tracker.Map[string, *rootSet]
	combined tracker.Map[string, *model.CombinedModel]
}

type rootSet struct {
	roots []model.Model
	// closure holds the roots followed by every file set they depend on,
	// transitively, across modules.
	closure []model.Model
}

// NewManager creates a manager over mc. profiles is the active profile set
// of auto-discovered roots; file set roots carry their own.
func NewManager(mc *model.Context, profiles bean.ProfileSet) *Manager {
	return &Manager{mc: mc, profiles: profiles}
}

// Context returns the model context the manager resolves in.
func (m *Manager) Context() *model.Context {
	return m.mc
}

// Roots returns the root models of module. A disposed or unknown module has
// none.
func (m *Manager) Roots(ctx context.Context, module string) ([]model.Model, error) {
	rs, err := m.rootSet(ctx, module)
	if err != nil || rs == nil {
		return nil, err
	}
	return rs.roots, nil
}

// FileSetClosure returns the file set roots of module together with every
// file set they depend on.
func (m *Manager) FileSetClosure(ctx context.Context, module string) ([]model.Model, error) {
	rs, err := m.rootSet(ctx, module)
	if err != nil || rs == nil {
		return nil, err
	}
	return rs.closure, nil
}

func (m *Manager) rootSet(ctx context.Context, module string) (*rootSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.mc.Disposed(module) {
		return nil, nil
	}
	rs, err := m.roots.Get(module, func(d *tracker.Deps) (*rootSet, error) {
		tr := m.mc.Project.Trackers()
		d.Add(tr.Outer, tr.Profiles, tr.Structure)
		return m.resolveRoots(module)
	})
	if err != nil {
		return nil, err
	}
	if m.mc.Disposed(module) {
		return nil, nil
	}
	return rs, nil
}

// resolveRoots picks the root provider for module: configured file sets,
// else auto-configuration when enabled, else nothing.
func (m *Manager) resolveRoots(module string) (*rootSet, error) {
	if sets := m.mc.Project.FileSets(module); len(sets) > 0 {
		return m.fileSetRoots(module, sets), nil
	}
	if !m.mc.Project.AutoConfiguration() {
		return &rootSet{}, nil
	}
	roots, err := m.autoRoots(module)
	if err != nil {
		return nil, err
	}
	return &rootSet{roots: roots, closure: roots}, nil
}

func (m *Manager) fileSetRoots(module string, sets []source.FileSet) *rootSet {
	rs := &rootSet{}
	candidates := make(map[model.ID]struct{})
	add := func(fm *model.FileSetModel) bool {
		if _, ok := candidates[fm.ID()]; ok {
			return false
		}
		candidates[fm.ID()] = struct{}{}
		rs.closure = append(rs.closure, fm)
		return true
	}
	for _, fs := range sets {
		if fs.Removed {
			continue
		}
		fm := m.mc.FileSetModel(module, fs.ID)
		rs.roots = append(rs.roots, fm)
		add(fm)
	}
	// Dependencies are resolved against the growing candidate set so that
	// mutually dependent file sets are built once.
	for i := 0; i < len(rs.closure); i++ {
		for _, dep := range rs.closure[i].Dependencies() {
			target, ok := m.mc.Get(dep.Model)
			if !ok {
				continue
			}
			if fm, ok := target.(*model.FileSetModel); ok {
				add(fm)
			}
		}
	}
	return rs
}

// autoRoots returns the configuration units of module that no other unit
// pulls in: top-level application and configuration classes and beans XML
// files. Units that only reach each other through a cycle are added in
// declaration order until every candidate is covered.
func (m *Manager) autoRoots(module string) ([]model.Model, error) {
	var candidates []model.Model
	for _, cls := range m.mc.Project.Classes(module) {
		if cls.Module != module || cls.Outer != "" || !cls.Candidate() {
			continue
		}
		if !m.mc.IsConfiguration(cls) && !m.mc.IsApplication(cls) {
			continue
		}
		if cm, ok := m.mc.ClassModel(cls.FQN, module, m.profiles); ok {
			candidates = append(candidates, cm)
		}
	}
	for _, f := range m.mc.Project.XMLFiles(module) {
		if f.IsBeansFile() {
			candidates = append(candidates, m.mc.XMLModel(f.Path, module, m.profiles))
		}
	}

	reach := make(map[model.ID]map[model.ID]struct{}, len(candidates))
	for _, c := range candidates {
		seen := make(map[model.ID]struct{})
		for _, dep := range c.Dependencies() {
			target, ok := m.mc.Get(dep.Model)
			if !ok {
				continue
			}
			_, err := model.Walk(context.Background(), m.mc, []model.Model{target}, func(r model.Model) bool {
				seen[r.ID()] = struct{}{}
				return true
			})
			if err != nil {
				return nil, err
			}
		}
		reach[c.ID()] = seen
	}

	imported := func(c model.Model) bool {
		for _, o := range candidates {
			if o.ID() == c.ID() {
				continue
			}
			if _, ok := reach[o.ID()][c.ID()]; ok {
				return true
			}
		}
		return false
	}

	var roots []model.Model
	covered := make(map[model.ID]struct{})
	cover := func(c model.Model) {
		roots = append(roots, c)
		covered[c.ID()] = struct{}{}
		for id := range reach[c.ID()] {
			covered[id] = struct{}{}
		}
	}
	for _, c := range candidates {
		if !imported(c) {
			cover(c)
		}
	}
	for _, c := range candidates {
		if _, ok := covered[c.ID()]; !ok {
			cover(c)
		}
	}
	// Keep class roots before XML roots, each in declaration order.
	slices.SortStableFunc(roots, func(a, b model.Model) int {
		return kindRank(a) - kindRank(b)
	})
	return roots, nil
}

func kindRank(m model.Model) int {
	if m.Kind() == model.ClassKind {
		return 0
	}
	return 1
}

// AllModels returns the roots of module. A module without roots falls back
// to the file set roots of the modules it depends on, and then to those of
// the modules depending on it, each resolved in that module's own context.
func (m *Manager) AllModels(ctx context.Context, module string) ([]model.Model, error) {
	roots, err := m.Roots(ctx, module)
	if err != nil || len(roots) > 0 || m.mc.Disposed(module) {
		return roots, err
	}

	mod, _ := m.mc.Project.Module(module)
	var tiers [][]string
	tiers = append(tiers, mod.Dependencies())
	var dependents []string
	for _, d := range m.mc.Project.Dependents(module) {
		dependents = append(dependents, d.Name())
	}
	tiers = append(tiers, dependents)

	for _, tier := range tiers {
		var out []model.Model
		for _, other := range tier {
			if m.mc.Disposed(other) || len(m.mc.Project.FileSets(other)) == 0 {
				continue
			}
			rs, err := m.Roots(ctx, other)
			if err != nil {
				return nil, err
			}
			out = appendUnique(out, rs...)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

// Combined returns the combined model of every model AllModels reports for
// module.
func (m *Manager) Combined(ctx context.Context, module string) (*model.CombinedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.mc.Disposed(module) {
		return m.mc.Combine(module, nil), nil
	}
	return m.combined.Get(module, func(d *tracker.Deps) (*model.CombinedModel, error) {
		tr := m.mc.Project.Trackers()
		d.Add(tr.Outer, tr.Profiles, tr.Structure)
		all, err := m.AllModels(context.Background(), module)
		if err != nil {
			return nil, err
		}
		return m.mc.Combine(module, all), nil
	})
}

func appendUnique(out []model.Model, ms ...model.Model) []model.Model {
	for _, m := range ms {
		if !slices.ContainsFunc(out, func(o model.Model) bool { return o.ID() == m.ID() }) {
			out = append(out, m)
		}
	}
	return out
}
