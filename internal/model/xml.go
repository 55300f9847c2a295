package model

import (
	"fmt"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

const placeholderConfigurer = "cn.taketoday.context.support.PropertySourcesPlaceholderConfigurer"

type importRef struct {
	location string
	source   source.Location
}

type xmlState struct {
	file         *source.XMLFile
	beans        []*bean.Pointer
	placeholders []*bean.Pointer
	names        *bean.NameMapper
	// children maps a parent bean name to the beans declaring it.
	children map[string][]*bean.Pointer
	imports  []importRef
	scans    []ScanSpec
}

// XMLModel is the local model of one XML beans file.
type XMLModel struct {
	base
	path  string
	local *tracker.Value[*xmlState]
	deps  *tracker.Value[[]Dependency]
	proc  *lookup.Processor
}

func newXMLModel(mc *Context, id ID, path, module string, profiles bean.ProfileSet) *XMLModel {
	m := &XMLModel{
		base: base{id: id, mc: mc, module: module, profiles: profiles},
		path: path,
	}
	m.local = tracker.NewValue(m.computeLocal)
	m.deps = tracker.NewValue(m.computeDeps)
	m.proc = lookup.NewProcessor(xmlSource{m}, mc.Project, mc.inheritorCache(module), mc.CacheSize)
	return m
}

func (m *XMLModel) Kind() Kind                   { return XMLKind }
func (m *XMLModel) Path() string                 { return m.path }
func (m *XMLModel) Processor() *lookup.Processor { return m.proc }

func (m *XMLModel) String() string {
	if k := m.profiles.Key(); k != "" {
		return fmt.Sprintf("xml:%s[%s]", m.path, k)
	}
	return "xml:" + m.path
}

func (m *XMLModel) state() *xmlState {
	return m.local.MustGet()
}

// Unit returns the backing file while it exists.
func (m *XMLModel) Unit() (source.Unit, bool) {
	st := m.state()
	if st.file == nil || !st.file.Valid() {
		return nil, false
	}
	return st.file, true
}

// LocalBeans returns the beans of this file in document order.
func (m *XMLModel) LocalBeans() []*bean.Pointer {
	return m.state().beans
}

// PlaceholderBeans returns the synthetic property placeholder configurers.
func (m *XMLModel) PlaceholderBeans() []*bean.Pointer {
	return m.state().placeholders
}

// Names returns the alias mapper of this file.
func (m *XMLModel) Names() *bean.NameMapper {
	return m.state().names
}

// ScanSpecs returns the component scans declared in this file.
func (m *XMLModel) ScanSpecs() []ScanSpec {
	return m.state().scans
}

// Dependencies returns imports, component scans and extension edges.
func (m *XMLModel) Dependencies() []Dependency {
	return m.deps.MustGet()
}

// DescendantBeans returns every bean of this file inheriting from p,
// directly or through other children. Parent cycles end the search.
func (m *XMLModel) DescendantBeans(p *bean.Pointer) []*bean.Pointer {
	st := m.state()
	return descendants(p, func(name string) []*bean.Pointer { return st.children[name] }, st.names)
}

// trackers are what the local state reads: the file and the registered
// extensions.
func (m *XMLModel) trackers(st *xmlState) []*tracker.Tracker {
	tr := m.mc.Project.Trackers()
	out := []*tracker.Tracker{tr.CustomBeanParser}
	if st != nil && st.file != nil {
		out = append(out, st.file.Tracker())
	}
	return out
}

func (m *XMLModel) computeLocal(d *tracker.Deps) (*xmlState, error) {
	d.Add(m.trackers(nil)...)
	st := &xmlState{children: make(map[string][]*bean.Pointer)}
	f, ok := m.mc.Project.XMLFile(m.path)
	if !ok || !f.Valid() || !f.IsBeansFile() {
		st.names = bean.NewNameMapper(nil, nil)
		return st, nil
	}
	st.file = f
	d.Add(f.Tracker())

	r := &xmlReader{m: m, file: f, st: st, generated: make(map[string]int)}
	r.readBeans(f.Root, nil)
	r.finish()

	m.mc.Logger.Debug("computed xml model", "model", m.String(), "beans", len(st.beans))
	return st, nil
}

func (m *XMLModel) computeDeps(d *tracker.Deps) ([]Dependency, error) {
	tr := m.mc.Project.Trackers()
	d.Add(tr.Outer, tr.Classes, tr.Resources, tr.CustomBeanParser)
	st := m.state()
	if st.file == nil || m.mc.Disposed(m.module) {
		return nil, nil
	}
	d.Add(st.file.Tracker())

	var deps depSet
	for _, imp := range st.imports {
		for _, target := range m.mc.Project.ResolveResource(st.file, imp.location) {
			d.Add(target.Tracker())
			deps.add(m.mc.XMLModel(target.Path, m.module, m.profiles), Edge{Label: imp.location, Type: Import, Source: imp.source})
		}
	}
	for _, spec := range st.scans {
		addScan(m.mc, &deps, spec, m.module, m.profiles, "")
	}
	for _, ext := range m.mc.Extensions() {
		for _, dep := range ext.Dependencies(m.mc, m) {
			if target, ok := m.mc.Get(dep.Model); ok {
				dep.Edge.Type = Custom
				deps.add(target, dep.Edge)
			}
		}
	}
	return deps.out, nil
}

// addScan adds the edge to the scan model of spec and one edge per scanned
// configuration class, except self.
func addScan(mc *Context, deps *depSet, spec ScanSpec, module string, profiles bean.ProfileSet, self string) {
	sm := mc.ScanModel(spec, module, profiles)
	edge := Edge{Label: strings.Join(spec.BasePackages, ","), Type: ComponentScan, Source: spec.Source}
	deps.add(sm, edge)
	for _, cls := range sm.ConfigClasses() {
		if cls.FQN == self {
			continue
		}
		if cm, ok := mc.ClassModel(cls.FQN, module, profiles); ok {
			deps.add(cm, edge)
		}
	}
}

// xmlSource adapts an XMLModel to the lookup processor.
type xmlSource struct{ m *XMLModel }

func (s xmlSource) LocalBeans() []*bean.Pointer  { return s.m.LocalBeans() }
func (s xmlSource) NameMapper() *bean.NameMapper { return s.m.Names() }

// Trackers adds what lookups read beyond the file: the class index for type
// queries and the imported files for parent resolution.
func (s xmlSource) Trackers() []*tracker.Tracker {
	tr := s.m.mc.Project.Trackers()
	out := append(s.m.trackers(s.m.state()), tr.Outer, tr.Classes, tr.Resources)
	for _, target := range s.m.imported() {
		if x, ok := target.(*XMLModel); ok {
			out = append(out, x.trackers(x.state())...)
		}
	}
	return out
}

// ResolveParent looks in this file first, then in the files it imports.
func (s xmlSource) ResolveParent(name string) (*bean.Pointer, bool) {
	if p, ok := s.m.Names().Resolve(name); ok {
		return p, true
	}
	for _, target := range s.m.imported() {
		if local, ok := target.(Local); ok {
			if p, ok := local.Names().Resolve(name); ok {
				return p, true
			}
		}
	}
	return nil, false
}

// imported returns the models reached through import edges, nearest first.
func (m *XMLModel) imported() []Model {
	var out []Model
	seen := map[ID]struct{}{m.id: {}}
	queue := append([]Dependency(nil), m.Dependencies()...)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if dep.Edge.Type != Import {
			continue
		}
		if _, ok := seen[dep.Model]; ok {
			continue
		}
		seen[dep.Model] = struct{}{}
		target, ok := m.mc.Get(dep.Model)
		if !ok {
			continue
		}
		out = append(out, target)
		queue = append(queue, target.Dependencies()...)
	}
	return out
}
