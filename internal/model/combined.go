package model

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

type fileSetState struct {
	set      source.FileSet
	found    bool
	profiles bean.ProfileSet
	deps     []Dependency
}

// FileSetModel is the root model of one configured file set. Its members are
// the local models of the listed files; its dependency file sets are resolved
// to sibling file set models, possibly in other modules. The definition is
// read from the project on demand, so edits to the file set show through.
type FileSetModel struct {
	id     ID
	mc     *Context
	module string
	setID  string
	state  *tracker.Value[*fileSetState]
}

func newFileSetModel(mc *Context, id ID, module, setID string) *FileSetModel {
	m := &FileSetModel{id: id, mc: mc, module: module, setID: setID}
	m.state = tracker.NewValue(m.compute)
	return m
}

func (m *FileSetModel) ID() ID                       { return m.id }
func (m *FileSetModel) Kind() Kind                   { return FileSetKind }
func (m *FileSetModel) Module() string               { return m.module }
func (m *FileSetModel) SetID() string                { return m.setID }
func (m *FileSetModel) LocalBeans() []*bean.Pointer  { return nil }
func (m *FileSetModel) Processor() *lookup.Processor { return nil }
func (m *FileSetModel) String() string               { return "fileset:" + m.module + "/" + m.setID }

// FileSet returns the current definition and whether it still exists.
func (m *FileSetModel) FileSet() (source.FileSet, bool) {
	st := m.state.MustGet()
	return st.set, st.found
}

func (m *FileSetModel) ActiveProfiles() (bean.ProfileSet, bool) {
	return m.state.MustGet().profiles, true
}

// Dependencies returns the member models followed by the dependency file
// sets. Removed or deleted file sets have none.
func (m *FileSetModel) Dependencies() []Dependency {
	return m.state.MustGet().deps
}

func (m *FileSetModel) compute(d *tracker.Deps) (*fileSetState, error) {
	tr := m.mc.Project.Trackers()
	d.Add(tr.Outer, tr.Profiles, tr.Classes, tr.Resources, tr.CustomBeanParser)
	st := &fileSetState{}
	if m.mc.Disposed(m.module) {
		return st, nil
	}
	for _, fs := range m.mc.Project.FileSets(m.module) {
		if fs.ID == m.setID {
			st.set, st.found = fs, true
			break
		}
	}
	if !st.found || st.set.Removed {
		return st, nil
	}
	st.profiles = bean.NewProfileSet(st.set.ActiveProfiles...)

	var deps depSet
	for _, file := range st.set.Files {
		for _, member := range m.mc.memberModels(m.module, file, st.profiles) {
			deps.add(member, Edge{Label: file, Type: Import, Source: source.Location{File: file}})
		}
	}
	for _, ref := range st.set.Dependencies {
		owner, ok := m.mc.fileSetOwner(m.module, ref)
		if !ok {
			m.mc.Logger.Debug("dependency file set not found", "fileset", m.setID, "dependency", ref)
			continue
		}
		deps.add(m.mc.FileSetModel(owner, ref), Edge{Label: "fileset:" + ref, Type: Import})
	}
	st.deps = deps.out
	return st, nil
}

// memberModels maps a file set entry to local models: XML paths and
// classpath locations to XML models, anything else to a class model.
func (mc *Context) memberModels(module, file string, profiles bean.ProfileSet) []Model {
	if strings.EqualFold(path.Ext(file), ".xml") || strings.Contains(file, ":") {
		if f, ok := mc.Project.XMLFile(file); ok {
			return []Model{mc.XMLModel(f.Path, module, profiles)}
		}
		var out []Model
		for _, f := range mc.Project.ResolveResourceIn(module, file) {
			out = append(out, mc.XMLModel(f.Path, module, profiles))
		}
		return out
	}
	if _, ok := mc.Project.Class(file); !ok {
		return nil
	}
	if cm, ok := mc.ClassModel(file, module, profiles); ok {
		return []Model{cm}
	}
	return nil
}

// fileSetOwner finds the module that declares the file set id: module itself
// first, then its dependencies in order.
func (mc *Context) fileSetOwner(module, id string) (string, bool) {
	candidates := []string{module}
	if mod, ok := mc.Project.Module(module); ok {
		candidates = append(candidates, mod.Dependencies()...)
	}
	for _, name := range candidates {
		for _, fs := range mc.Project.FileSets(name) {
			if fs.ID == id && !fs.Removed {
				return name, true
			}
		}
	}
	return "", false
}

// FileSetModel returns the model of file set id declared in module.
func (mc *Context) FileSetModel(module, id string) *FileSetModel {
	k := Key{Kind: FileSetKind, Unit: id, Module: module}
	return mc.arena.Intern(k, func(mid ID) Model {
		return newFileSetModel(mc, mid, module, id)
	}).(*FileSetModel)
}

// CombinedModel composes other models. It declares no beans; its related
// models are its members and its explicit dependencies.
type CombinedModel struct {
	id      ID
	module  string
	members []ID
	extra   []Dependency
}

func (m *CombinedModel) ID() ID                       { return m.id }
func (m *CombinedModel) Kind() Kind                   { return CombinedKind }
func (m *CombinedModel) Module() string               { return m.module }
func (m *CombinedModel) LocalBeans() []*bean.Pointer  { return nil }
func (m *CombinedModel) Processor() *lookup.Processor { return nil }

// ActiveProfiles is undefined for a composition of models.
func (m *CombinedModel) ActiveProfiles() (bean.ProfileSet, bool) {
	return bean.ProfileSet{}, false
}

// Members returns the composed model ids.
func (m *CombinedModel) Members() []ID {
	return append([]ID(nil), m.members...)
}

func (m *CombinedModel) String() string {
	return fmt.Sprintf("combined:%s(%d)", m.module, len(m.members))
}

// Dependencies returns the members, then the explicit dependencies.
func (m *CombinedModel) Dependencies() []Dependency {
	out := make([]Dependency, 0, len(m.members)+len(m.extra))
	for _, id := range m.members {
		out = append(out, Dependency{Model: id, Edge: Edge{Label: "member", Type: Import}})
	}
	return append(out, m.extra...)
}

// Combine returns the combined model of members in module. The same members
// and dependencies always yield the same model.
func (mc *Context) Combine(module string, members []Model, extra ...Dependency) *CombinedModel {
	ids := make([]ID, 0, len(members))
	var sb strings.Builder
	for _, m := range members {
		ids = append(ids, m.ID())
		sb.WriteString(strconv.Itoa(int(m.ID())) + ",")
	}
	for _, d := range extra {
		sb.WriteString("+" + strconv.Itoa(int(d.Model)) + ":" + string(d.Edge.Type) + ":" + d.Edge.Label + ",")
	}
	k := Key{Kind: CombinedKind, Unit: sb.String(), Module: module}
	return mc.arena.Intern(k, func(id ID) Model {
		return &CombinedModel{id: id, module: module, members: ids, extra: append([]Dependency(nil), extra...)}
	}).(*CombinedModel)
}
