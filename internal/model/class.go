package model

import (
	"fmt"
	"slices"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

type classState struct {
	class *source.Class
	// active is false when the class-level profile excludes the class.
	active bool
	beans  []*bean.Pointer
	names  *bean.NameMapper
}

// ClassModel is the local model of one configuration class: the class bean
// itself and its bean methods.
type ClassModel struct {
	base
	fqn   string
	local *tracker.Value[*classState]
	deps  *tracker.Value[[]Dependency]
	proc  *lookup.Processor
}

func newClassModel(mc *Context, id ID, fqn, module string, profiles bean.ProfileSet) *ClassModel {
	m := &ClassModel{
		base: base{id: id, mc: mc, module: module, profiles: profiles},
		fqn:  fqn,
	}
	m.local = tracker.NewValue(m.computeLocal)
	m.deps = tracker.NewValue(m.computeDeps)
	m.proc = lookup.NewProcessor(classSource{m}, mc.Project, mc.inheritorCache(module), mc.CacheSize)
	return m
}

func (m *ClassModel) Kind() Kind                   { return ClassKind }
func (m *ClassModel) FQN() string                  { return m.fqn }
func (m *ClassModel) Processor() *lookup.Processor { return m.proc }

func (m *ClassModel) String() string {
	if k := m.profiles.Key(); k != "" {
		return fmt.Sprintf("class:%s[%s]", m.fqn, k)
	}
	return "class:" + m.fqn
}

func (m *ClassModel) state() *classState {
	return m.local.MustGet()
}

// Unit returns the class while its file exists.
func (m *ClassModel) Unit() (source.Unit, bool) {
	st := m.state()
	if st.class == nil || !st.class.Valid() {
		return nil, false
	}
	return st.class, true
}

// LocalBeans returns the class bean followed by its bean methods.
func (m *ClassModel) LocalBeans() []*bean.Pointer {
	return m.state().beans
}

// Names returns the alias mapper over the local beans.
func (m *ClassModel) Names() *bean.NameMapper {
	return m.state().names
}

// Dependencies returns imports, resource imports, component scans, nested
// configuration classes, the configuration superclass and extension edges.
func (m *ClassModel) Dependencies() []Dependency {
	return m.deps.MustGet()
}

func (m *ClassModel) trackers() []*tracker.Tracker {
	tr := m.mc.Project.Trackers()
	return []*tracker.Tracker{tr.Classes, tr.CustomBeanParser}
}

func (m *ClassModel) computeLocal(d *tracker.Deps) (*classState, error) {
	d.Add(m.trackers()...)
	st := &classState{}
	cls, ok := m.mc.Project.Class(m.fqn)
	if !ok || !cls.Valid() {
		st.names = bean.NewNameMapper(nil, nil)
		return st, nil
	}
	st.class = cls
	d.Add(cls.Tracker())

	profiles := classProfiles(cls.Annotations)
	if m.profiles.Filtering() && !profiles.Matches(m.profiles) {
		st.names = bean.NewNameMapper(nil, nil)
		return st, nil
	}
	st.active = true

	var descs []*bean.Descriptor
	var owner string
	if stereotype, ok := m.mc.findMeta(cls, componentAnnotations); ok && cls.Candidate() {
		cd := classDescriptor(m.mc, cls, stereotype, profiles)
		owner = cd.Name
		descs = append(descs, cd)
	}
	for _, method := range cls.Methods {
		if md, ok := m.methodDescriptor(cls, method, owner, profiles); ok {
			descs = append(descs, md)
		}
	}
	for _, ext := range m.mc.Extensions() {
		for _, ed := range ext.ClassBeans(cls) {
			ed.Kind = bean.Custom
			ed.Profiles = profiles.And(ed.Profiles)
			if ed.Source.File == "" {
				ed.Source = cls.Location()
			}
			descs = append(descs, ed)
		}
	}

	for _, desc := range descs {
		st.beans = append(st.beans, bean.New(desc, cls))
	}
	st.names = bean.NewNameMapper(st.beans, nil)
	m.mc.Logger.Debug("computed class model", "model", m.String(), "beans", len(st.beans))
	return st, nil
}

// classDescriptor describes a stereotype class as a bean.
func classDescriptor(mc *Context, cls *source.Class, stereotype source.Annotation, profiles bean.Profiles) *bean.Descriptor {
	d := &bean.Descriptor{
		Name:         componentName(cls, stereotype),
		DeclaredType: cls.FQN,
		Profiles:     profiles,
		Source:       cls.Location(),
		Kind:         bean.Component,
	}
	if _, ok := cls.FindAnnotation("Primary"); ok {
		d.Primary = true
	}
	if obj, ok := mc.Project.FactoryObjectType(cls.FQN); ok {
		d.EffectiveTypes = []string{obj}
	}
	return d
}

// methodDescriptor describes a bean method. The first name of the name (or
// value) attribute is the bean name and the rest are aliases; without names
// the method name is used.
func (m *ClassModel) methodDescriptor(cls *source.Class, method source.Method, owner string, scope bean.Profiles) (*bean.Descriptor, bool) {
	ann, ok := findAnnotation(method.Annotations, beanMethodAnnotations)
	if !ok {
		return nil, false
	}
	own := classProfiles(method.Annotations)
	if m.profiles.Filtering() && !own.Matches(m.profiles) {
		return nil, false
	}

	var names []string
	if v, ok := ann.Attr("name"); ok {
		names = stringList(v)
	}
	if v, ok := ann.Attr("value"); ok && len(names) == 0 {
		names = stringList(v)
	}
	if len(names) == 0 {
		names = []string{method.Name}
	}

	types := m.mc.Project
	produced := types.ResolveTypeName(cls, method.ReturnType)
	d := &bean.Descriptor{
		Name:          names[0],
		Aliases:       names[1:],
		DeclaredType:  produced,
		FactoryBean:   owner,
		FactoryMethod: method.Name,
		Profiles:      scope.And(own),
		Source:        source.Location{File: cls.File, Line: method.Line, Element: cls.FQN + "#" + method.Name},
		Kind:          bean.FactoryMethod,
	}
	if _, ok := findAnnotation(method.Annotations, primaryAnnotations); ok {
		d.Primary = true
	}
	if obj, ok := factoryProduct(types, cls, method, produced); ok {
		d.EffectiveTypes = []string{obj}
	}
	return d, true
}

func (m *ClassModel) computeDeps(d *tracker.Deps) ([]Dependency, error) {
	tr := m.mc.Project.Trackers()
	d.Add(tr.Outer, tr.Classes, tr.Resources, tr.CustomBeanParser)
	st := m.state()
	if st.class == nil || !st.active || m.mc.Disposed(m.module) {
		return nil, nil
	}
	cls := st.class
	d.Add(cls.Tracker())
	types := m.mc.Project

	var deps depSet
	if a, ok := findAnnotation(cls.Annotations, importAnnotations); ok {
		v, _ := a.Attr("value")
		for _, name := range v.Classes {
			fqn := types.ResolveTypeName(cls, name)
			if _, known := types.Class(fqn); !known {
				continue
			}
			if cm, ok := m.mc.ClassModel(fqn, m.module, m.profiles); ok {
				deps.add(cm, Edge{Label: fqn, Type: Import, Source: annotationLocation(cls, a)})
			}
		}
	}
	if a, ok := findAnnotation(cls.Annotations, resourceAnnotations); ok {
		locations, _ := a.Attr("locations")
		value, _ := a.Attr("value")
		for _, loc := range stringList(locations, value) {
			for _, f := range types.ResolveResourceIn(m.module, loc) {
				d.Add(f.Tracker())
				deps.add(m.mc.XMLModel(f.Path, m.module, m.profiles), Edge{Label: loc, Type: Import, Source: annotationLocation(cls, a)})
			}
		}
	}
	for _, spec := range m.scanSpecs(cls) {
		addScan(m.mc, &deps, spec, m.module, m.profiles, cls.FQN)
	}
	for _, nested := range cls.Nested {
		if nested.Static && m.mc.isConfigLike(nested) {
			if cm, ok := m.mc.ClassModel(nested.FQN, m.module, m.profiles); ok {
				deps.add(cm, Edge{Label: nested.FQN, Type: Import, Source: nested.Location()})
			}
		}
	}
	if cls.Superclass != "" {
		super := types.ResolveTypeName(cls, cls.Superclass)
		if sc, ok := types.Class(super); ok && m.mc.isConfigLike(sc) {
			if cm, ok := m.mc.ClassModel(super, m.module, m.profiles); ok {
				deps.add(cm, Edge{Label: super, Type: Inheritance, Source: cls.Location()})
			}
		}
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

// scanSpecs collects @ComponentScan, repeated through @ComponentScans, and
// the implicit scan of application classes.
func (m *ClassModel) scanSpecs(cls *source.Class) []ScanSpec {
	var anns []source.Annotation
	for _, a := range cls.Annotations {
		switch {
		case scanAnnotations.has(a.SimpleName()):
			anns = append(anns, a)
		case scansAnnotations.has(a.SimpleName()):
			v, _ := a.Attr("value")
			anns = append(anns, v.Nested...)
		}
	}
	var specs []ScanSpec
	for _, a := range anns {
		specs = append(specs, m.scanSpec(cls, a))
	}
	if len(specs) == 0 {
		if app, ok := m.mc.findMeta(cls, applicationAnnotations); ok {
			specs = append(specs, ScanSpec{
				BasePackages:      []string{cls.Package},
				UseDefaultFilters: true,
				Source:            scanLocation(cls, app),
			})
		}
	}
	return specs
}

func (m *ClassModel) scanSpec(cls *source.Class, a source.Annotation) ScanSpec {
	types := m.mc.Project
	value, _ := a.Attr("value")
	basePackages, _ := a.Attr("basePackages")
	spec := ScanSpec{
		BasePackages:      stringList(value, basePackages),
		UseDefaultFilters: true,
		Source:            scanLocation(cls, a),
	}
	if v, ok := a.Attr("basePackageClasses"); ok {
		for _, name := range v.Classes {
			spec.BasePackages = append(spec.BasePackages, source.PackageOf(types.ResolveTypeName(cls, name)))
		}
	}
	if len(spec.BasePackages) == 0 {
		spec.BasePackages = []string{cls.Package}
	}
	if v, ok := a.Attr("useDefaultFilters"); ok && len(v.Bools) > 0 {
		spec.UseDefaultFilters = v.Bools[0]
	}
	if v, ok := a.Attr("includeFilters"); ok {
		spec.Include = m.filters(cls, v.Nested)
	}
	if v, ok := a.Attr("excludeFilters"); ok {
		spec.Exclude = m.filters(cls, v.Nested)
	}
	return spec
}

// filters decodes @Filter annotations. Class arguments are resolved to
// qualified names; pattern arguments are kept as written.
func (m *ClassModel) filters(cls *source.Class, anns []source.Annotation) []Filter {
	var out []Filter
	for _, f := range anns {
		typ := AnnotationFilter
		if v, ok := f.Attr("type"); ok {
			typ = normalizeFilterType(v.Raw)
		}
		classes, _ := f.Attr("classes")
		value, _ := f.Attr("value")
		for _, name := range slices.Concat(classes.Classes, value.Classes) {
			out = append(out, Filter{Type: typ, Expression: m.mc.Project.ResolveTypeName(cls, name)})
		}
		if v, ok := f.Attr("pattern"); ok {
			for _, p := range v.Strings {
				out = append(out, Filter{Type: typ, Expression: p})
			}
		}
	}
	return out
}

// annotationLocation points at a, or at the class when a has no position.
func annotationLocation(cls *source.Class, a source.Annotation) source.Location {
	if a.Line > 0 {
		return source.Location{File: cls.File, Line: a.Line, Element: "@" + a.SimpleName()}
	}
	return cls.Location()
}

// scanLocation identifies a scan by its annotation, falling back to the
// package and then to the class.
func scanLocation(cls *source.Class, a source.Annotation) source.Location {
	if a.Line > 0 {
		return source.Location{File: cls.File, Line: a.Line, Element: "@" + a.SimpleName()}
	}
	if cls.Package != "" {
		return source.Location{File: cls.File, Element: "package " + cls.Package}
	}
	return cls.Location()
}

// classSource adapts a ClassModel to the lookup processor.
type classSource struct{ m *ClassModel }

func (s classSource) LocalBeans() []*bean.Pointer  { return s.m.LocalBeans() }
func (s classSource) NameMapper() *bean.NameMapper { return s.m.Names() }

func (s classSource) Trackers() []*tracker.Tracker {
	out := s.m.trackers()
	if st := s.m.state(); st.class != nil {
		out = append(out, st.class.Tracker())
	}
	return out
}

func (s classSource) ResolveParent(name string) (*bean.Pointer, bool) {
	return s.m.Names().Resolve(name)
}
