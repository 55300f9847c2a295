package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// FilterType selects how a scan filter expression is interpreted.
type FilterType string

const (
	AnnotationFilter FilterType = "annotation"
	AssignableFilter FilterType = "assignable"
	RegexFilter      FilterType = "regex"
	AspectJFilter    FilterType = "aspectj"
	CustomFilter     FilterType = "custom"
)

// normalizeFilterType maps both the XML spelling ("assignable") and the
// annotation constant ("FilterType.ASSIGNABLE_TYPE") to a FilterType.
func normalizeFilterType(raw string) FilterType {
	raw = strings.ToLower(source.SimpleName(strings.TrimSpace(raw)))
	switch {
	case strings.HasPrefix(raw, "assignable"):
		return AssignableFilter
	case strings.HasPrefix(raw, "regex"):
		return RegexFilter
	case strings.HasPrefix(raw, "aspectj"):
		return AspectJFilter
	case strings.HasPrefix(raw, "custom"):
		return CustomFilter
	default:
		return AnnotationFilter
	}
}

// Filter is one include or exclude rule of a scan.
type Filter struct {
	Type       FilterType
	Expression string
}

func (f Filter) String() string {
	return string(f.Type) + "=" + f.Expression
}

// ScanSpec is the definition of a component scan.
type ScanSpec struct {
	BasePackages      []string
	UseDefaultFilters bool
	Include           []Filter
	Exclude           []Filter
	// Source is the element that declared the scan. It is not part of the
	// scan identity.
	Source source.Location
}

// normalize trims, de-duplicates and sorts base packages. Placeholders are
// dropped and trailing wildcards cut, so "com.example.**" scans com.example.
func (s ScanSpec) normalize() ScanSpec {
	var pkgs []string
	for _, p := range s.BasePackages {
		p = strings.TrimSpace(p)
		if strings.Contains(p, "${") {
			continue
		}
		p = strings.TrimSuffix(strings.TrimSuffix(p, ".**"), ".*")
		if p == "*" || p == "**" {
			p = ""
		}
		pkgs = append(pkgs, p)
	}
	slices.Sort(pkgs)
	s.BasePackages = slices.Compact(pkgs)
	return s
}

func (s ScanSpec) key() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(s.BasePackages, ","))
	fmt.Fprintf(&sb, "|default=%t|inc=", s.UseDefaultFilters)
	for _, f := range s.Include {
		sb.WriteString(f.String() + ";")
	}
	sb.WriteString("|exc=")
	for _, f := range s.Exclude {
		sb.WriteString(f.String() + ";")
	}
	return sb.String()
}

type scanState struct {
	// classes are all matched classes, configuration classes included.
	classes []*source.Class
	config  []*source.Class
	beans   []*bean.Pointer
	names   *bean.NameMapper
}

// ScanModel holds the beans found by one component scan. Configuration-like
// classes are reported through ConfigClasses and get their own class model;
// the remaining stereotype classes are its local beans.
type ScanModel struct {
	base
	spec  ScanSpec
	local *tracker.Value[*scanState]
	proc  *lookup.Processor
}

func newScanModel(mc *Context, id ID, spec ScanSpec, module string, profiles bean.ProfileSet) *ScanModel {
	m := &ScanModel{
		base: base{id: id, mc: mc, module: module, profiles: profiles},
		spec: spec,
	}
	m.local = tracker.NewValue(m.computeLocal)
	m.proc = lookup.NewProcessor(scanSource{m}, mc.Project, mc.inheritorCache(module), mc.CacheSize)
	return m
}

func (m *ScanModel) Kind() Kind                   { return ScanKind }
func (m *ScanModel) Spec() ScanSpec               { return m.spec }
func (m *ScanModel) Processor() *lookup.Processor { return m.proc }
func (m *ScanModel) Dependencies() []Dependency   { return nil }

func (m *ScanModel) String() string {
	s := "scan:" + strings.Join(m.spec.BasePackages, ",")
	if k := m.profiles.Key(); k != "" {
		s += "[" + k + "]"
	}
	return s
}

func (m *ScanModel) state() *scanState {
	return m.local.MustGet()
}

// LocalBeans returns the scanned stereotype beans that are not configuration
// classes.
func (m *ScanModel) LocalBeans() []*bean.Pointer {
	return m.state().beans
}

// Names returns the alias mapper over the local beans.
func (m *ScanModel) Names() *bean.NameMapper {
	return m.state().names
}

// Classes returns every class the scan picked up, sorted by name.
func (m *ScanModel) Classes() []*source.Class {
	return m.state().classes
}

// ConfigClasses returns the picked up classes that get their own class model.
func (m *ScanModel) ConfigClasses() []*source.Class {
	return m.state().config
}

// trackers are the class index, the outer configuration and the files
// declaring the picked up classes.
func (m *ScanModel) trackers(st *scanState) []*tracker.Tracker {
	tr := m.mc.Project.Trackers()
	out := []*tracker.Tracker{tr.Classes, tr.Outer}
	if st != nil {
		for _, cls := range st.classes {
			out = append(out, cls.Tracker())
		}
	}
	return out
}

func (m *ScanModel) computeLocal(d *tracker.Deps) (*scanState, error) {
	d.Add(m.trackers(nil)...)
	st := &scanState{}
	if m.mc.Disposed(m.module) {
		st.names = bean.NewNameMapper(nil, nil)
		return st, nil
	}

	include := compileFilters(m.spec.Include)
	exclude := compileFilters(m.spec.Exclude)
	seen := make(map[string]struct{})
	for _, pkg := range m.spec.BasePackages {
		for _, cls := range m.mc.Project.ClassesUnder(m.module, pkg) {
			if _, dup := seen[cls.FQN]; dup {
				continue
			}
			seen[cls.FQN] = struct{}{}
			if !m.candidate(cls) {
				continue
			}
			stereotype, ok := m.mc.findMeta(cls, componentAnnotations)
			if !m.accepts(cls, ok, include, exclude) {
				continue
			}
			profiles := classProfiles(cls.Annotations)
			if m.profiles.Filtering() && !profiles.Matches(m.profiles) {
				continue
			}
			st.classes = append(st.classes, cls)
			d.Add(cls.Tracker())
			if m.mc.isConfigLike(cls) {
				st.config = append(st.config, cls)
				continue
			}
			desc := classDescriptor(m.mc, cls, stereotype, profiles)
			desc.Kind = bean.Scanned
			st.beans = append(st.beans, bean.New(desc, cls))
		}
	}
	slices.SortFunc(st.classes, func(a, b *source.Class) int { return strings.Compare(a.FQN, b.FQN) })
	st.names = bean.NewNameMapper(st.beans, nil)
	m.mc.Logger.Debug("computed scan model", "model", m.String(), "classes", len(st.classes))
	return st, nil
}

// candidate reports whether cls can be picked up at all: concrete and either
// top-level or static nested.
func (m *ScanModel) candidate(cls *source.Class) bool {
	if !cls.Candidate() {
		return false
	}
	return cls.Outer == "" || cls.Static
}

// accepts applies the filters. Exclusion wins; otherwise a class passes as a
// stereotype under default filters or by matching an include filter.
func (m *ScanModel) accepts(cls *source.Class, stereotype bool, include, exclude []matcher) bool {
	for _, f := range exclude {
		if f(m.mc, cls) {
			return false
		}
	}
	if m.spec.UseDefaultFilters && stereotype {
		return true
	}
	for _, f := range include {
		if f(m.mc, cls) {
			return true
		}
	}
	return false
}

type matcher func(mc *Context, cls *source.Class) bool

func compileFilters(filters []Filter) []matcher {
	var out []matcher
	for _, f := range filters {
		if m := compileFilter(f); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// compileFilter turns f into a matcher. Custom filters run user code and
// never match; malformed patterns are dropped.
func compileFilter(f Filter) matcher {
	expr := strings.TrimSpace(f.Expression)
	if expr == "" {
		return nil
	}
	switch f.Type {
	case AnnotationFilter:
		simple := source.SimpleName(expr)
		names := newNameSet(simple)
		return func(mc *Context, cls *source.Class) bool {
			a, ok := mc.findMeta(cls, names)
			if !ok || !strings.Contains(expr, ".") || a.SimpleName() != simple {
				return ok
			}
			// A directly present annotation must resolve to the qualified
			// expression when its package is known.
			fqn := mc.Project.ResolveTypeName(cls, a.Name)
			return fqn == expr || !strings.Contains(fqn, ".")
		}
	case AssignableFilter:
		return func(mc *Context, cls *source.Class) bool {
			return mc.Project.IsAssignable(cls.FQN, expr)
		}
	case RegexFilter:
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil
		}
		return func(_ *Context, cls *source.Class) bool { return re.MatchString(cls.FQN) }
	case AspectJFilter:
		return compileAspectJ(expr)
	}
	return nil
}

// compileAspectJ supports type patterns: "*" matches within one name
// segment, ".." matches any package depth and a trailing "+" includes
// subtypes.
func compileAspectJ(expr string) matcher {
	subtypes := strings.HasSuffix(expr, "+")
	expr = strings.TrimSuffix(expr, "+")
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(expr); i++ {
		switch {
		case strings.HasPrefix(expr[i:], ".."):
			sb.WriteString(`\.(?:.*\.)?`)
			i++
		case expr[i] == '*':
			sb.WriteString(`[^.]*`)
		default:
			sb.WriteString(regexp.QuoteMeta(expr[i : i+1]))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil
	}
	if !subtypes {
		return func(_ *Context, cls *source.Class) bool { return re.MatchString(cls.FQN) }
	}
	return func(mc *Context, cls *source.Class) bool {
		if re.MatchString(cls.FQN) {
			return true
		}
		for _, super := range mc.supertypesOf(cls) {
			if re.MatchString(super) {
				return true
			}
		}
		return false
	}
}

// supertypesOf lists the resolved direct and indirect supertypes of cls.
func (mc *Context) supertypesOf(cls *source.Class) []string {
	var out []string
	seen := map[string]struct{}{cls.FQN: {}}
	queue := []*source.Class{cls}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		names := append([]string{c.Superclass}, c.Interfaces...)
		for _, n := range names {
			if n == "" {
				continue
			}
			fqn := mc.Project.ResolveTypeName(c, n)
			if _, ok := seen[fqn]; ok {
				continue
			}
			seen[fqn] = struct{}{}
			out = append(out, fqn)
			if sc, ok := mc.Project.Class(fqn); ok {
				queue = append(queue, sc)
			}
		}
	}
	return out
}

type scanSource struct{ m *ScanModel }

func (s scanSource) LocalBeans() []*bean.Pointer  { return s.m.LocalBeans() }
func (s scanSource) NameMapper() *bean.NameMapper { return s.m.Names() }

func (s scanSource) Trackers() []*tracker.Tracker {
	return s.m.trackers(s.m.state())
}

func (s scanSource) ResolveParent(name string) (*bean.Pointer, bool) {
	return s.m.Names().Resolve(name)
}
