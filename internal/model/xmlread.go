package model

import (
	"strconv"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// beansPrefixes are the prefixes the beans namespace is commonly bound to.
var beansPrefixes = newNameSet("", "beans")

type xmlReader struct {
	m         *XMLModel
	file      *source.XMLFile
	st        *xmlState
	descs     []*bean.Descriptor
	aliases   []bean.AliasDecl
	generated map[string]int
}

// readBeans reads one <beans> element. A nested block whose profile is not
// active is skipped when the model filters profiles; otherwise its profile is
// attached to the beans it declares.
func (r *xmlReader) readBeans(el *source.Element, scope bean.Profiles) {
	if own := bean.ParseProfiles(el.AttrOr("profile", "")); len(own) > 0 {
		if r.m.profiles.Filtering() && !own.Matches(r.m.profiles) {
			return
		}
		scope = scope.And(own)
	}

	for _, child := range el.Children {
		switch {
		case child.Name == "bean" && beansPrefixes.has(child.Prefix):
			r.readBean(child, scope)
		case child.Name == "alias" && beansPrefixes.has(child.Prefix):
			r.aliases = append(r.aliases, bean.AliasDecl{
				Alias:  child.AttrOr("alias", ""),
				Target: child.AttrOr("name", ""),
				Source: r.file.Location(child),
			})
		case child.Name == "import" && beansPrefixes.has(child.Prefix):
			if loc := child.AttrOr("resource", ""); loc != "" {
				r.st.imports = append(r.st.imports, importRef{location: loc, source: r.file.Location(child)})
			}
		case child.Name == "beans" && beansPrefixes.has(child.Prefix):
			r.readBeans(child, scope)
		case child.Name == "description" && beansPrefixes.has(child.Prefix):
		case child.Name == "component-scan":
			r.readScan(child)
		case child.Name == "property-placeholder":
			r.readPlaceholder(child, scope)
		case child.Name == "annotation-config":
		default:
			for _, ext := range r.m.mc.Extensions() {
				for _, d := range ext.XMLBeans(r.file, child) {
					d.Kind = bean.Custom
					d.Profiles = scope.And(d.Profiles)
					if d.Source.File == "" {
						d.Source = r.file.Location(child)
					}
					r.descs = append(r.descs, d)
				}
			}
		}
	}
}

func (r *xmlReader) readBean(el *source.Element, scope bean.Profiles) {
	d := &bean.Descriptor{
		Kind:          bean.XMLBean,
		Profiles:      scope,
		Source:        r.file.Location(el),
		DeclaredType:  el.AttrOr("class", ""),
		ParentName:    el.AttrOr("parent", ""),
		FactoryBean:   el.AttrOr("factory-bean", ""),
		FactoryMethod: el.AttrOr("factory-method", ""),
		Abstract:      el.AttrOr("abstract", "") == "true",
		Primary:       el.AttrOr("primary", "") == "true",
	}
	id := el.AttrOr("id", "")
	names := splitList(el.AttrOr("name", ""))
	if id == "" && len(names) > 0 {
		id, names = names[0], names[1:]
	}
	d.Name = id
	for _, n := range names {
		if n != id {
			d.Aliases = append(d.Aliases, n)
		}
	}
	if d.Name == "" {
		r.generateName(d)
	}
	r.descs = append(r.descs, d)
}

// generateName names an anonymous top-level bean "<class>#<n>". The first
// such bean of a class is also reachable by the bare class name.
func (r *xmlReader) generateName(d *bean.Descriptor) {
	base := d.DeclaredType
	if base == "" && d.ParentName != "" {
		base = d.ParentName + "$child"
	}
	if base == "" && d.FactoryBean != "" {
		base = d.FactoryBean + "$created"
	}
	if base == "" {
		return
	}
	n := r.generated[base]
	r.generated[base] = n + 1
	d.Name = base + "#" + strconv.Itoa(n)
	if n == 0 {
		d.Aliases = append(d.Aliases, base)
	}
}

func (r *xmlReader) readScan(el *source.Element) {
	spec := ScanSpec{
		BasePackages:      splitList(el.AttrOr("base-package", "")),
		UseDefaultFilters: el.AttrOr("use-default-filters", "true") != "false",
		Source:            r.file.Location(el),
	}
	for _, child := range el.Children {
		f := Filter{
			Type:       FilterType(strings.ToLower(child.AttrOr("type", string(AnnotationFilter)))),
			Expression: child.AttrOr("expression", ""),
		}
		switch child.Name {
		case "include-filter":
			spec.Include = append(spec.Include, f)
		case "exclude-filter":
			spec.Exclude = append(spec.Exclude, f)
		}
	}
	if len(spec.BasePackages) > 0 {
		r.st.scans = append(r.st.scans, spec)
	}
}

func (r *xmlReader) readPlaceholder(el *source.Element, scope bean.Profiles) {
	d := &bean.Descriptor{
		Kind:         bean.Placeholder,
		DeclaredType: placeholderConfigurer,
		Profiles:     scope,
		Source:       r.file.Location(el),
	}
	r.generateName(d)
	r.descs = append(r.descs, d)
}

// finish computes effective types, freezes the descriptors and builds the
// name and inheritance indexes.
func (r *xmlReader) finish() {
	byName := make(map[string]*bean.Descriptor, len(r.descs))
	for _, d := range r.descs {
		if d.Name != "" {
			if _, dup := byName[d.Name]; !dup {
				byName[d.Name] = d
			}
		}
		for _, a := range d.Aliases {
			if _, dup := byName[a]; !dup {
				byName[a] = d
			}
		}
	}
	for _, d := range r.descs {
		d.EffectiveTypes = r.effectiveTypes(d, byName)
	}

	for _, d := range r.descs {
		p := bean.New(d, r.file)
		r.st.beans = append(r.st.beans, p)
		if d.Kind == bean.Placeholder {
			r.st.placeholders = append(r.st.placeholders, p)
		}
		if d.ParentName != "" {
			r.st.children[d.ParentName] = append(r.st.children[d.ParentName], p)
		}
	}
	r.st.names = bean.NewNameMapper(r.st.beans, r.aliases)
}

// effectiveTypes unwraps factory indirection: a FactoryBean class produces
// its object type and a factory method produces its return type.
func (r *xmlReader) effectiveTypes(d *bean.Descriptor, byName map[string]*bean.Descriptor) []string {
	types := r.m.mc.Project
	if d.FactoryMethod != "" {
		owner := d.DeclaredType
		if d.FactoryBean != "" {
			fb, ok := byName[d.FactoryBean]
			if !ok {
				return nil
			}
			owner = fb.DeclaredType
		}
		cls, ok := types.Class(owner)
		if !ok {
			return nil
		}
		for _, method := range cls.Methods {
			if method.Name != d.FactoryMethod {
				continue
			}
			produced := types.ResolveTypeName(cls, method.ReturnType)
			if obj, ok := factoryProduct(types, cls, method, produced); ok {
				return []string{obj}
			}
			return []string{produced}
		}
		return nil
	}
	if d.DeclaredType != "" {
		if obj, ok := types.FactoryObjectType(d.DeclaredType); ok {
			return []string{obj}
		}
	}
	return nil
}

// factoryProduct returns the object type when a factory method itself
// returns a FactoryBean.
func factoryProduct(types source.TypeSystem, owner *source.Class, m source.Method, produced string) (string, bool) {
	if _, base := factoryBaseNames[source.SimpleName(m.ReturnType)]; base && len(m.ReturnArgs) > 0 {
		return types.ResolveTypeName(owner, m.ReturnArgs[0]), true
	}
	return types.FactoryObjectType(produced)
}

var factoryBaseNames = newNameSet("FactoryBean", "SmartFactoryBean", "AbstractFactoryBean")
