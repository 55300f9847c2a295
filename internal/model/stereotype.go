package model

import (
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// Annotation simple names shared by Infra and Spring.
var (
	applicationAnnotations = newNameSet("InfraApplication", "SpringBootApplication")

	configurationAnnotations = newNameSet(
		"Configuration", "InfraApplication", "SpringBootApplication",
		"InfraConfiguration", "SpringBootConfiguration", "TestConfiguration", "AutoConfiguration",
	)

	componentAnnotations = newNameSet(
		"Component", "Service", "Repository", "Controller", "RestController",
		"ControllerAdvice", "RestControllerAdvice", "Configuration",
		"InfraApplication", "SpringBootApplication", "InfraConfiguration",
		"SpringBootConfiguration", "TestConfiguration", "AutoConfiguration",
	)

	beanMethodAnnotations = newNameSet("Bean", "Component")
	importAnnotations     = newNameSet("Import")
	resourceAnnotations   = newNameSet("ImportResource")
	scanAnnotations       = newNameSet("ComponentScan")
	scansAnnotations      = newNameSet("ComponentScans")
	profileAnnotations    = newNameSet("Profile")
	primaryAnnotations    = newNameSet("Primary")
)

// findMeta returns the annotation on cls that is one of names or is
// meta-annotated, at any depth, with one of names. Annotation types are
// resolved through the project; cycles among them end the search.
func (mc *Context) findMeta(cls *source.Class, names nameSet) (source.Annotation, bool) {
	for _, a := range cls.Annotations {
		if names.has(a.SimpleName()) {
			return a, true
		}
	}
	seen := map[string]struct{}{cls.FQN: {}}
	for _, a := range cls.Annotations {
		if mc.metaAnnotated(cls, a, names, seen) {
			return a, true
		}
	}
	return source.Annotation{}, false
}

func (mc *Context) metaAnnotated(owner *source.Class, a source.Annotation, names nameSet, seen map[string]struct{}) bool {
	fqn := mc.Project.ResolveTypeName(owner, a.Name)
	if _, ok := seen[fqn]; ok {
		return false
	}
	seen[fqn] = struct{}{}
	ac, ok := mc.Project.Class(fqn)
	if !ok || !ac.Annotation {
		return false
	}
	for _, meta := range ac.Annotations {
		if names.has(meta.SimpleName()) || mc.metaAnnotated(ac, meta, names, seen) {
			return true
		}
	}
	return false
}

// IsConfiguration reports whether cls is a configuration class, directly or
// through a meta-annotation.
func (mc *Context) IsConfiguration(cls *source.Class) bool {
	_, ok := mc.findMeta(cls, configurationAnnotations)
	return ok
}

// IsApplication reports whether cls is an application entry class.
func (mc *Context) IsApplication(cls *source.Class) bool {
	_, ok := mc.findMeta(cls, applicationAnnotations)
	return ok
}

// isConfigLike reports whether cls contributes more than itself to a
// context: it is a configuration, declares bean methods or pulls in other
// units. Such classes get their own class model.
func (mc *Context) isConfigLike(cls *source.Class) bool {
	if !cls.Candidate() && !cls.Abstract {
		return false
	}
	if mc.IsConfiguration(cls) {
		return true
	}
	if _, ok := cls.FindAnnotation("Import", "ImportResource", "ComponentScan", "ComponentScans"); ok {
		return true
	}
	for _, m := range cls.Methods {
		if _, ok := findAnnotation(m.Annotations, beanMethodAnnotations); ok {
			return true
		}
	}
	return false
}

func findAnnotation(anns []source.Annotation, names nameSet) (source.Annotation, bool) {
	for _, a := range anns {
		if names.has(a.SimpleName()) {
			return a, true
		}
	}
	return source.Annotation{}, false
}

// classProfiles returns the @Profile expressions declared on anns.
func classProfiles(anns []source.Annotation) bean.Profiles {
	a, ok := findAnnotation(anns, profileAnnotations)
	if !ok {
		return nil
	}
	v, _ := a.Attr("value")
	return bean.Profiles(v.Strings)
}

// componentName is the bean name of a stereotype class: the annotation
// value when given, otherwise the decapitalized short class name.
func componentName(cls *source.Class, stereotype source.Annotation) string {
	if v, ok := stereotype.Attr("value"); ok && len(v.Strings) > 0 && v.Strings[0] != "" {
		return v.Strings[0]
	}
	short := strings.TrimPrefix(cls.FQN, cls.Package+".")
	if cls.Package == "" {
		short = cls.FQN
	}
	return source.Decapitalize(short)
}

// stringList flattens string attributes, splitting comma, semicolon and
// whitespace separated lists.
func stringList(values ...source.Value) []string {
	var out []string
	for _, v := range values {
		for _, s := range v.Strings {
			out = append(out, splitList(s)...)
		}
	}
	return out
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
