package source

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// Value is a decoded annotation argument. Strings holds string literals (a
// single literal becomes a one-element slice), Classes holds class literals
// as written in source, Nested holds nested annotations.
type Value struct {
	Strings []string
	Classes []string
	Bools   []bool
	Nested  []Annotation
	Raw     string
}

// Annotation is a single annotation usage.
type Annotation struct {
	Name  string
	Attrs map[string]Value
	Line  int
}

// SimpleName returns the annotation name without its package qualifier.
func (a Annotation) SimpleName() string {
	return SimpleName(a.Name)
}

// Attr returns the named argument. The single unnamed argument is "value".
func (a Annotation) Attr(name string) (Value, bool) {
	v, ok := a.Attrs[name]
	return v, ok
}

// Method is a method declaration.
type Method struct {
	Name        string
	ReturnType  string
	ReturnArgs  []string
	Annotations []Annotation
	Static      bool
	Private     bool
	Line        int
}

// Class is a parsed type declaration.
type Class struct {
	FQN     string
	Package string
	Name    string
	File    string
	Module  string
	Line    int

	Annotations []Annotation
	Superclass  string
	SuperArgs   []string
	Interfaces  []string
	// InterfaceArgs holds the type arguments per entry of Interfaces.
	InterfaceArgs [][]string
	Methods       []Method
	Nested        []*Class
	Outer         string
	Imports       []string

	Abstract   bool
	Interface  bool
	Annotation bool
	Private    bool
	Static     bool

	tracker *tracker.Tracker
	valid   func() bool
}

// Bind attaches the modification tracker and validity check of the file that
// declares c, recursively for nested classes.
func (c *Class) Bind(t *tracker.Tracker, valid func() bool) {
	c.tracker = t
	c.valid = valid
	for _, n := range c.Nested {
		n.Bind(t, valid)
	}
}

func (c *Class) UnitID() string            { return c.FQN }
func (c *Class) ModuleName() string        { return c.Module }
func (c *Class) Tracker() *tracker.Tracker { return c.tracker }

func (c *Class) Valid() bool {
	return c != nil && c.FQN != "" && (c.valid == nil || c.valid())
}

// FindAnnotation returns the first annotation whose simple name is one of names.
func (c *Class) FindAnnotation(names ...string) (Annotation, bool) {
	return FindAnnotation(c.Annotations, names...)
}

// Location returns the declaration site of c.
func (c *Class) Location() Location {
	return Location{File: c.File, Line: c.Line, Element: c.FQN}
}

// Candidate reports whether c can be instantiated as a bean class:
// concrete, not private and with a qualified name.
func (c *Class) Candidate() bool {
	return c.FQN != "" && !c.Abstract && !c.Interface && !c.Annotation && !c.Private
}

// Shape renders what other files can observe of c: names, modifiers,
// supertypes, annotations and method signatures, nested classes included.
// Line numbers are left out.
func (c *Class) Shape() string {
	var b strings.Builder
	c.writeShape(&b)
	return b.String()
}

func (c *Class) writeShape(b *strings.Builder) {
	fmt.Fprintf(b, "%s %s %s%v %v%v %s %v abstract=%t interface=%t annotation=%t private=%t static=%t\n",
		c.FQN, c.Module, c.Superclass, c.SuperArgs, c.Interfaces, c.InterfaceArgs, c.Outer, c.Imports,
		c.Abstract, c.Interface, c.Annotation, c.Private, c.Static)
	writeAnnotations(b, c.Annotations)
	for _, m := range c.Methods {
		fmt.Fprintf(b, "%s %s%v static=%t private=%t\n", m.Name, m.ReturnType, m.ReturnArgs, m.Static, m.Private)
		writeAnnotations(b, m.Annotations)
	}
	for _, n := range c.Nested {
		n.writeShape(b)
	}
}

func writeAnnotations(b *strings.Builder, anns []Annotation) {
	for _, a := range anns {
		b.WriteString("@" + a.Name + "(")
		for _, k := range slices.Sorted(maps.Keys(a.Attrs)) {
			v := a.Attrs[k]
			fmt.Fprintf(b, "%s=%q%q%v%q", k, v.Strings, v.Classes, v.Bools, v.Raw)
			writeAnnotations(b, v.Nested)
			b.WriteByte(';')
		}
		b.WriteString(")\n")
	}
}

// FindAnnotation returns the first annotation in anns whose simple name is one
// of names.
func FindAnnotation(anns []Annotation, names ...string) (Annotation, bool) {
	for _, a := range anns {
		sn := a.SimpleName()
		for _, n := range names {
			if sn == n {
				return a, true
			}
		}
	}
	return Annotation{}, false
}

// SimpleName strips package qualifiers and generic arguments.
func SimpleName(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// PackageOf returns the package part of a qualified name.
func PackageOf(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}

// InPackage reports whether fqn lies in pkg or one of its sub-packages.
// The empty package contains everything.
func InPackage(fqn, pkg string) bool {
	if pkg == "" {
		return true
	}
	return strings.HasPrefix(fqn, pkg+".")
}

// Decapitalize turns a simple class name into a default bean name following
// the JavaBeans rule: "FooBar" -> "fooBar", "URLService" stays unchanged.
func Decapitalize(name string) string {
	if name == "" {
		return name
	}
	if len(name) > 1 && isUpper(name[0]) && isUpper(name[1]) {
		return name
	}
	if !isUpper(name[0]) {
		return name
	}
	return string(name[0]+('a'-'A')) + name[1:]
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
