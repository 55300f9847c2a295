// Package source defines the read-only view of configuration sources that the
// bean model engine consumes: XML bean files, annotated classes, modules and
// file sets.
package source

import (
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// Location points at the element that declared something.
type Location struct {
	File    string
	Line    int
	Element string
}

// Unit is one configuration unit: an XML file or a top-level class.
type Unit interface {
	UnitID() string
	ModuleName() string
	Valid() bool
	Tracker() *tracker.Tracker
}

// Element is one XML element. Namespace prefixes are kept in Prefix and the
// local part in Name, so <context:component-scan> has Name "component-scan".
type Element struct {
	Prefix   string
	Name     string
	Attrs    []Attr
	Children []*Element
	Text     string
	Line     int
}

// Attr is a single XML attribute.
type Attr struct {
	Name  string
	Value string
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent or blank.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Tag returns the qualified tag name as written in the file.
func (e *Element) Tag() string {
	if e.Prefix == "" {
		return e.Name
	}
	return e.Prefix + ":" + e.Name
}

// XMLFile is a parsed XML bean configuration file.
type XMLFile struct {
	Path   string
	Module string
	Root   *Element

	tracker *tracker.Tracker
	valid   func() bool
}

// NewXMLFile binds a parsed file to its modification tracker and validity check.
func NewXMLFile(path, module string, root *Element, t *tracker.Tracker, valid func() bool) *XMLFile {
	return &XMLFile{Path: path, Module: module, Root: root, tracker: t, valid: valid}
}

func (f *XMLFile) UnitID() string            { return f.Path }
func (f *XMLFile) ModuleName() string        { return f.Module }
func (f *XMLFile) Tracker() *tracker.Tracker { return f.tracker }

func (f *XMLFile) Valid() bool {
	return f != nil && f.Root != nil && (f.valid == nil || f.valid())
}

// IsBeansFile reports whether the root element is a <beans> element.
func (f *XMLFile) IsBeansFile() bool {
	return f.Root != nil && f.Root.Name == "beans"
}

// Location returns the location of e inside f.
func (f *XMLFile) Location(e *Element) Location {
	return Location{File: f.Path, Line: e.Line, Element: e.Tag()}
}
