// Package workspace holds the parsed sources of a project in memory and
// implements the project and type system views the model engine reads.
// Every mutation bumps the modification trackers of what it touched.
package workspace

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lang"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/parse"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// ErrModuleNotFound is returned for operations naming an unknown module.
var ErrModuleNotFound = errors.New("module not found")

// sourceRoots are stripped from workspace paths to obtain classpath paths.
var sourceRoots = []string{
	"src/main/resources/",
	"src/test/resources/",
	"src/main/java/",
	"src/test/java/",
	"src/main/webapp/WEB-INF/",
	"resources/",
}

type module struct {
	name     string
	root     string
	deps     []string
	disposed atomic.Bool
}

func (m *module) Name() string           { return m.name }
func (m *module) Dependencies() []string { return append([]string(nil), m.deps...) }
func (m *module) Disposed() bool         { return m.disposed.Load() }

// fileEntry is one generation of a source file. A new entry replaces it on
// update; the old one stops being valid.
type fileEntry struct {
	path    string
	module  string
	alive   atomic.Bool
	xml     *source.XMLFile
	classes []*source.Class
}

// Workspace is an in-memory project.
type Workspace struct {
	mu       sync.RWMutex
	trackers source.Trackers

	modules  map[string]*module
	order    []string
	files    map[string]*fileEntry
	fileT    map[string]*tracker.Tracker
	classes  map[string]*source.Class
	fileSets map[string][]source.FileSet
	auto     bool

	supers tracker.Map[string, []string]
}

// New creates an empty workspace with auto-configuration enabled.
func New() *Workspace {
	return &Workspace{
		trackers: source.Trackers{
			Outer:            tracker.New("outer"),
			Profiles:         tracker.New("profiles"),
			Structure:        tracker.New("structure"),
			Classes:          tracker.New("classes"),
			Resources:        tracker.New("resources"),
			CustomBeanParser: tracker.New("custom-bean-parser"),
		},
		modules:  make(map[string]*module),
		files:    make(map[string]*fileEntry),
		fileT:    make(map[string]*tracker.Tracker),
		classes:  make(map[string]*source.Class),
		fileSets: make(map[string][]source.FileSet),
		auto:     true,
	}
}

// Trackers returns the project-wide trackers.
func (w *Workspace) Trackers() source.Trackers {
	return w.trackers
}

// AddModule registers a module. root is the workspace-relative directory its
// files live under; deps name modules it depends on, nearest first.
func (w *Workspace) AddModule(name, root string, deps ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addModuleLocked(name, root, deps)
	w.trackers.Outer.Inc()
	w.trackers.Structure.Inc()
	w.trackers.Classes.Inc()
	w.trackers.Resources.Inc()
}

func (w *Workspace) addModuleLocked(name, root string, deps []string) *module {
	m, ok := w.modules[name]
	if !ok {
		m = &module{name: name}
		w.modules[name] = m
		w.order = append(w.order, name)
	}
	m.root = strings.Trim(path.Clean("/"+root), "/")
	m.deps = append([]string(nil), deps...)
	return m
}

// DisposeModule marks a module as torn down. Queries against it return
// nothing from then on.
func (w *Workspace) DisposeModule(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.modules[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrModuleNotFound)
	}
	m.disposed.Store(true)
	w.trackers.Outer.Inc()
	w.trackers.Structure.Inc()
	w.trackers.Classes.Inc()
	w.trackers.Resources.Inc()
	return nil
}

// SetAutoConfiguration toggles root discovery for modules without file sets.
func (w *Workspace) SetAutoConfiguration(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.auto != on {
		w.auto = on
		w.trackers.Outer.Inc()
	}
}

// SetFileSets replaces the file sets of a module.
func (w *Workspace) SetFileSets(moduleName string, sets []source.FileSet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.modules[moduleName]; !ok {
		return fmt.Errorf("%s: %w", moduleName, ErrModuleNotFound)
	}
	prev := w.fileSets[moduleName]
	next := make([]source.FileSet, len(sets))
	for i, fs := range sets {
		fs.Module = moduleName
		next[i] = fs
	}
	w.fileSets[moduleName] = next
	w.trackers.Outer.Inc()
	if !sameProfiles(prev, next) {
		w.trackers.Profiles.Inc()
	}
	return nil
}

func sameProfiles(a, b []source.FileSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !slices.Equal(a[i].ActiveProfiles, b[i].ActiveProfiles) {
			return false
		}
	}
	return true
}

// AddXML parses and registers an XML file under module, creating the module
// if needed. A malformed file is rejected and any previous version is kept.
func (w *Workspace) AddXML(moduleName, filePath string, data []byte) error {
	root, err := parse.XML(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filePath, err)
	}
	w.PutXML(moduleName, filePath, root)
	return nil
}

// PutXML registers an already parsed XML tree.
func (w *Workspace) PutXML(moduleName, filePath string, root *source.Element) {
	filePath = cleanPath(filePath)
	w.mu.Lock()
	defer w.mu.Unlock()
	e, prev := w.replaceLocked(moduleName, filePath)
	e.xml = source.NewXMLFile(filePath, moduleName, root, w.fileT[filePath], e.alive.Load)
	if prev == nil || prev.xml == nil {
		w.trackers.Resources.Inc()
	}
	if prev != nil && len(prev.classes) > 0 {
		w.trackers.Classes.Inc()
	}
}

// AddJava parses and registers a Java source file under module.
func (w *Workspace) AddJava(moduleName, filePath string, src []byte) error {
	l := lang.Languages[lang.Java]
	q, err := l.GetTagQuery()
	if err != nil {
		return fmt.Errorf("java query: %w", err)
	}
	w.PutClasses(moduleName, filePath, parse.Classes(l.NewParser(), q, src, cleanPath(filePath)))
	return nil
}

// PutClasses registers the classes declared by one Java file.
func (w *Workspace) PutClasses(moduleName, filePath string, classes []*source.Class) {
	filePath = cleanPath(filePath)
	w.mu.Lock()
	defer w.mu.Unlock()
	e, prev := w.replaceLocked(moduleName, filePath)
	e.classes = classes
	for _, c := range classes {
		c.Bind(w.fileT[filePath], e.alive.Load)
		w.indexClassLocked(c, moduleName)
	}
	var before []*source.Class
	if prev != nil {
		before = prev.classes
		if prev.xml != nil {
			w.trackers.Resources.Inc()
		}
	}
	if shapeOf(before) != shapeOf(classes) {
		w.trackers.Classes.Inc()
	}
}

func shapeOf(classes []*source.Class) string {
	var b strings.Builder
	for _, c := range classes {
		b.WriteString(c.Shape())
	}
	return b.String()
}

func (w *Workspace) indexClassLocked(c *source.Class, moduleName string) {
	c.Module = moduleName
	w.classes[c.FQN] = c
	for _, n := range c.Nested {
		w.indexClassLocked(n, moduleName)
	}
}

// replaceLocked retires the current entry for filePath and installs a fresh
// live one, bumping the file and structure trackers. It returns the new entry
// and the retired one, if any.
func (w *Workspace) replaceLocked(moduleName, filePath string) (*fileEntry, *fileEntry) {
	if _, ok := w.modules[moduleName]; !ok {
		w.addModuleLocked(moduleName, "", nil)
		w.trackers.Outer.Inc()
	}
	prev := w.retireLocked(filePath)
	t, ok := w.fileT[filePath]
	if !ok {
		t = tracker.New(filePath)
		w.fileT[filePath] = t
	}
	e := &fileEntry{path: filePath, module: moduleName}
	e.alive.Store(true)
	w.files[filePath] = e
	t.Inc()
	w.trackers.Structure.Inc()
	return e, prev
}

func (w *Workspace) retireLocked(filePath string) *fileEntry {
	old, ok := w.files[filePath]
	if !ok {
		return nil
	}
	old.alive.Store(false)
	var drop func(cs []*source.Class)
	drop = func(cs []*source.Class) {
		for _, c := range cs {
			if w.classes[c.FQN] == c {
				delete(w.classes, c.FQN)
			}
			drop(c.Nested)
		}
	}
	drop(old.classes)
	delete(w.files, filePath)
	return old
}

// Update replaces the content of a registered file, keeping its module.
func (w *Workspace) Update(filePath string, data []byte) error {
	filePath = cleanPath(filePath)
	w.mu.RLock()
	e, ok := w.files[filePath]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: not registered", filePath)
	}
	if strings.HasSuffix(filePath, ".java") {
		return w.AddJava(e.module, filePath, data)
	}
	return w.AddXML(e.module, filePath, data)
}

// Remove unregisters a file. Everything derived from it becomes invalid.
func (w *Workspace) Remove(filePath string) {
	filePath = cleanPath(filePath)
	w.mu.Lock()
	defer w.mu.Unlock()
	old := w.retireLocked(filePath)
	if old == nil {
		return
	}
	w.fileT[filePath].Inc()
	w.trackers.Structure.Inc()
	if old.xml != nil {
		w.trackers.Resources.Inc()
	}
	if len(old.classes) > 0 {
		w.trackers.Classes.Inc()
	}
}

// ModuleFor returns the module whose root is the longest prefix of filePath.
func (w *Workspace) ModuleFor(filePath string) (string, bool) {
	filePath = cleanPath(filePath)
	w.mu.RLock()
	defer w.mu.RUnlock()
	best, bestLen := "", -1
	for _, name := range w.order {
		m := w.modules[name]
		if m.root != "" && filePath != m.root && !strings.HasPrefix(filePath, m.root+"/") {
			continue
		}
		if len(m.root) > bestLen {
			best, bestLen = name, len(m.root)
		}
	}
	return best, bestLen >= 0
}

// Module returns the named module.
func (w *Workspace) Module(name string) (source.Module, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.modules[name]
	if !ok {
		return nil, false
	}
	return m, true
}

// Modules returns every module in registration order.
func (w *Workspace) Modules() []source.Module {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]source.Module, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.modules[name])
	}
	return out
}

// Dependents returns the modules depending on name directly or transitively.
func (w *Workspace) Dependents(name string) []source.Module {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []source.Module
	for _, other := range w.order {
		if other == name {
			continue
		}
		if slices.Contains(w.scopeLocked(other)[1:], name) {
			out = append(out, w.modules[other])
		}
	}
	return out
}

// scopeLocked returns name followed by its transitive dependencies in
// depth-first order.
func (w *Workspace) scopeLocked(name string) []string {
	var out []string
	seen := make(map[string]struct{})
	var visit func(n string)
	visit = func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		m, ok := w.modules[n]
		if !ok {
			return
		}
		out = append(out, n)
		for _, d := range m.deps {
			visit(d)
		}
	}
	visit(name)
	if len(out) == 0 {
		out = []string{name}
	}
	return out
}

func (w *Workspace) inScopeLocked(moduleName string) map[string]struct{} {
	scope := make(map[string]struct{})
	for _, n := range w.scopeLocked(moduleName) {
		scope[n] = struct{}{}
	}
	return scope
}

// FileSets returns the configured file sets of a module.
func (w *Workspace) FileSets(moduleName string) []source.FileSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]source.FileSet(nil), w.fileSets[moduleName]...)
}

// AutoConfiguration reports whether modules without file sets discover roots.
func (w *Workspace) AutoConfiguration() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.auto
}

// XMLFile returns a registered XML file by workspace path.
func (w *Workspace) XMLFile(filePath string) (*source.XMLFile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.files[cleanPath(filePath)]
	if !ok || e.xml == nil {
		return nil, false
	}
	return e.xml, true
}

// XMLFiles returns the XML files of one module, sorted by path.
func (w *Workspace) XMLFiles(moduleName string) []*source.XMLFile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*source.XMLFile
	for _, e := range w.files {
		if e.xml != nil && e.module == moduleName {
			out = append(out, e.xml)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Classes returns every class visible from module, nested ones included,
// sorted by qualified name.
func (w *Workspace) Classes(moduleName string) []*source.Class {
	return w.ClassesUnder(moduleName, "")
}

// ClassesUnder returns the classes visible from module whose package is pkg
// or one of its sub-packages.
func (w *Workspace) ClassesUnder(moduleName, pkg string) []*source.Class {
	w.mu.RLock()
	defer w.mu.RUnlock()
	scope := w.inScopeLocked(moduleName)
	var out []*source.Class
	for _, c := range w.classes {
		if _, ok := scope[c.Module]; !ok {
			continue
		}
		if pkg != "" && c.Package != pkg && !strings.HasPrefix(c.Package, pkg+".") {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN < out[j].FQN })
	return out
}

// Class returns a class by qualified name.
func (w *Workspace) Class(fqn string) (*source.Class, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.classes[fqn]
	return c, ok
}

// classpathPath strips the module root and a conventional source root.
func (w *Workspace) classpathPath(e *fileEntry) string {
	p := e.path
	if m, ok := w.modules[e.module]; ok && m.root != "" {
		p = strings.TrimPrefix(p, m.root+"/")
	}
	for _, r := range sourceRoots {
		if i := strings.Index(p, r); i >= 0 && (i == 0 || p[i-1] == '/') {
			return p[i+len(r):]
		}
	}
	return p
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
}

var _ source.Project = (*Workspace)(nil)
