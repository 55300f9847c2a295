package model

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// Context is everything model computations need: the project, the arena,
// registered extensions and module-wide caches. One Context serves one
// project and is passed explicitly to every query.
type Context struct {
	Project   source.Project
	Logger    *slog.Logger
	CacheSize int

	arena      *Arena
	inheritors sync.Map // module name -> *lookup.InheritorCache

	extMu      sync.RWMutex
	extensions []Extension
}

// NewContext creates a context over project. cacheSize bounds every
// per-model lookup cache; zero selects the default.
func NewContext(project source.Project, logger *slog.Logger, cacheSize int) *Context {
	if cacheSize <= 0 {
		cacheSize = lookup.DefaultCacheSize
	}
	return &Context{
		Project:   project,
		Logger:    logger,
		CacheSize: cacheSize,
		arena:     NewArena(),
	}
}

// Arena returns the model arena.
func (mc *Context) Arena() *Arena {
	return mc.arena
}

// Get resolves a model id.
func (mc *Context) Get(id ID) (Model, bool) {
	return mc.arena.Get(id)
}

// Register adds an extension. Every model that consults extensions is
// recomputed on next access.
func (mc *Context) Register(ext Extension) {
	mc.extMu.Lock()
	mc.extensions = append(mc.extensions, ext)
	mc.extMu.Unlock()
	mc.Project.Trackers().CustomBeanParser.Inc()
}

// Unregister removes the extension with the given name.
func (mc *Context) Unregister(name string) {
	mc.extMu.Lock()
	n := len(mc.extensions)
	mc.extensions = slices.DeleteFunc(mc.extensions, func(e Extension) bool { return e.Name() == name })
	removed := len(mc.extensions) != n
	mc.extMu.Unlock()
	if removed {
		mc.Project.Trackers().CustomBeanParser.Inc()
	}
}

// Extensions returns the registered extensions in registration order.
func (mc *Context) Extensions() []Extension {
	mc.extMu.RLock()
	defer mc.extMu.RUnlock()
	return append([]Extension(nil), mc.extensions...)
}

// Disposed reports whether module has been torn down. Unknown modules count
// as disposed.
func (mc *Context) Disposed(module string) bool {
	m, ok := mc.Project.Module(module)
	return !ok || m.Disposed()
}

func (mc *Context) inheritorCache(module string) *lookup.InheritorCache {
	if c, ok := mc.inheritors.Load(module); ok {
		return c.(*lookup.InheritorCache)
	}
	c, _ := mc.inheritors.LoadOrStore(module, lookup.NewInheritorCache(mc.Project, module, mc.Project.Trackers().Classes))
	return c.(*lookup.InheritorCache)
}

// XMLModel returns the model of the XML file at path, seen from module under
// profiles.
func (mc *Context) XMLModel(path, module string, profiles bean.ProfileSet) *XMLModel {
	k := Key{Kind: XMLKind, Unit: path, Module: module, Profiles: profiles.Key()}
	return mc.arena.Intern(k, func(id ID) Model {
		return newXMLModel(mc, id, path, module, profiles)
	}).(*XMLModel)
}

// ClassModel returns the model of the configuration class fqn. It reports
// false, and logs, when the class is unknown: callers must only ask for
// classes they found in the project.
func (mc *Context) ClassModel(fqn, module string, profiles bean.ProfileSet) (*ClassModel, bool) {
	if _, ok := mc.Project.Class(fqn); !ok {
		mc.Logger.Error("class model requested for unknown class", "class", fqn, "module", module)
		return nil, false
	}
	k := Key{Kind: ClassKind, Unit: fqn, Module: module, Profiles: profiles.Key()}
	return mc.arena.Intern(k, func(id ID) Model {
		return newClassModel(mc, id, fqn, module, profiles)
	}).(*ClassModel), true
}

// ScanModel returns the model of a component scan. Its identity is the scan
// definition, not a file.
func (mc *Context) ScanModel(spec ScanSpec, module string, profiles bean.ProfileSet) *ScanModel {
	spec = spec.normalize()
	k := Key{Kind: ScanKind, Unit: spec.key(), Module: module, Profiles: profiles.Key()}
	return mc.arena.Intern(k, func(id ID) Model {
		return newScanModel(mc, id, spec, module, profiles)
	}).(*ScanModel)
}
