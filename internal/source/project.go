package source

import "github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"

// FileSet is an explicitly configured group of configuration units forming
// one application context. Files holds XML paths and class names.
type FileSet struct {
	ID             string
	Name           string
	Module         string
	Files          []string
	Dependencies   []string
	ActiveProfiles []string
	Removed        bool
}

// Module is a unit of classpath scope.
type Module interface {
	Name() string
	// Dependencies returns the names of modules this one depends on, direct first.
	Dependencies() []string
	Disposed() bool
}

// Trackers are the project-wide invalidation domains.
type Trackers struct {
	// Outer moves when file sets, modules or auto-configuration change.
	Outer *tracker.Tracker
	// Profiles moves when configured active profiles change.
	Profiles *tracker.Tracker
	// Structure moves on any class or XML change. Only project-wide root
	// resolution depends on it.
	Structure *tracker.Tracker
	// Classes moves when the class index changes shape: a class appears,
	// disappears, or changes its supertypes, annotations or method
	// signatures.
	Classes *tracker.Tracker
	// Resources moves when XML files are added or removed.
	Resources *tracker.Tracker
	// CustomBeanParser moves when model extensions are (un)registered.
	CustomBeanParser *tracker.Tracker
}

// TypeSystem answers type-level questions over parsed classes.
type TypeSystem interface {
	Class(fqn string) (*Class, bool)
	// IsAssignable reports whether sub is fqn super or inherits from it.
	IsAssignable(sub, super string) bool
	// Inheritors returns every known class inheriting from fqn, transitively,
	// restricted to the classpath scope of module.
	Inheritors(module, fqn string) []*Class
	// FactoryObjectType returns the type produced by a FactoryBean class.
	FactoryObjectType(fqn string) (string, bool)
	// ResolveTypeName resolves a name written inside from to a qualified name.
	ResolveTypeName(from *Class, name string) string
}

// Project is everything the model engine reads from the workspace.
type Project interface {
	TypeSystem

	Trackers() Trackers
	Module(name string) (Module, bool)
	Modules() []Module
	// Dependents returns the modules that depend on name.
	Dependents(name string) []Module

	FileSets(module string) []FileSet
	AutoConfiguration() bool

	XMLFile(path string) (*XMLFile, bool)
	XMLFiles(module string) []*XMLFile
	// ResolveResource resolves an import location written in from.
	ResolveResource(from *XMLFile, location string) []*XMLFile
	// ResolveResourceIn resolves a location relative to a module classpath.
	ResolveResourceIn(module, location string) []*XMLFile
	// ClassesUnder returns the top-level and nested classes under pkg
	// visible from module.
	ClassesUnder(module, pkg string) []*Class
	// Classes returns every class visible from module.
	Classes(module string) []*Class
}
