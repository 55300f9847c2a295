package lookup

import (
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

// InheritorCache memoizes, per base class, the inheritors within one module
// scope that can themselves be bean classes. It is owned by the module and
// shared by every finder in it.
type InheritorCache struct {
	types   source.TypeSystem
	module  string
	classes *tracker.Tracker
	cells   tracker.Map[string, []string]
}

// NewInheritorCache creates a cache over types for module. The cache is
// invalidated whenever the class index tracker moves.
func NewInheritorCache(types source.TypeSystem, module string, classes *tracker.Tracker) *InheritorCache {
	return &InheritorCache{types: types, module: module, classes: classes}
}

// Inheritors returns the qualified names of concrete, non-private inheritors
// of fqn, in the order the type system reports them.
func (c *InheritorCache) Inheritors(fqn string) []string {
	out, _ := c.cells.Get(fqn, func(d *tracker.Deps) ([]string, error) {
		d.Add(c.classes)
		var names []string
		for _, cls := range c.types.Inheritors(c.module, fqn) {
			if cls.Candidate() {
				names = append(names, cls.FQN)
			}
		}
		return names, nil
	})
	return out
}
