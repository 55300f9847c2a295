package workspace

import (
	"path"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// ResolveResource resolves an import location written in from. Plain
// locations are relative to the importing file; "classpath:" and
// "classpath*:" search the classpath of from's module, the latter returning
// every match. Ant-style wildcards are supported in all forms. Locations with
// unresolved placeholders resolve to nothing.
func (w *Workspace) ResolveResource(from *source.XMLFile, location string) []*source.XMLFile {
	location = strings.TrimSpace(location)
	if location == "" || strings.Contains(location, "${") || from == nil {
		return nil
	}
	if isClasspath(location) || strings.HasPrefix(location, "/") {
		return w.ResolveResourceIn(from.Module, location)
	}
	if rest, ok := strings.CutPrefix(location, "file:"); ok {
		return w.match(from.Module, strings.TrimPrefix(rest, "/"), false, false)
	}
	rel := path.Join(path.Dir(from.Path), location)
	return w.match(from.Module, rel, false, false)
}

// ResolveResourceIn resolves a location against the classpath of module.
// A bare path that names a registered file is accepted as is.
func (w *Workspace) ResolveResourceIn(moduleName, location string) []*source.XMLFile {
	location = strings.TrimSpace(location)
	if location == "" || strings.Contains(location, "${") {
		return nil
	}
	all := false
	switch {
	case strings.HasPrefix(location, "classpath*:"):
		location = strings.TrimPrefix(location, "classpath*:")
		all = true
	case strings.HasPrefix(location, "classpath:"):
		location = strings.TrimPrefix(location, "classpath:")
	default:
		if found := w.match(moduleName, strings.TrimPrefix(location, "/"), false, false); len(found) > 0 {
			return found
		}
	}
	return w.match(moduleName, strings.TrimPrefix(location, "/"), true, all)
}

func isClasspath(location string) bool {
	return strings.HasPrefix(location, "classpath:") || strings.HasPrefix(location, "classpath*:")
}

// match finds visible XML files whose workspace path, or classpath path when
// classpath is set, equals or matches pattern. Without all only the first
// match in module scope order is returned.
func (w *Workspace) match(moduleName, pattern string, classpath, all bool) []*source.XMLFile {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var gi *ignore.GitIgnore
	if strings.ContainsAny(pattern, "*?") {
		gi = ignore.CompileIgnoreLines("/" + strings.TrimPrefix(pattern, "/"))
	}
	matches := func(p string) bool {
		if gi != nil {
			return gi.MatchesPath(p)
		}
		return p == pattern
	}

	rank := make(map[string]int)
	for i, name := range w.scopeLocked(moduleName) {
		rank[name] = i
	}

	type hit struct {
		file *source.XMLFile
		rank int
	}
	var hits []hit
	for _, e := range w.files {
		if e.xml == nil {
			continue
		}
		r, visible := rank[e.module]
		if !visible {
			continue
		}
		p := e.path
		if classpath {
			p = w.classpathPath(e)
		}
		if matches(p) {
			hits = append(hits, hit{e.xml, r})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].file.Path < hits[j].file.Path
	})
	if len(hits) == 0 {
		return nil
	}
	if !all && gi == nil {
		hits = hits[:1]
	}
	out := make([]*source.XMLFile, len(hits))
	for i, h := range hits {
		out[i] = h.file
	}
	return out
}
