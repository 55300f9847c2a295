// Package ranking narrows a ranked model graph, and bean lists, down to what a
// query asked for.
package ranking

import (
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/graph"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/model"
)

// SelectModels returns a new graph with only the top-ranked models and the
// edges between them. g must already be ranked. If maxModels is <= 0 or
// >= len(g.Nodes), g itself is returned.
func SelectModels(g *graph.Graph, maxModels int) *graph.Graph {
	if maxModels <= 0 || maxModels >= len(g.Nodes) {
		return g
	}
	selected := g.Nodes[:maxModels]
	return &graph.Graph{
		Nodes: selected,
		Edges: edgesWithin(g.Edges, idSet(selected), true),
	}
}

// FilterByName returns a new graph with the models whose name contains
// substr (case-insensitive), the models they depend on or are depended on
// by, and the edges touching a matched model.
func FilterByName(g *graph.Graph, substr string) *graph.Graph {
	lower := strings.ToLower(substr)
	matched := make(map[model.ID]struct{})
	for i := range g.Nodes {
		if strings.Contains(strings.ToLower(g.Nodes[i].Name), lower) {
			matched[g.Nodes[i].ID] = struct{}{}
		}
	}
	return neighbourhood(g, matched)
}

// FilterByModule returns a new graph with the models whose sources module
// declares, their direct neighbours, and the edges touching a declared model.
func FilterByModule(g *graph.Graph, module string) *graph.Graph {
	matched := make(map[model.ID]struct{})
	for i := range g.Nodes {
		if g.Nodes[i].Declared == module {
			matched[g.Nodes[i].ID] = struct{}{}
		}
	}
	return neighbourhood(g, matched)
}

func neighbourhood(g *graph.Graph, matched map[model.ID]struct{}) *graph.Graph {
	edges := edgesWithin(g.Edges, matched, false)
	keep := make(map[model.ID]struct{}, len(matched))
	for id := range matched {
		keep[id] = struct{}{}
	}
	for _, e := range edges {
		keep[e.From] = struct{}{}
		keep[e.To] = struct{}{}
	}

	var nodes []graph.Node
	for i := range g.Nodes {
		if _, ok := keep[g.Nodes[i].ID]; ok {
			nodes = append(nodes, g.Nodes[i])
		}
	}
	return &graph.Graph{Nodes: nodes, Edges: edges}
}

func idSet(nodes []graph.Node) map[model.ID]struct{} {
	ids := make(map[model.ID]struct{}, len(nodes))
	for i := range nodes {
		ids[nodes[i].ID] = struct{}{}
	}
	return ids
}

// edgesWithin keeps edges whose ends are both in ids, or either end when
// both is false.
func edgesWithin(edges []graph.Edge, ids map[model.ID]struct{}, both bool) []graph.Edge {
	var out []graph.Edge
	for _, e := range edges {
		_, srcOK := ids[e.From]
		_, tgtOK := ids[e.To]
		if (both && srcOK && tgtOK) || (!both && (srcOK || tgtOK)) {
			out = append(out, e)
		}
	}
	return out
}

// FilterBeans keeps the beans that have a name or alias containing substr
// (case-insensitive). An empty substr keeps everything.
func FilterBeans(ps []*bean.Pointer, substr string) []*bean.Pointer {
	if substr == "" {
		return ps
	}
	lower := strings.ToLower(substr)
	var out []*bean.Pointer
	for _, p := range ps {
		for _, name := range append([]string{p.Name()}, p.Names()...) {
			if strings.Contains(strings.ToLower(name), lower) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
