// Package graph builds the dependency graph of the models reachable from a
// set of roots and ranks them with PageRank.
package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/model"
)

// Node is one model of the graph. Module is the module the model was
// resolved for; Declared is the module owning its source file, which differs
// for files reached through module dependencies.
type Node struct {
	ID       model.ID
	Name     string
	Kind     model.Kind
	Module   string
	Declared string
	Beans    int
	Rank     float64
}

// Edge is one dependency between two models of the graph.
type Edge struct {
	From   model.ID
	To     model.ID
	Source string
	Target string
	Label  string
	Type   model.EdgeType
}

// Graph holds the models reachable from a set of roots and the edges
// between them.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build walks every model reachable from roots. Nodes are recorded in walk
// order; edges are deduplicated, self edges dropped, and sorted by source
// then target.
func Build(ctx context.Context, mc *model.Context, roots []model.Model) (*Graph, error) {
	g := &Graph{}
	seen := make(map[model.ID]struct{})

	type edgeKey struct {
		from, to model.ID
		label    string
		typ      model.EdgeType
	}
	edges := make(map[edgeKey]struct{})

	_, err := model.WalkRelated(ctx, mc, roots, func(s model.Step) bool {
		if _, ok := seen[s.To.ID()]; !ok {
			seen[s.To.ID()] = struct{}{}
			g.Nodes = append(g.Nodes, Node{
				ID:       s.To.ID(),
				Name:     s.To.String(),
				Kind:     s.To.Kind(),
				Module:   s.To.Module(),
				Declared: declaredIn(s.To),
				Beans:    len(s.To.LocalBeans()),
			})
		}
		if s.From == nil || s.From.ID() == s.To.ID() {
			return true
		}
		key := edgeKey{s.From.ID(), s.To.ID(), s.Dep.Edge.Label, s.Dep.Edge.Type}
		if _, dup := edges[key]; dup {
			return true
		}
		edges[key] = struct{}{}
		g.Edges = append(g.Edges, Edge{
			From:   s.From.ID(),
			To:     s.To.ID(),
			Source: s.From.String(),
			Target: s.To.String(),
			Label:  s.Dep.Edge.Label,
			Type:   s.Dep.Edge.Type,
		})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("walking models: %w", err)
	}

	sortEdges(g.Edges)
	return g, nil
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		if edges[i].Type != edges[j].Type {
			return edges[i].Type < edges[j].Type
		}
		return edges[i].Label < edges[j].Label
	})
}

// Rank applies PageRank to the graph and sorts its nodes by rank
// descending, ties by name. A model that many others depend on ranks high.
func Rank(g *Graph) {
	if len(g.Nodes) == 0 {
		return
	}

	if len(g.Edges) == 0 {
		uniform := 1.0 / float64(len(g.Nodes))
		for i := range g.Nodes {
			g.Nodes[i].Rank = uniform
		}
		sortNodes(g.Nodes)
		return
	}

	nodes := make(map[model.ID]struct{}, len(g.Nodes))
	for i := range g.Nodes {
		nodes[g.Nodes[i].ID] = struct{}{}
	}

	// Parallel edges with different labels each carry weight.
	outEdges := make(map[model.ID][]model.ID)
	outDegree := make(map[model.ID]int)
	for _, e := range g.Edges {
		if _, ok := nodes[e.To]; !ok {
			continue
		}
		outEdges[e.From] = append(outEdges[e.From], e.To)
		outDegree[e.From]++
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
	for i := range g.Nodes {
		g.Nodes[i].Rank = ranks[g.Nodes[i].ID]
	}
	sortNodes(g.Nodes)
}

func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Rank != nodes[j].Rank {
			return nodes[i].Rank > nodes[j].Rank
		}
		return nodes[i].Name < nodes[j].Name
	})
}

func pageRank(
	nodes map[model.ID]struct{},
	outEdges map[model.ID][]model.ID,
	outDegree map[model.ID]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[model.ID]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[model.ID]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		next := make(map[model.ID]float64, n)

		// Models without dependencies spread their rank evenly.
		var dangling float64
		for node := range nodes {
			if outDegree[node] == 0 {
				dangling += rank[node]
			}
		}
		spread := alpha * dangling / float64(n)

		for node := range nodes {
			next[node] = teleport + spread
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				next[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(next[node] - rank[node])
		}

		rank = next

		if diff < tol {
			break
		}
	}

	return rank
}

func declaredIn(m model.Model) string {
	if l, ok := m.(model.Local); ok {
		if u, ok := l.Unit(); ok && u.ModuleName() != "" {
			return u.ModuleName()
		}
	}
	return m.Module()
}
