package graph

import (
	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// NodeDetail is what a node modal shows.
type NodeDetail struct {
	Node     core.Node
	Parents  []core.Node
	Children []core.Node
	// Downstream counts every node a deletion would remove besides this one.
	Downstream int
}

func buildDetail(g *dag.Graph, n core.Node) NodeDetail {
	d := NodeDetail{Node: n, Downstream: len(g.Descendants(n.ID)) - 1}
	for _, id := range g.GetParents(n.ID) {
		if p, ok := g.GetNode(id); ok {
			d.Parents = append(d.Parents, p)
		}
	}
	for _, id := range g.GetChildren(n.ID) {
		if c, ok := g.GetNode(id); ok {
			d.Children = append(d.Children, c)
		}
	}
	return d
}
