// Package home serves the page shell and the page fragments swapped into it.
package home

import "github.com/leapstack-labs/mydat/pkg/core"

// KindCount is the number of nodes of one kind.
type KindCount struct {
	Kind  string
	Count int
}

// WorkspaceStats summarizes a user's graph on the landing page.
type WorkspaceStats struct {
	Nodes  int
	Edges  int
	ByKind []KindCount
}

// ParentOption is a node offered as parent when creating a node.
type ParentOption struct {
	ID   string
	Name string
}

// RelationshipsData is what the relationships page offers besides the graph.
type RelationshipsData struct {
	Parents []ParentOption
	Tables  []core.Node
}

// ChartData is what a chart page shows.
type ChartData struct {
	ID       string
	Name     string
	Kind     string
	Lineage  []string // upstream node names, nearest first
	Children int
}
