// Package dag provides the directed graph that backs a user's workspace.
// It supports cycle detection, cascade deletion and snapshot export.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/mydat/pkg/core"
)

var (
	// ErrNodeNotFound is returned when an operation references an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrCycle is returned when edges would make a node its own ancestor.
	ErrCycle = errors.New("cycle detected")
)

// Graph is a directed graph of workspace nodes (tables, analyses, charts).
// An edge parent -> child means child is derived from parent.
type Graph struct {
	nodes    map[string]core.Node
	order    []string            // insertion order, for stable export
	children map[string][]string // parent -> children (dependents)
	parents  map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]core.Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// FromSnapshot builds a graph from a snapshot. Edges must reference known nodes
// and must not form a cycle.
func FromSnapshot(s core.Snapshot) (*Graph, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	g := NewGraph()
	for _, n := range s.Nodes {
		g.AddNode(n)
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	if has, path := g.HasCycle(); has {
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
	}
	return g, nil
}

// AddNode adds a node, or replaces the data of an existing node with the same id.
func (g *Graph) AddNode(n core.Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
		g.children[n.ID] = []string{}
		g.parents[n.ID] = []string{}
	}
	g.nodes[n.ID] = n
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent %q: %w", parentID, ErrNodeNotFound)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child %q: %w", childID, ErrNodeNotFound)
	}
	if parentID == childID {
		return fmt.Errorf("%w: self-loop on %s", ErrCycle, parentID)
	}

	if !contains(g.children[parentID], childID) {
		g.children[parentID] = append(g.children[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// GetNode returns a node by id.
func (g *Graph) GetNode(id string) (core.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GetParents returns the parents (sources) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.children[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, c := range g.children {
		count += len(c)
	}
	return count
}

// NodesByKind returns nodes of the given kind in insertion order.
// An empty subkind matches every subkind.
func (g *Graph) NodesByKind(kind core.Kind, subkind string) []core.Node {
	var out []core.Node
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind == kind && (subkind == "" || n.Subkind == subkind) {
			out = append(out, n)
		}
	}
	return out
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.children[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Descendants returns the node and everything downstream of it, sorted.
func (g *Graph) Descendants(id string) []string {
	affected := make(map[string]bool)

	var mark func(id string)
	mark = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, childID := range g.children[id] {
			mark(childID)
		}
	}

	if _, exists := g.nodes[id]; exists {
		mark(id)
	}

	result := make([]string, 0, len(affected))
	for nodeID := range affected {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// DeleteCascade removes a node together with all of its descendants and their edges.
// It returns the number of removed nodes.
func (g *Graph) DeleteCascade(id string) (int, error) {
	if _, exists := g.nodes[id]; !exists {
		return 0, fmt.Errorf("delete %q: %w", id, ErrNodeNotFound)
	}

	doomed := g.Descendants(id)
	for _, nodeID := range doomed {
		g.removeNode(nodeID)
	}
	return len(doomed), nil
}

func (g *Graph) removeNode(id string) {
	for _, p := range g.parents[id] {
		g.children[p] = without(g.children[p], id)
	}
	for _, c := range g.children[id] {
		g.parents[c] = without(g.parents[c], id)
	}
	delete(g.nodes, id)
	delete(g.children, id)
	delete(g.parents, id)
	g.order = without(g.order, id)
}

// Snapshot exports the graph. Nodes keep insertion order, edges follow their parent.
func (g *Graph) Snapshot() core.Snapshot {
	s := core.Snapshot{
		Nodes: make([]core.Node, 0, len(g.order)),
		Edges: make([]core.Edge, 0),
	}
	for _, id := range g.order {
		s.Nodes = append(s.Nodes, g.nodes[id])
	}
	for _, id := range g.order {
		for _, childID := range g.children[id] {
			s.Edges = append(s.Edges, core.Edge{Source: id, Target: childID})
		}
	}
	return s
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

func without(slice []string, str string) []string {
	out := slice[:0]
	for _, s := range slice {
		if s != str {
			out = append(out, s)
		}
	}
	return out
}
