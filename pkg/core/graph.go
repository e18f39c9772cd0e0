package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the category of a graph node. It drives both styling and request routing.
type Kind string

// Known node kinds. KindData is the legacy name for tables.
const (
	KindTable    Kind = "table"
	KindAnalysis Kind = "analysis"
	KindChart    Kind = "chart"
	KindData     Kind = "data"
	KindUnknown  Kind = ""
)

// Kinds lists the known kinds in display order.
var Kinds = []Kind{KindTable, KindAnalysis, KindChart, KindData}

// ParseKind maps a raw kind string onto the closed Kind set.
// The boolean is false for anything not in Kinds.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindTable:
		return KindTable, true
	case KindAnalysis:
		return KindAnalysis, true
	case KindChart:
		return KindChart, true
	case KindData:
		return KindData, true
	default:
		return KindUnknown, false
	}
}

// Snapshot validation errors.
var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrEmptyNodeID   = errors.New("node id is empty")
	ErrEdgeEndpoint  = errors.New("edge endpoint is empty")
	ErrDuplicateEdge = errors.New("duplicate element id")
)

// Node is a single vertex of a graph snapshot.
type Node struct {
	ID      string
	Name    string
	Kind    Kind
	Subkind string

	// RawKind keeps the kind string as received when it did not parse.
	RawKind string
}

// KindLabel returns the kind as it should be shown or sent back to the server.
func (n Node) KindLabel() string {
	if n.Kind == KindUnknown {
		return n.RawKind
	}
	return string(n.Kind)
}

// Edge is a directed connection from Source to Target.
type Edge struct {
	ID     string
	Source string
	Target string
}

// EdgeID returns the explicit edge id, or "source->target" when none was given.
func (e Edge) EdgeID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "->" + e.Target
}

// Snapshot is the full node/edge description of a graph at one point in time.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// IsEmpty reports whether the snapshot carries neither nodes nor edges.
func (s Snapshot) IsEmpty() bool {
	return len(s.Nodes) == 0 && len(s.Edges) == 0
}

// Validate checks that node ids are present and unique, that every edge has both endpoints
// and that no edge id is shared with another element.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return ErrEmptyNodeID
		}
		if _, ok := seen[n.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range s.Edges {
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("%w: %q -> %q", ErrEdgeEndpoint, e.Source, e.Target)
		}
		id := e.EdgeID()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: edge %s", ErrDuplicateEdge, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{}
	if s.Nodes != nil {
		out.Nodes = append(make([]Node, 0, len(s.Nodes)), s.Nodes...)
	}
	if s.Edges != nil {
		out.Edges = append(make([]Edge, 0, len(s.Edges)), s.Edges...)
	}
	return out
}

// Node returns the node with the given id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// ElementIDs returns the sorted ids of all nodes and edges.
func (s Snapshot) ElementIDs() []string {
	ids := make([]string, 0, len(s.Nodes)+len(s.Edges))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	for _, e := range s.Edges {
		ids = append(ids, e.EdgeID())
	}
	sort.Strings(ids)
	return ids
}
