// Package seed loads the graph new users start with.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// File is the YAML layout of a seed graph.
type File struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Edges []EdgeSpec `yaml:"edges"`
}

// NodeSpec is one node of a seed file.
type NodeSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Subkind string `yaml:"subkind,omitempty"`
}

// EdgeSpec is one edge of a seed file.
type EdgeSpec struct {
	ID     string `yaml:"id,omitempty"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Default is the graph used when no seed file is configured.
func Default() core.Snapshot {
	return core.Snapshot{
		Nodes: []core.Node{
			{ID: "table1", Name: "Table 1", Kind: core.KindData},
			{ID: "filter1", Name: "Filter Node", Kind: core.KindAnalysis, Subkind: "filter"},
		},
		Edges: []core.Edge{{Source: "table1", Target: "filter1"}},
	}
}

// Load reads a seed file. An empty path yields Default.
func Load(path string) (core.Snapshot, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	snap, err := Parse(data)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("seed file %s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes a YAML seed graph and validates it.
func Parse(data []byte) (core.Snapshot, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return core.Snapshot{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	return f.Snapshot()
}

// Snapshot converts the file into a snapshot a workspace can load.
func (f File) Snapshot() (core.Snapshot, error) {
	var s core.Snapshot
	known := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		node := core.Node{ID: n.ID, Name: n.Name, Subkind: n.Subkind}
		if k, ok := core.ParseKind(n.Kind); ok {
			node.Kind = k
		} else {
			node.RawKind = n.Kind
		}
		if node.Name == "" {
			node.Name = node.ID
		}
		s.Nodes = append(s.Nodes, node)
		known[n.ID] = true
	}
	for _, e := range f.Edges {
		if !known[e.Source] || !known[e.Target] {
			return core.Snapshot{}, fmt.Errorf("edge %s->%s references an unknown node", e.Source, e.Target)
		}
		s.Edges = append(s.Edges, core.Edge{ID: e.ID, Source: e.Source, Target: e.Target})
	}
	if _, err := dag.FromSnapshot(s); err != nil {
		return core.Snapshot{}, err
	}
	return s, nil
}

// Encode renders a snapshot in the seed file layout.
func Encode(s core.Snapshot) ([]byte, error) {
	var f File
	for _, n := range s.Nodes {
		f.Nodes = append(f.Nodes, NodeSpec{ID: n.ID, Name: n.Name, Kind: n.KindLabel(), Subkind: n.Subkind})
	}
	for _, e := range s.Edges {
		f.Edges = append(f.Edges, EdgeSpec{Source: e.Source, Target: e.Target})
	}
	return yaml.Marshal(f)
}
