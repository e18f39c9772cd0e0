package core

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// elementData is the payload of a cytoscape element. Nodes and edges share it.
type elementData struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Subkind string `json:"subkind,omitempty"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
}

func (d elementData) isEdge() bool {
	return d.Source != "" || d.Target != ""
}

// element accepts both the wrapped {"data":{...}} form and the flat form.
type element struct {
	elementData
}

func (e *element) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Data *elementData `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Data != nil {
		e.elementData = *wrapped.Data
		return nil
	}
	return json.Unmarshal(b, &e.elementData)
}

type wrappedElement struct {
	Data elementData `json:"data"`
}

type wireSnapshot struct {
	Nodes []wrappedElement `json:"nodes"`
	Edges []wrappedElement `json:"edges"`
}

// MarshalJSON encodes the snapshot in the cytoscape object form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		Nodes: make([]wrappedElement, 0, len(s.Nodes)),
		Edges: make([]wrappedElement, 0, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		w.Nodes = append(w.Nodes, wrappedElement{Data: elementData{
			ID:      n.ID,
			Name:    n.Name,
			Kind:    n.KindLabel(),
			Subkind: n.Subkind,
		}})
	}
	for _, e := range s.Edges {
		w.Edges = append(w.Edges, wrappedElement{Data: elementData{
			ID:     e.EdgeID(),
			Source: e.Source,
			Target: e.Target,
		}})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes either {nodes, edges} or a flat array of elements.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Snapshot{}
		return nil
	}

	out := Snapshot{}
	switch trimmed[0] {
	case '[':
		var elems []element
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return fmt.Errorf("decode element array: %w", err)
		}
		// A bare element list says nothing about kind, so endpoints decide.
		for _, el := range elems {
			if el.isEdge() {
				out.Edges = append(out.Edges, el.edge())
			} else {
				out.Nodes = append(out.Nodes, el.node())
			}
		}
	case '{':
		var obj struct {
			Nodes []element `json:"nodes"`
			Edges []element `json:"edges"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("decode snapshot object: %w", err)
		}
		for _, el := range obj.Nodes {
			out.Nodes = append(out.Nodes, el.node())
		}
		for _, el := range obj.Edges {
			out.Edges = append(out.Edges, el.edge())
		}
	default:
		return fmt.Errorf("decode snapshot: unexpected %q", trimmed[0])
	}
	*s = out
	return nil
}

func (d elementData) node() Node {
	n := Node{ID: d.ID, Name: d.Name, Subkind: d.Subkind}
	if k, ok := ParseKind(d.Kind); ok {
		n.Kind = k
	} else {
		n.RawKind = d.Kind
	}
	return n
}

func (d elementData) edge() Edge {
	return Edge{ID: d.ID, Source: d.Source, Target: d.Target}
}

// DecodeSnapshot parses a snapshot body and validates it.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, err
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
