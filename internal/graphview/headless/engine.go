package headless

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Engine errors.
var (
	ErrDetachedContainer = errors.New("container is not attached to the document")
	ErrSurfaceDestroyed  = errors.New("surface destroyed")
	ErrUnknownElement    = errors.New("unknown rendered element")
)

// RenderedNode is a node as the surface draws it.
type RenderedNode struct {
	ID    string
	Label string
	Kind  string
	Shape graphview.Shape
	Color string
}

// RenderedEdge is a directed edge as the surface draws it.
type RenderedEdge struct {
	ID     string
	Source string
	Target string
	Arrow  bool
}

// Engine mounts in-memory surfaces.
type Engine struct {
	mu      sync.Mutex
	mounts  int
	current *Surface
}

// NewEngine creates an engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Mount implements graphview.Engine.
func (e *Engine) Mount(_ context.Context, opts graphview.MountOptions) (graphview.Surface, error) {
	if opts.Container == nil || !opts.Container.Attached() {
		return nil, ErrDetachedContainer
	}

	s := &Surface{
		container: opts.Container,
		layout:    opts.Layout,
		handlers:  make(map[graphview.Gesture][]binding),
		nodes:     make(map[string]core.Node, len(opts.Snapshot.Nodes)),
	}

	for _, n := range opts.Snapshot.Nodes {
		st := graphview.StyleFor(n)
		s.nodes[n.ID] = n
		s.rendered = append(s.rendered, RenderedNode{
			ID:    n.ID,
			Label: n.Name,
			Kind:  n.KindLabel(),
			Shape: st.Shape,
			Color: st.Color,
		})
	}
	for _, edge := range opts.Snapshot.Edges {
		if _, ok := s.nodes[edge.Source]; !ok {
			continue
		}
		if _, ok := s.nodes[edge.Target]; !ok {
			continue
		}
		s.edges = append(s.edges, RenderedEdge{
			ID:     edge.EdgeID(),
			Source: edge.Source,
			Target: edge.Target,
			Arrow:  hasTargetArrow(opts.Style),
		})
	}

	e.mu.Lock()
	e.mounts++
	e.current = s
	e.mu.Unlock()
	return s, nil
}

// Current returns the most recently mounted surface.
func (e *Engine) Current() *Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Mounts returns how many surfaces were mounted.
func (e *Engine) Mounts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounts
}

func hasTargetArrow(rules []graphview.StyleRule) bool {
	for _, r := range rules {
		if r.Selector != "edge" {
			continue
		}
		shape, _ := r.Style["target-arrow-shape"].(string)
		return shape != "" && shape != "none"
	}
	return false
}

type binding struct {
	selector string
	fn       graphview.GestureHandler
}

// Surface is an in-memory rendering. Gestures are delivered with Tap and ContextTap.
type Surface struct {
	mu        sync.Mutex
	container graphview.Element
	layout    string
	nodes     map[string]core.Node
	rendered  []RenderedNode
	edges     []RenderedEdge
	handlers  map[graphview.Gesture][]binding
	destroyed bool
}

// On implements graphview.Surface.
func (s *Surface) On(g graphview.Gesture, selector string, fn graphview.GestureHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.handlers[g] = append(s.handlers[g], binding{selector: selector, fn: fn})
}

// Destroy implements graphview.Surface.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.handlers = make(map[graphview.Gesture][]binding)
}

// Destroyed reports whether Destroy was called.
func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Container returns the element the surface was mounted on.
func (s *Surface) Container() graphview.Element { return s.container }

// Layout returns the layout the surface was mounted with.
func (s *Surface) Layout() string { return s.layout }

// Nodes returns the rendered nodes in snapshot order.
func (s *Surface) Nodes() []RenderedNode {
	return append([]RenderedNode(nil), s.rendered...)
}

// Edges returns the rendered edges in snapshot order.
func (s *Surface) Edges() []RenderedEdge {
	return append([]RenderedEdge(nil), s.edges...)
}

// ElementIDs returns the sorted ids of every rendered node and edge.
func (s *Surface) ElementIDs() []string {
	ids := make([]string, 0, len(s.rendered)+len(s.edges))
	for _, n := range s.rendered {
		ids = append(ids, n.ID)
	}
	for _, e := range s.edges {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

// HandlerCount returns the number of registered gesture handlers.
func (s *Surface) HandlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.handlers {
		n += len(b)
	}
	return n
}

// Tap delivers a primary gesture to the node with the given id.
func (s *Surface) Tap(ctx context.Context, nodeID string) error {
	return s.fire(ctx, graphview.GestureTap, nodeID)
}

// ContextTap delivers a secondary gesture to the node with the given id.
func (s *Surface) ContextTap(ctx context.Context, nodeID string) error {
	return s.fire(ctx, graphview.GestureContextTap, nodeID)
}

func (s *Surface) fire(ctx context.Context, g graphview.Gesture, nodeID string) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownElement, nodeID)
	}
	var fns []graphview.GestureHandler
	for _, b := range s.handlers[g] {
		if b.selector == "node" {
			fns = append(fns, b.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, graphview.NodeEvent{Gesture: g, Node: n})
	}
	return nil
}
