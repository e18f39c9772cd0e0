// Package graphview implements the graph view controller: it refreshes the rendered
// workspace graph whenever the page swaps content, keeps the last good snapshot as a
// fallback, and turns gestures on rendered nodes into partial-update requests.
//
// The document, the rendering engine and the partial-update transport are reached through
// the interfaces in this file. The headless subpackage provides in-memory and HTTP
// implementations of them.
package graphview

import (
	"context"

	"github.com/leapstack-labs/mydat/pkg/core"
)

// Element is a node of the host document.
type Element interface {
	ID() string
	// Attached reports whether the element is still part of the document.
	Attached() bool
}

// Document resolves elements of the host page.
type Document interface {
	ElementByID(id string) (Element, bool)
}

// Fetcher retrieves the current graph snapshot. Failures are *FetchError.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (core.Snapshot, error)
}

// Gesture names a user interaction on rendered elements.
type Gesture string

// Gestures the controller subscribes to.
const (
	GestureTap        Gesture = "tap"
	GestureContextTap Gesture = "cxttap"
)

// NodeEvent carries the node a gesture landed on.
type NodeEvent struct {
	Gesture Gesture
	Node    core.Node
}

// GestureHandler reacts to a gesture on a rendered element.
type GestureHandler func(ctx context.Context, ev NodeEvent)

// MountOptions describes one rendering of the graph.
type MountOptions struct {
	Container Element
	Snapshot  core.Snapshot
	Layout    string
	Style     []StyleRule
}

// Engine creates rendering surfaces.
type Engine interface {
	Mount(ctx context.Context, opts MountOptions) (Surface, error)
}

// Surface is a live rendering bound to a container. Destroy releases the rendering and
// every handler registered through On.
type Surface interface {
	On(g Gesture, selector string, fn GestureHandler)
	Destroy()
}

// Dispatcher hands request descriptors to the partial-update framework.
type Dispatcher interface {
	// Ajax performs the request and applies the swap it describes.
	Ajax(ctx context.Context, req Request) error
	// Trigger fires a DOM event on the element matched by selector.
	Trigger(ctx context.Context, selector, event string) error
}
