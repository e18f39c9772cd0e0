// Package headless runs the graph view controller without a browser. It provides an
// in-memory document that understands partial swaps, a rendering engine that computes the
// styled elements, and HTTP transports that speak to the mydat backend like htmx does.
package headless

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoElement is returned when a selector matches nothing in the document.
var ErrNoElement = errors.New("no element matches selector")

// RootID is the id of the region every document starts with.
const RootID = "body"

// Region is an element of the document that carries an id.
type Region struct {
	id       string
	parent   string
	html     string
	text     string
	attached bool
	open     bool
}

// ID returns the element id.
func (r *Region) ID() string { return r.id }

// Attached reports whether the region is still part of the document.
func (r *Region) Attached() bool { return r.attached }

// Triggered records an event fired on an element.
type Triggered struct {
	Selector string
	Event    string
}

// SwapListener is notified after content was swapped into target.
type SwapListener func(ctx context.Context, target string)

// Document is a flat index of id-carrying elements with parent links.
type Document struct {
	mu        sync.Mutex
	regions   map[string]*Region
	triggered []Triggered
	listeners []SwapListener
}

// NewDocument creates a document holding only the root region.
func NewDocument() *Document {
	d := &Document{regions: make(map[string]*Region)}
	d.regions[RootID] = &Region{id: RootID, attached: true}
	return d
}

// ElementByID implements graphview.Document.
func (d *Document) ElementByID(id string) (graphview.Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return nil, false
	}
	return r, true
}

// HTML returns the current markup of a region.
func (d *Document) HTML(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return "", false
	}
	return r.html, true
}

// Text returns the text content of a region, e.g. the body of a script element.
func (d *Document) Text(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return "", false
	}
	return r.text, true
}

// IsOpen reports whether a modal region received showModal since it was last swapped.
func (d *Document) IsOpen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	return ok && r.open
}

// Triggered returns the events fired so far.
func (d *Document) Triggered() []Triggered {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Triggered(nil), d.triggered...)
}

// OnAfterSwap registers a listener fired after every swap.
func (d *Document) OnAfterSwap(fn SwapListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Swap applies markup to the element matched by selector and notifies listeners.
func (d *Document) Swap(ctx context.Context, selector string, mode graphview.SwapMode, markup string) error {
	id, err := idFromSelector(selector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	target, ok := d.regions[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}

	switch mode {
	case graphview.SwapInner:
		d.detachDescendants(id)
		target.html = markup
		target.open = false
		err = d.index(markup, id)
	case graphview.SwapOuter:
		d.detachDescendants(id)
		target.attached = false
		delete(d.regions, id)
		err = d.index(markup, target.parent)
	case graphview.SwapNone:
	default:
		err = fmt.Errorf("unsupported swap mode %q", mode)
	}
	listeners := append([]SwapListener(nil), d.listeners...)
	d.mu.Unlock()

	if err != nil {
		return err
	}
	if mode == graphview.SwapNone {
		return nil
	}
	for _, fn := range listeners {
		fn(ctx, id)
	}
	return nil
}

// Trigger records an event. showModal opens the target region.
func (d *Document) Trigger(_ context.Context, selector, event string) error {
	id, err := idFromSelector(selector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	if event == "showModal" {
		r.open = true
	}
	d.triggered = append(d.triggered, Triggered{Selector: selector, Event: event})
	return nil
}

// detachDescendants marks every region below id as detached and forgets it. Caller holds mu.
func (d *Document) detachDescendants(id string) {
	var doomed []string
	for childID, r := range d.regions {
		if childID != id && d.isDescendant(r, id) {
			doomed = append(doomed, childID)
		}
	}
	for _, childID := range doomed {
		d.regions[childID].attached = false
		delete(d.regions, childID)
	}
}

func (d *Document) isDescendant(r *Region, ancestor string) bool {
	for seen := 0; r != nil && seen < len(d.regions); seen++ {
		if r.parent == ancestor {
			return true
		}
		r = d.regions[r.parent]
	}
	return false
}

// index registers every id-carrying element of markup under parent. Caller holds mu.
func (d *Document) index(markup, parent string) error {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctxNode)
	if err != nil {
		return fmt.Errorf("parse swapped markup: %w", err)
	}

	var walk func(n *html.Node, parent string) error
	walk = func(n *html.Node, parent string) error {
		next := parent
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				var buf bytes.Buffer
				if err := html.Render(&buf, n); err != nil {
					return err
				}
				if old, ok := d.regions[id]; ok {
					old.attached = false
				}
				d.regions[id] = &Region{id: id, parent: parent, html: buf.String(), text: textContent(n), attached: true}
				next = id
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c, next); err != nil {
				return err
			}
		}
		return nil
	}

	for _, n := range nodes {
		if err := walk(n, parent); err != nil {
			return err
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func idFromSelector(selector string) (string, error) {
	if !strings.HasPrefix(selector, "#") || len(selector) < 2 {
		return "", fmt.Errorf("only id selectors are supported, got %q", selector)
	}
	return selector[1:], nil
}
