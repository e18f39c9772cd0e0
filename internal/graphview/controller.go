package graphview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/mydat/pkg/core"
)

// State is the refresh state of a controller.
type State int

// Controller states. Between refreshes a controller is always Idle.
const (
	StateIdle State = iota
	StateFetching
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRendering:
		return "rendering"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome reports what a refresh did.
type Outcome int

// Refresh outcomes.
const (
	// OutcomeSkipped means the swapped content had no mount element.
	OutcomeSkipped Outcome = iota
	// OutcomeRendered means a fresh snapshot was rendered.
	OutcomeRendered
	// OutcomeFallback means the fetch gave nothing usable and the fallback was rendered.
	OutcomeFallback
	// OutcomeStale means a newer refresh started while this one was fetching.
	OutcomeStale
	// OutcomeDetached means the mount element left the document during the fetch.
	OutcomeDetached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeFallback:
		return "fallback"
	case OutcomeStale:
		return "stale"
	case OutcomeDetached:
		return "detached"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Config wires a controller to its collaborators.
type Config struct {
	Document   Document
	Fetcher    Fetcher
	Engine     Engine
	Dispatcher Dispatcher
	// Layout defaults to DefaultLayout.
	Layout string
	// Seed is the initial fallback snapshot, if any.
	Seed *core.Snapshot
	// Logger is optional; a discard logger is used when nil.
	Logger *slog.Logger
}

// Controller owns the refresh cycle of one graph view.
//
// HandleSwap may be called from any goroutine. Overlapping refreshes are resolved by
// generation: only the most recently started refresh may render, older completions are
// dropped without touching the fallback.
type Controller struct {
	doc        Document
	fetcher    Fetcher
	engine     Engine
	dispatcher Dispatcher
	layout     string
	logger     *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	fallback   *core.Snapshot
	surface    Surface
}

// New creates a controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	layout := cfg.Layout
	if layout == "" {
		layout = DefaultLayout
	}

	c := &Controller{
		doc:        cfg.Document,
		fetcher:    cfg.Fetcher,
		engine:     cfg.Engine,
		dispatcher: cfg.Dispatcher,
		layout:     layout,
		logger:     logger,
	}
	if cfg.Seed != nil && !cfg.Seed.IsEmpty() {
		seed := cfg.Seed.Clone()
		c.fallback = &seed
	}
	return c
}

// State returns the current refresh state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fallback returns a copy of the last known good snapshot.
func (c *Controller) Fallback() (core.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallback == nil {
		return core.Snapshot{}, false
	}
	return c.fallback.Clone(), true
}

// HandleSwap runs one refresh. Call it on every content-swapped notification.
// The only error it returns is a failure of the rendering engine; fetch failures fall back.
func (c *Controller) HandleSwap(ctx context.Context) (Outcome, error) {
	if _, ok := c.mountElement(); !ok {
		return OutcomeSkipped, nil
	}

	c.logger.Debug("graph container detected, refreshing")

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = StateFetching
	c.mu.Unlock()

	fresh, fetchErr := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("discarding stale refresh", "generation", gen, "current", c.generation)
		return OutcomeStale, nil
	}
	defer func() { c.state = StateIdle }()

	outcome := OutcomeRendered
	var effective core.Snapshot
	switch {
	case fetchErr == nil && !fresh.IsEmpty():
		adopted := fresh.Clone()
		c.fallback = &adopted
		effective = fresh
	default:
		if fetchErr == nil {
			c.logger.Info("empty graph snapshot, using fallback")
		}
		outcome = OutcomeFallback
		if c.fallback != nil {
			effective = c.fallback.Clone()
		}
	}

	// The framework may have replaced the container while we were fetching.
	container, ok := c.mountElement()
	if !ok {
		c.logger.Warn("graph container detached during refresh")
		c.teardown()
		return OutcomeDetached, nil
	}

	c.state = StateRendering
	c.teardown()

	surface, err := c.engine.Mount(ctx, MountOptions{
		Container: container,
		Snapshot:  effective,
		Layout:    c.layout,
		Style:     Stylesheet(),
	})
	if err != nil {
		c.logger.Error("failed to mount graph", "error", err)
		return outcome, fmt.Errorf("mount graph: %w", err)
	}

	surface.On(GestureTap, "node", func(ctx context.Context, ev NodeEvent) {
		c.ActivatePrimary(ctx, ev.Node)
	})
	surface.On(GestureContextTap, "node", func(ctx context.Context, ev NodeEvent) {
		c.ActivateSecondary(ctx, ev.Node)
	})
	c.surface = surface

	c.logger.Debug("graph rendered",
		"outcome", outcome.String(),
		"nodes", len(effective.Nodes),
		"edges", len(effective.Edges))
	return outcome, nil
}

// Close destroys the current surface.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
}

// teardown destroys the current surface. Caller holds mu.
func (c *Controller) teardown() {
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
}

func (c *Controller) mountElement() (Element, bool) {
	el, ok := c.doc.ElementByID(MountID)
	if !ok || el == nil || !el.Attached() {
		return nil, false
	}
	return el, true
}

func (c *Controller) fetch(ctx context.Context) (core.Snapshot, error) {
	s, err := c.fetcher.FetchSnapshot(ctx)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			c.logger.Warn("error fetching graph data", "class", string(fe.Class), "status", fe.Status, "error", fe.Err)
		} else {
			c.logger.Warn("error fetching graph data", "error", err)
		}
		return core.Snapshot{}, err
	}
	return s, nil
}

// ActivatePrimary performs the tap action for a node.
func (c *Controller) ActivatePrimary(ctx context.Context, n core.Node) {
	c.logger.Debug("node clicked", "node_id", n.ID, "kind", n.KindLabel(), "subkind", n.Subkind)
	c.run(ctx, PrimaryAction(n))
}

// ActivateSecondary performs the context-tap action (deletion) for a node.
func (c *Controller) ActivateSecondary(ctx context.Context, n core.Node) {
	c.logger.Debug("node right clicked", "node_id", n.ID)
	c.run(ctx, SecondaryAction(n))
}

func (c *Controller) run(ctx context.Context, a Action) {
	if err := c.dispatcher.Ajax(ctx, a.Request); err != nil {
		c.logger.Error("graph action request failed",
			"method", a.Request.Method,
			"path", a.Request.Path,
			"error", err)
		return
	}
	if a.FollowUp == nil {
		return
	}
	if err := c.dispatcher.Trigger(ctx, a.FollowUp.Selector, a.FollowUp.Event); err != nil {
		c.logger.Error("graph action follow-up failed",
			"selector", a.FollowUp.Selector,
			"event", a.FollowUp.Event,
			"error", err)
	}
}
