// Package workspace caches the graph of every active user in memory and writes changes
// back to the store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/state"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Store is the persistence the workspace reads from and writes to.
type Store interface {
	LoadGraph(ctx context.Context, userID string) (core.Snapshot, error)
	SaveGraph(ctx context.Context, userID string, snap core.Snapshot) error
}

type entry struct {
	graph *dag.Graph
	dirty bool
}

// Workspace holds per-user graphs. All methods are safe for concurrent use.
type Workspace struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	seed   core.Snapshot
	graphs map[string]*entry
}

// New creates a workspace. A nil store keeps graphs in memory only.
// If logger is nil, a discard logger is used.
func New(store Store, seed core.Snapshot, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		store:  store,
		logger: logger,
		seed:   seed.Clone(),
		graphs: make(map[string]*entry),
	}
}

// SetSeed replaces the graph new users start with. Users already loaded keep theirs.
func (w *Workspace) SetSeed(seed core.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seed = seed.Clone()
}

// Seed returns the graph new users start with.
func (w *Workspace) Seed() core.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seed.Clone()
}

// Snapshot returns a copy of the user's graph.
func (w *Workspace) Snapshot(ctx context.Context, userID string) (core.Snapshot, error) {
	var snap core.Snapshot
	err := w.View(ctx, userID, func(g *dag.Graph) error {
		snap = g.Snapshot()
		return nil
	})
	return snap, err
}

// View runs fn with the user's graph. fn must not keep the graph or modify it.
func (w *Workspace) View(ctx context.Context, userID string, fn func(*dag.Graph) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.load(ctx, userID)
	if err != nil {
		return err
	}
	return fn(e.graph)
}

// Update runs fn with the user's graph and marks it for persistence when fn succeeds.
func (w *Workspace) Update(ctx context.Context, userID string, fn func(*dag.Graph) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(e.graph); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// Users returns the ids of users currently held in memory.
func (w *Workspace) Users() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.graphs))
	for id := range w.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// load returns the cached entry, reading it from the store or the seed on first use.
// Caller holds mu.
func (w *Workspace) load(ctx context.Context, userID string) (*entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if e, ok := w.graphs[userID]; ok {
		return e, nil
	}

	snap, fromStore, err := w.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	g, err := dag.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph for user %s: %w", userID, err)
	}

	e := &entry{graph: g, dirty: !fromStore}
	w.graphs[userID] = e
	w.logger.Debug("user graph loaded",
		"user_id", userID,
		"from_store", fromStore,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	return e, nil
}

func (w *Workspace) fetch(ctx context.Context, userID string) (core.Snapshot, bool, error) {
	if w.store == nil {
		return w.seed.Clone(), false, nil
	}
	snap, err := w.store.LoadGraph(ctx, userID)
	if errors.Is(err, state.ErrNotFound) {
		return w.seed.Clone(), false, nil
	}
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("failed to load graph for user %s: %w", userID, err)
	}
	return snap, true, nil
}

// PersistAll writes every changed graph to the store and returns how many were saved.
func (w *Workspace) PersistAll(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}

	w.mu.Lock()
	pending := make(map[string]core.Snapshot)
	for id, e := range w.graphs {
		if e.dirty {
			pending[id] = e.graph.Snapshot()
			e.dirty = false
		}
	}
	w.mu.Unlock()

	var errs []error
	saved := 0
	for id, snap := range pending {
		if err := w.store.SaveGraph(ctx, id, snap); err != nil {
			errs = append(errs, err)
			w.markDirty(id)
			continue
		}
		saved++
	}
	if saved > 0 {
		w.logger.Info("persisted user graphs", "count", saved)
	}
	return saved, errors.Join(errs...)
}

func (w *Workspace) markDirty(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.graphs[userID]; ok {
		e.dirty = true
	}
}

// Run persists on every tick until ctx is done, then persists one final time.
func (w *Workspace) Run(ctx context.Context, interval time.Duration) error {
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if _, err := w.PersistAll(ctx); err != nil {
					w.logger.Error("periodic persist failed", "error", err)
				}
			}
		}
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := w.PersistAll(shutdownCtx); err != nil {
		return fmt.Errorf("final persist: %w", err)
	}
	return nil
}
