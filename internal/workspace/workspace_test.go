package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/state"
	"github.com/leapstack-labs/mydat/internal/testutil"
	"github.com/leapstack-labs/mydat/pkg/core"
)

type memStore struct {
	mu      sync.Mutex
	graphs  map[string]core.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{graphs: make(map[string]core.Snapshot)}
}

func (m *memStore) LoadGraph(_ context.Context, userID string) (core.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return core.Snapshot{}, m.loadErr
	}
	s, ok := m.graphs[userID]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("%w: %s", state.ErrNotFound, userID)
	}
	return s.Clone(), nil
}

func (m *memStore) SaveGraph(_ context.Context, userID string, snap core.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.graphs[userID] = snap.Clone()
	return nil
}

func seedGraph() core.Snapshot {
	return core.Snapshot{
		Nodes: []core.Node{
			{ID: "t1", Name: "Orders", Kind: core.KindTable},
			{ID: "a1", Name: "Filter", Kind: core.KindAnalysis, Subkind: "filter"},
		},
		Edges: []core.Edge{{Source: "t1", Target: "a1"}},
	}
}

func TestWorkspace_NewUserStartsFromSeed(t *testing.T) {
	store := newMemStore()
	w := New(store, seedGraph(), testutil.NewTestLogger(t))

	snap, err := w.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, seedGraph().ElementIDs(), snap.ElementIDs())

	saved, err := w.PersistAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved, "seeded users are persisted")
	assert.Contains(t, store.graphs, "u1")
}

func TestWorkspace_LoadsFromStore(t *testing.T) {
	store := newMemStore()
	store.graphs["u1"] = core.Snapshot{Nodes: []core.Node{{ID: "c1", Kind: core.KindChart}}}
	w := New(store, seedGraph(), nil)

	snap, err := w.Snapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, snap.ElementIDs())

	saved, err := w.PersistAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, saved, "unchanged graphs are not written")
}

func TestWorkspace_UpdateMarksDirty(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	w := New(store, seedGraph(), nil)

	require.NoError(t, w.Update(ctx, "u1", func(g *dag.Graph) error {
		_, err := g.DeleteCascade("a1")
		return err
	}))
	_, err := w.PersistAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, store.graphs["u1"].ElementIDs())

	err = w.Update(ctx, "u1", func(g *dag.Graph) error {
		_, err := g.DeleteCascade("missing")
		return err
	})
	assert.ErrorIs(t, err, dag.ErrNodeNotFound)

	saved, err := w.PersistAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, saved, "failed updates do not mark the graph dirty")
}

func TestWorkspace_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	w := New(nil, seedGraph(), nil)

	require.NoError(t, w.Update(ctx, "u1", func(g *dag.Graph) error {
		_, err := g.DeleteCascade("t1")
		return err
	}))

	u1, err := w.Snapshot(ctx, "u1")
	require.NoError(t, err)
	u2, err := w.Snapshot(ctx, "u2")
	require.NoError(t, err)

	assert.True(t, u1.IsEmpty())
	assert.Equal(t, seedGraph().ElementIDs(), u2.ElementIDs())
	assert.Equal(t, []string{"u1", "u2"}, w.Users())
	assert.Equal(t, seedGraph().ElementIDs(), w.Seed().ElementIDs(), "seed is never mutated")
}

func TestWorkspace_SetSeed(t *testing.T) {
	ctx := context.Background()
	w := New(nil, seedGraph(), nil)

	_, err := w.Snapshot(ctx, "early")
	require.NoError(t, err)

	w.SetSeed(core.Snapshot{Nodes: []core.Node{{ID: "n1"}}})
	late, err := w.Snapshot(ctx, "late")
	require.NoError(t, err)
	early, err := w.Snapshot(ctx, "early")
	require.NoError(t, err)

	assert.Equal(t, []string{"n1"}, late.ElementIDs())
	assert.Equal(t, seedGraph().ElementIDs(), early.ElementIDs())
}

func TestWorkspace_Errors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.loadErr = errors.New("disk on fire")
	w := New(store, seedGraph(), nil)

	_, err := w.Snapshot(ctx, "u1")
	assert.ErrorContains(t, err, "disk on fire")

	_, err = w.Snapshot(ctx, "")
	assert.Error(t, err)
}

func TestWorkspace_PersistFailureRetries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	w := New(store, seedGraph(), nil)
	_, err := w.Snapshot(ctx, "u1")
	require.NoError(t, err)

	store.saveErr = errors.New("read only")
	_, err = w.PersistAll(ctx)
	require.Error(t, err)

	store.saveErr = nil
	saved, err := w.PersistAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}

func TestWorkspace_RunPersistsOnShutdown(t *testing.T) {
	store := newMemStore()
	w := New(store, seedGraph(), nil)
	_, err := w.Snapshot(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.saves)
}

func TestWorkspace_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	st, err := state.Open(ctx, state.Config{Driver: state.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(ctx))

	w := New(st, seedGraph(), nil)
	require.NoError(t, w.Update(ctx, "u1", func(g *dag.Graph) error {
		g.AddNode(core.Node{ID: "c1", Name: "Revenue", Kind: core.KindChart})
		return g.AddEdge("a1", "c1")
	}))
	_, err = w.PersistAll(ctx)
	require.NoError(t, err)

	// A fresh workspace sees the persisted graph, not the seed.
	again := New(st, core.Snapshot{}, nil)
	snap, err := again.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a1->c1", "c1", "t1", "t1->a1"}, snap.ElementIDs())
}
