package home

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Handlers provides HTTP handlers for the home feature.
type Handlers struct {
	workspace *workspace.Workspace
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ws *workspace.Workspace, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{workspace: ws, logger: logger}
}

// HomePage renders the full page with the workspace summary.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Workspace", func(g *dag.Graph) (templ.Component, error) {
		return Welcome(buildStats(g)), nil
	})
}

// RelationshipsPage renders the page holding the graph view.
func (h *Handlers) RelationshipsPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Relationships", func(g *dag.Graph) (templ.Component, error) {
		return Relationships(RelationshipsData{
			Parents: parentOptions(g),
			Tables:  g.NodesByKind(core.KindTable, ""),
		}), nil
	})
}

// ChartPage renders the page a sidebar control opens.
func (h *Handlers) ChartPage(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	h.render(w, r, "Chart", func(g *dag.Graph) (templ.Component, error) {
		n, ok := g.GetNode(nodeID)
		if !ok {
			return nil, fmt.Errorf("node %q: %w", nodeID, dag.ErrNodeNotFound)
		}
		return Chart(buildChart(g, n)), nil
	})
}

// render writes content alone for htmx requests and inside the full page otherwise.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, title string, build func(*dag.Graph) (templ.Component, error)) {
	userID, ok := common.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no user session", http.StatusUnauthorized)
		return
	}

	var content templ.Component
	var snap core.Snapshot
	err := h.workspace.View(r.Context(), userID, func(g *dag.Graph) error {
		var err error
		if content, err = build(g); err != nil {
			return err
		}
		snap = g.Snapshot()
		return nil
	})
	if errors.Is(err, dag.ErrNodeNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to build page", "title", title, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := content
	if r.Header.Get("HX-Request") != "true" {
		page = common.Layout(title, snap, common.Shell(common.BuildSidebarFromSnapshot(snap), content))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "title", title, "error", err)
	}
}

func buildStats(g *dag.Graph) WorkspaceStats {
	snap := g.Snapshot()
	counts := make(map[string]int)
	for _, n := range snap.Nodes {
		counts[n.KindLabel()]++
	}
	stats := WorkspaceStats{Nodes: len(snap.Nodes), Edges: len(snap.Edges)}
	for kind, c := range counts {
		stats.ByKind = append(stats.ByKind, KindCount{Kind: kind, Count: c})
	}
	sort.Slice(stats.ByKind, func(i, j int) bool {
		return stats.ByKind[i].Kind < stats.ByKind[j].Kind
	})
	return stats
}

// parentOptions offers every node of a known kind, grouped by kind.
func parentOptions(g *dag.Graph) []ParentOption {
	var opts []ParentOption
	for _, kind := range core.Kinds {
		for _, n := range g.NodesByKind(kind, "") {
			opts = append(opts, ParentOption{ID: n.ID, Name: common.DisplayName(n)})
		}
	}
	return opts
}

// buildChart walks up the first parent of every node to show where a chart's data comes from.
func buildChart(g *dag.Graph, n core.Node) ChartData {
	c := ChartData{
		ID:       n.ID,
		Name:     common.DisplayName(n),
		Kind:     n.KindLabel(),
		Children: len(g.GetChildren(n.ID)),
	}
	seen := map[string]bool{n.ID: true}
	for cur := n.ID; ; {
		parents := g.GetParents(cur)
		if len(parents) == 0 || seen[parents[0]] {
			break
		}
		cur = parents[0]
		seen[cur] = true
		if p, ok := g.GetNode(cur); ok {
			c.Lineage = append(c.Lineage, common.DisplayName(p))
		}
	}
	return c
}
