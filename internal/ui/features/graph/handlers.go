// Package graph serves the workspace graph to the graph view and applies node actions.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Handlers provides HTTP handlers for the graph feature.
type Handlers struct {
	workspace *workspace.Workspace
	notifier  *notifier.Notifier
	layout    string
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ws *workspace.Workspace, notify *notifier.Notifier, layout string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if layout == "" {
		layout = graphview.DefaultLayout
	}
	return &Handlers{
		workspace: ws,
		notifier:  notify,
		layout:    layout,
		logger:    logger,
	}
}

// StyleConfig is what the browser needs to render the graph.
type StyleConfig struct {
	Layout string                `json:"layout"`
	Style  []graphview.StyleRule `json:"style"`
}

// Snapshot returns the caller's graph as JSON.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	snap, err := h.workspace.Snapshot(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, snap)
}

// Style returns the style sheet and layout used by the graph view.
func (h *Handlers) Style(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, StyleConfig{Layout: h.layout, Style: graphview.Stylesheet()})
}

// View renders the modal content for a node. Nodes without a modal get 204.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	nodeID := strings.TrimSpace(r.URL.Query().Get("node_id"))
	if nodeID == "" {
		http.Error(w, "node_id is required", http.StatusBadRequest)
		return
	}

	var detail NodeDetail
	err := h.workspace.View(r.Context(), userID, func(g *dag.Graph) error {
		n, found := g.GetNode(nodeID)
		if !found {
			return fmt.Errorf("node %q: %w", nodeID, dag.ErrNodeNotFound)
		}
		detail = buildDetail(g, n)
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	switch detail.Node.Kind {
	case core.KindTable, core.KindAnalysis:
	case core.KindChart, core.KindData, core.KindUnknown:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ModalContent(detail).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render modal", "node_id", nodeID, "error", err)
	}
}

// Delete removes a node and everything downstream of it, then returns the sidebar list.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	nodeID := strings.TrimSpace(r.PostForm.Get("node_id"))
	if nodeID == "" {
		http.Error(w, "node_id is required", http.StatusBadRequest)
		return
	}

	var removed int
	var sidebar common.SidebarData
	err := h.workspace.Update(r.Context(), userID, func(g *dag.Graph) error {
		var err error
		if removed, err = g.DeleteCascade(nodeID); err != nil {
			return err
		}
		sidebar = common.BuildSidebar(g)
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("node deleted", "user_id", userID, "node_id", nodeID, "removed", removed)
	h.notifier.Broadcast(userID)
	h.writeSidebar(w, r, sidebar)
}

// Create adds a node, optionally below a parent, then returns the sidebar list.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.PostForm.Get("name"))
	kind, known := core.ParseKind(r.PostForm.Get("kind"))
	if name == "" || !known {
		http.Error(w, "name and a known kind are required", http.StatusBadRequest)
		return
	}
	subkind := strings.ToLower(strings.TrimSpace(r.PostForm.Get("subkind")))
	if kind == core.KindAnalysis && !common.ValidAnalysisSubkind(subkind) {
		http.Error(w, fmt.Sprintf("unknown analysis %q", subkind), http.StatusBadRequest)
		return
	}
	node := core.Node{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    kind,
		Subkind: subkind,
	}
	parentID := strings.TrimSpace(r.PostForm.Get("parent_id"))

	var sidebar common.SidebarData
	err := h.workspace.Update(r.Context(), userID, func(g *dag.Graph) error {
		if parentID != "" {
			if _, found := g.GetNode(parentID); !found {
				return fmt.Errorf("parent %q: %w", parentID, dag.ErrNodeNotFound)
			}
		}
		g.AddNode(node)
		if parentID != "" {
			if err := g.AddEdge(parentID, node.ID); err != nil {
				return err
			}
		}
		sidebar = common.BuildSidebar(g)
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("node created", "user_id", userID, "node_id", node.ID, "kind", node.Kind)
	h.notifier.Broadcast(userID)
	h.writeSidebar(w, r, sidebar)
}

// Updates is the long-lived SSE endpoint. It patches the sidebar list whenever the
// caller's graph changes. The initial state is already part of the page.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(userID)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			var sidebar common.SidebarData
			err := h.workspace.View(ctx, userID, func(g *dag.Graph) error {
				sidebar = common.BuildSidebar(g)
				return nil
			})
			if err == nil {
				err = sse.PatchElementTempl(common.ChartsList(sidebar))
			}
			if err != nil {
				_ = sse.ConsoleError(err)
				// Keep listening, the next change may succeed
			}
		}
	}
}

func (h *Handlers) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := common.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no user session", http.StatusUnauthorized)
	}
	return userID, ok
}

func (h *Handlers) writeSidebar(w http.ResponseWriter, r *http.Request, sidebar common.SidebarData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := common.ChartsList(sidebar).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render sidebar", "error", err)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, dag.ErrNodeNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.logger.Error("graph request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
