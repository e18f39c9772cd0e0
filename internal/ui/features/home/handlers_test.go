package home

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/internal/testutil"
	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

func seedGraph() core.Snapshot {
	return core.Snapshot{
		Nodes: []core.Node{
			{ID: "t1", Name: "Orders", Kind: core.KindTable},
			{ID: "a1", Name: "Big orders", Kind: core.KindAnalysis, Subkind: "filter"},
			{ID: "c1", Name: "Revenue", Kind: core.KindChart},
		},
		Edges: []core.Edge{
			{Source: "t1", Target: "a1"},
			{Source: "a1", Target: "c1"},
		},
	}
}

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUser(req.Context(), "u1")))
		})
	})
	ws := workspace.New(nil, seedGraph(), testutil.NewTestLogger(t))
	require.NoError(t, SetupRoutes(r, ws, testutil.NewTestLogger(t)))
	return r
}

func get(r http.Handler, path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func ids(t *testing.T, body string) map[string]bool {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	found := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" {
					found[a.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func TestHomePage(t *testing.T) {
	rec := get(setupRouter(t), "/", false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>Workspace - MyDAT</title>",
		"data-init",
		"/graph/updates",
		"/static/js/graph.js",
		"3 nodes, 2 edges.",
	} {
		assert.Contains(t, body, want)
	}

	found := ids(t, body)
	for _, id := range []string{"page-container", "charts-list", "sidebar_chart_c1", "modal_table", "modal_filter"} {
		assert.True(t, found[id], "page should contain #%s", id)
	}
	assert.False(t, found["graph-container"], "the landing page has no graph")
}

func TestRelationshipsPage(t *testing.T) {
	tests := []struct {
		name      string
		htmx      bool
		wantShell bool
	}{
		{name: "htmx fragment", htmx: true, wantShell: false},
		{name: "direct navigation", htmx: false, wantShell: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(setupRouter(t), "/pages/relationships", tt.htmx)
			require.Equal(t, http.StatusOK, rec.Code)

			found := ids(t, rec.Body.String())
			assert.True(t, found["graph-container"])
			assert.Equal(t, tt.wantShell, found["page-container"])
			assert.Contains(t, rec.Body.String(), `<option value="t1">Orders</option>`)
			assert.True(t, found["files-table"])
			assert.Contains(t, rec.Body.String(), `hx-post="/files/upload"`)
		})
	}
}

func TestRelationshipsPage_ParentsSkipUnknownKinds(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUser(req.Context(), "u1")))
		})
	})
	snap := seedGraph()
	snap.Nodes = append(snap.Nodes, core.Node{ID: "w1", Name: "Gadget", RawKind: "widget"})
	require.NoError(t, SetupRoutes(r, workspace.New(nil, snap, testutil.NewTestLogger(t)), testutil.NewTestLogger(t)))

	body := get(r, "/pages/relationships", true).Body.String()
	assert.Contains(t, body, `<option value="c1">Revenue</option>`)
	assert.NotContains(t, body, `<option value="w1">`)
}

func TestFullPage_EmbedsGraph(t *testing.T) {
	rec := get(setupRouter(t), "/pages/relationships", false)
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := html.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	var data string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == graphview.GraphDataID && n.FirstChild != nil {
					data = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotEmpty(t, data)

	snap, err := core.DecodeSnapshot([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, seedGraph().ElementIDs(), snap.ElementIDs())

	fragment := get(setupRouter(t), "/pages/relationships", true)
	assert.NotContains(t, fragment.Body.String(), graphview.GraphDataID, "fragments carry no graph")
}

func TestChartPage(t *testing.T) {
	r := setupRouter(t)

	rec := get(r, "/pages/charts/c1", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h2>Revenue</h2>")
	assert.Contains(t, rec.Body.String(), "Built from Big orders ← Orders.")

	rec = get(r, "/pages/charts/t1", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not connected to any input.")
	assert.Contains(t, rec.Body.String(), "1 node(s) depend on this one.")

	rec = get(r, "/pages/charts/missing", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPages_RequireUser(t *testing.T) {
	h := NewHandlers(workspace.New(nil, seedGraph(), nil), nil)
	rec := httptest.NewRecorder()
	h.HomePage(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
