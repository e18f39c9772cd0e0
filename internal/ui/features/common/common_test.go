package common

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

func sample() core.Snapshot {
	return core.Snapshot{
		Nodes: []core.Node{
			{ID: "t1", Name: "Orders", Kind: core.KindTable},
			{ID: "a1", Name: "Big orders", Kind: core.KindAnalysis, Subkind: "filter"},
			{ID: "c2", Name: "Volume", Kind: core.KindChart},
			{ID: "c1", Name: "Revenue", Kind: core.KindChart},
			{ID: "x1", RawKind: "widget"},
		},
	}
}

func TestBuildSidebar(t *testing.T) {
	data := BuildSidebarFromSnapshot(sample())

	require.Len(t, data.Sections, 4)
	assert.Equal(t, 5, data.Total)

	var titles []string
	for _, s := range data.Sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Tables", "Analyses", "Charts", "Widget"}, titles)

	charts := data.Sections[2].Items
	assert.Equal(t, "Revenue", charts[0].Name, "items sorted by name")
	assert.True(t, charts[0].Control)
	assert.Equal(t, "/pages/charts/c1", charts[0].Href)
	assert.Equal(t, "#page-container", charts[0].Target)

	table := data.Sections[0].Items[0]
	assert.False(t, table.Control)
	assert.Equal(t, "/graph/view?node_id=t1&node_kind=table", table.Href)
	assert.Equal(t, "#modal_table", table.Target)

	filter := data.Sections[1].Items[0]
	assert.Equal(t, "#modal_filter", filter.Target)

	unknown := data.Sections[3].Items[0]
	assert.Equal(t, "x1", unknown.Name, "unnamed nodes show their id")
	assert.True(t, unknown.Control)
}

func TestKindTitle(t *testing.T) {
	assert.Equal(t, "Analysis", KindTitle("analysis"))
	assert.Equal(t, "Unknown", KindTitle(""))
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func TestChartsList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ChartsList(BuildSidebarFromSnapshot(sample())).Render(context.Background(), &buf))

	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.NotNil(t, findByID(doc, "charts-list"))
	require.NotNil(t, findByID(doc, "sidebar_chart_c1"))
	require.NotNil(t, findByID(doc, "sidebar_chart_x1"))
	assert.Nil(t, findByID(doc, "sidebar_chart_t1"), "tables open a modal, not a control")

	buf.Reset()
	require.NoError(t, ChartsList(SidebarData{}).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No nodes yet")
}

func TestChartsList_Escapes(t *testing.T) {
	var buf bytes.Buffer
	snap := core.Snapshot{Nodes: []core.Node{{ID: "c1", Name: "<script>", Kind: core.KindChart}}}
	require.NoError(t, ChartsList(BuildSidebarFromSnapshot(snap)).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestShellHasDialogs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Layout("Home", core.Snapshot{}, Shell(SidebarData{}, templ.NopComponent)).Render(context.Background(), &buf))

	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	for _, id := range []string{"page-container", "charts-list", "modal_table", "modal_filter", "modal_analysis", "graph-data"} {
		assert.NotNil(t, findByID(doc, id), id)
	}
	assert.Contains(t, buf.String(), "<title>Home - MyDAT</title>")
}

func TestLayout_EmbedsGraph(t *testing.T) {
	var buf bytes.Buffer
	snap := core.Snapshot{
		Nodes: []core.Node{
			{ID: "t1", Name: "</script><script>alert(1)</script>", Kind: core.KindTable},
			{ID: "a1", Name: "Big orders", Kind: core.KindAnalysis, Subkind: "filter"},
		},
		Edges: []core.Edge{{Source: "t1", Target: "a1"}},
	}
	require.NoError(t, Layout("Home", snap, templ.NopComponent).Render(context.Background(), &buf))

	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	script := findByID(doc, graphview.GraphDataID)
	require.NotNil(t, script)
	require.NotNil(t, script.FirstChild)

	embedded, err := core.DecodeSnapshot([]byte(script.FirstChild.Data))
	require.NoError(t, err)
	assert.Equal(t, snap.ElementIDs(), embedded.ElementIDs())
	assert.Equal(t, "</script><script>alert(1)</script>", embedded.Nodes[0].Name)
	assert.NotContains(t, buf.String(), "<script>alert(1)")
}

func TestChartsList_ModalItemsCarryNoData(t *testing.T) {
	var buf bytes.Buffer
	snap := core.Snapshot{Nodes: []core.Node{
		{ID: "a1", Name: "x", Kind: core.KindAnalysis, Subkind: "');alert(1);//"},
	}}
	require.NoError(t, ChartsList(BuildSidebarFromSnapshot(snap)).Render(context.Background(), &buf))

	doc, err := html.Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	var handlers []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "hx-on") {
				handlers = append(handlers, a.Val)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	assert.Equal(t, []string{"htmx.find(this.getAttribute('hx-target')).showModal()"}, handlers)
}

func TestValidAnalysisSubkind(t *testing.T) {
	for _, ok := range []string{"", "filter", "calculate", "aggregate", "join"} {
		assert.True(t, ValidAnalysisSubkind(ok), ok)
	}
	for _, bad := range []string{"analysis", "table", "pivot", "x');alert(1);//"} {
		assert.False(t, ValidAnalysisSubkind(bad), bad)
	}
}

func TestFilesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FilesTable(nil).Render(context.Background(), &buf))
	assert.True(t, strings.HasPrefix(buf.String(), `<table id="files-table"`))
	assert.Contains(t, buf.String(), "No tables yet")

	buf.Reset()
	tables := []core.Node{
		{ID: "t1", Name: "Orders", Kind: core.KindTable},
		{ID: "t2", Name: "sales", Kind: core.KindTable, Subkind: "uploaded"},
	}
	require.NoError(t, FilesTable(tables).Render(context.Background(), &buf))
	body := buf.String()
	assert.NotContains(t, body, "No tables yet")
	assert.Contains(t, body, `<tr data-node-id="t1"><td>Orders</td><td>Created</td></tr>`)
	assert.Contains(t, body, `<tr data-node-id="t2"><td>sales</td><td>Uploaded</td></tr>`)
}

func TestNewCookieStore_Secure(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{name: "plain http", secure: false},
		{name: "https only", secure: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := UserSession(NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), tt.secure), nil)(
				http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, tt.secure, cookies[0].Secure)
			assert.True(t, cookies[0].HttpOnly)
		})
	}
}

func TestUserSession(t *testing.T) {
	store := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), false)
	var seen []string
	h := UserSession(store, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, id)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "known users keep their cookie")

	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])

	// A cookie signed with another key starts a new user.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionName, Value: "garbage"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Len(t, seen, 3)
	assert.NotEqual(t, seen[0], seen[2])
}

func TestUserFromContext_Missing(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}
