package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mydat/internal/config"
	"github.com/leapstack-labs/mydat/internal/seed"
	"github.com/leapstack-labs/mydat/internal/state"
	"github.com/leapstack-labs/mydat/internal/ui"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

func sampleGraph() core.Snapshot {
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

// testConfig returns the defaults with a store under a fresh temp dir.
func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	cfg := ConfigFromContext(context.Background())
	cfg.Store.Path = filepath.Join(t.TempDir(), "nested", "mydat.db")
	cfg.Output = mode
	return cfg
}

func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(WithConfig(context.Background(), cfg))
	return out.String(), err
}

func storeGraph(t *testing.T, cfg *config.Config, userID string, snap core.Snapshot) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Store.Path), 0750))
	st, err := state.Open(ctx, state.Config{Driver: state.DriverSQLite, Path: cfg.Store.Path}, nil)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.SaveGraph(ctx, userID, snap))
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewServeCommand(), use: "serve", flags: []string{"open"}},
		{cmd: NewBrowseCommand(), use: "browse", flags: []string{"page", "tap", "delete"}},
		{cmd: NewGraphCommand(), use: "graph [user-id]", flags: []string{"export"}},
		{cmd: NewMigrateCommand(), use: "migrate"},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestConfigFromContext_Defaults(t *testing.T) {
	cfg := ConfigFromContext(context.Background())
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultStorePath, cfg.Store.Path)

	custom := &config.Config{Output: "json"}
	assert.Same(t, custom, ConfigFromContext(WithConfig(context.Background(), custom)))
}

func TestMigrate(t *testing.T) {
	cfg := testConfig(t, "json")

	out, err := execute(t, NewMigrateCommand(), cfg)
	require.NoError(t, err)

	var got struct {
		Driver  string `json:"driver"`
		Version int64  `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sqlite", got.Driver)
	assert.Equal(t, int64(1), got.Version)
	assert.FileExists(t, cfg.Store.Path)
}

func TestMigrate_Markdown(t *testing.T) {
	cfg := testConfig(t, "markdown")

	out, err := execute(t, NewMigrateCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "# Migrations")
	assert.Contains(t, out, "- **Version:** 1")
}

func TestGraph_ListUsers(t *testing.T) {
	cfg := testConfig(t, "json")
	storeGraph(t, cfg, "u1", sampleGraph())

	out, err := execute(t, NewGraphCommand(), cfg)
	require.NoError(t, err)

	var users []userRow
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].UserID)
	assert.Equal(t, 3, users[0].Nodes)
	assert.Equal(t, 2, users[0].Edges)
}

func TestGraph_ListUsersEmpty(t *testing.T) {
	cfg := testConfig(t, "markdown")

	out, err := execute(t, NewGraphCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "# Users")
	assert.Contains(t, out, "No graphs stored yet.")
}

func TestGraph_ShowUser(t *testing.T) {
	cfg := testConfig(t, "json")
	storeGraph(t, cfg, "u1", sampleGraph())

	out, err := execute(t, NewGraphCommand(), cfg, "u1")
	require.NoError(t, err)

	var view graphView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "u1", view.UserID)
	assert.Equal(t, []nodeRow{
		{ID: "t1", Name: "Orders", Kind: "table", Parents: []string{}, Downstream: 2},
		{ID: "a1", Name: "Big orders", Kind: "analysis", Subkind: "filter", Parents: []string{"t1"}, Downstream: 1},
		{ID: "c1", Name: "Revenue", Kind: "chart", Parents: []string{"a1"}, Downstream: 0},
	}, view.Nodes)
	assert.Equal(t, []edgeRow{
		{ID: "t1->a1", Source: "t1", Target: "a1"},
		{ID: "a1->c1", Source: "a1", Target: "c1"},
	}, view.Edges)
}

func TestGraph_ShowUserMarkdown(t *testing.T) {
	cfg := testConfig(t, "markdown")
	storeGraph(t, cfg, "u1", sampleGraph())

	out, err := execute(t, NewGraphCommand(), cfg, "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "# Graph of u1")
	assert.Contains(t, out, "Big orders")
	assert.Contains(t, out, "- **Total Nodes:** 3")
	assert.Contains(t, out, "- **Total Edges:** 2")
}

func TestGraph_Export(t *testing.T) {
	cfg := testConfig(t, "markdown")
	storeGraph(t, cfg, "u1", sampleGraph())

	out, err := execute(t, NewGraphCommand(), cfg, "u1", "--export")
	require.NoError(t, err)

	snap, err := seed.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, sampleGraph().ElementIDs(), snap.ElementIDs())
}

func TestGraph_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "unknown user", args: []string{"nobody"}, errMsg: "no graph stored for user nobody"},
		{name: "export without user", args: []string{"--export"}, errMsg: "--export needs a user id"},
		{name: "too many args", args: []string{"a", "b"}, errMsg: "accepts at most 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewGraphCommand(), testConfig(t, "json"), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func startUI(t *testing.T) string {
	t.Helper()
	srv := ui.NewServer(ui.Config{Workspace: workspace.New(nil, sampleGraph(), nil)})
	h, err := srv.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestBrowse_TapAndDelete(t *testing.T) {
	cfg := testConfig(t, "json")
	cfg.Client.BaseURL = startUI(t)

	out, err := execute(t, NewBrowseCommand(), cfg, "--tap", "t1", "--tap", "c1", "--delete", "a1")
	require.NoError(t, err)

	var res browseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	assert.Equal(t, "/pages/relationships", res.Page)
	assert.Equal(t, "rendered", res.Outcome)
	assert.Empty(t, res.Error)

	require.Len(t, res.Actions, 3)
	assert.Equal(t, "#modal_table", res.Actions[0].Selector)
	assert.Equal(t, "showModal", res.Actions[0].Event)
	assert.Contains(t, res.Actions[0].Content, "Orders")

	assert.Equal(t, browseAction{Gesture: "tap", NodeID: "c1", Selector: "#sidebar_chart_c1", Event: "click"}, res.Actions[1])
	assert.Equal(t, browseAction{Gesture: "cxttap", NodeID: "a1"}, res.Actions[2])

	// Deleting the analysis takes the chart with it.
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "t1", res.Nodes[0].ID)
	assert.Empty(t, res.Edges)
}

func TestBrowse_Markdown(t *testing.T) {
	cfg := testConfig(t, "markdown")
	cfg.Client.BaseURL = startUI(t)

	out, err := execute(t, NewBrowseCommand(), cfg, "--tap", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "# Graph")
	assert.Contains(t, out, "- **Outcome:** rendered")
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "### tap a1 -> showModal #modal_filter")
}

func TestBrowse_UnknownNode(t *testing.T) {
	cfg := testConfig(t, "json")
	cfg.Client.BaseURL = startUI(t)

	_, err := execute(t, NewBrowseCommand(), cfg, "--tap", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestBrowse_PageWithoutGraph(t *testing.T) {
	cfg := testConfig(t, "json")
	cfg.Client.BaseURL = startUI(t)

	out, err := execute(t, NewBrowseCommand(), cfg, "--page", "/")
	require.NoError(t, err)

	var res browseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Nodes)
	assert.Equal(t, "skipped", res.Outcome)

	_, err = execute(t, NewBrowseCommand(), cfg, "--page", "/", "--tap", "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no graph is rendered")
}
