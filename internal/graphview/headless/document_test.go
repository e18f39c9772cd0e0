package headless

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mydat/internal/graphview"
)

func TestDocument_InnerSwapIndexesAndDetaches(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()

	var swapped []string
	doc.OnAfterSwap(func(_ context.Context, target string) { swapped = append(swapped, target) })

	require.NoError(t, doc.Swap(ctx, "#body", graphview.SwapInner,
		`<main id="page-container"><div id="graph-container"></div></main><ul id="charts-list"></ul>`))

	first, ok := doc.ElementByID("graph-container")
	require.True(t, ok)
	assert.True(t, first.Attached())

	require.NoError(t, doc.Swap(ctx, "#page-container", graphview.SwapInner, `<div id="graph-container"></div>`))

	second, ok := doc.ElementByID("graph-container")
	require.True(t, ok)
	assert.False(t, first.Attached(), "replaced element is detached")
	assert.True(t, second.Attached())

	_, ok = doc.ElementByID("charts-list")
	assert.True(t, ok, "siblings survive")
	assert.Equal(t, []string{"body", "page-container"}, swapped)
}

func TestDocument_InnerSwapRemovesDescendants(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	require.NoError(t, doc.Swap(ctx, "#body", graphview.SwapInner,
		`<div id="page-container"><section id="outer"><div id="graph-container"></div></section></div>`))

	require.NoError(t, doc.Swap(ctx, "#page-container", graphview.SwapInner, `<p>charts</p>`))

	_, ok := doc.ElementByID("graph-container")
	assert.False(t, ok)
	_, ok = doc.ElementByID("outer")
	assert.False(t, ok)
	html, _ := doc.HTML("page-container")
	assert.Equal(t, "<p>charts</p>", html)
}

func TestDocument_OuterSwap(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	require.NoError(t, doc.Swap(ctx, "#body", graphview.SwapInner,
		`<aside id="sidebar"><ul id="charts-list"><li id="sidebar_chart_c1">Revenue</li></ul></aside>`))

	old, _ := doc.ElementByID("charts-list")
	require.NoError(t, doc.Swap(ctx, "#charts-list", graphview.SwapOuter, `<ul id="charts-list"></ul>`))

	assert.False(t, old.Attached())
	_, ok := doc.ElementByID("sidebar_chart_c1")
	assert.False(t, ok)
	html, ok := doc.HTML("charts-list")
	require.True(t, ok)
	assert.Equal(t, `<ul id="charts-list"></ul>`, html)
}

func TestDocument_SwapNoneFiresNothing(t *testing.T) {
	doc := NewDocument()
	fired := false
	doc.OnAfterSwap(func(context.Context, string) { fired = true })

	require.NoError(t, doc.Swap(context.Background(), "#body", graphview.SwapNone, "<p>x</p>"))
	assert.False(t, fired)
}

func TestDocument_Errors(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()

	assert.ErrorIs(t, doc.Swap(ctx, "#missing", graphview.SwapInner, ""), ErrNoElement)
	assert.ErrorIs(t, doc.Trigger(ctx, "#missing", "click"), ErrNoElement)
	assert.Error(t, doc.Swap(ctx, ".class", graphview.SwapInner, ""))
	assert.Error(t, doc.Swap(ctx, "#body", graphview.SwapMode("beforeend"), ""))
}

func TestDocument_TriggerShowModal(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	require.NoError(t, doc.Swap(ctx, "#body", graphview.SwapInner, `<dialog id="modal_table"></dialog>`))

	require.NoError(t, doc.Trigger(ctx, "#modal_table", "showModal"))
	assert.True(t, doc.IsOpen("modal_table"))
	assert.Equal(t, []Triggered{{Selector: "#modal_table", Event: "showModal"}}, doc.Triggered())

	require.NoError(t, doc.Swap(ctx, "#modal_table", graphview.SwapInner, "<h3>Orders</h3>"))
	assert.False(t, doc.IsOpen("modal_table"))
}
