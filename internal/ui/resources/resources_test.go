//go:build !dev

package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mydat/internal/graphview"
)

func TestHandler_ServesEmbeddedAssets(t *testing.T) {
	h := Handler(nil)

	for _, asset := range []string{GraphScript, Stylesheet} {
		t.Run(asset, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StaticPath(asset), nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotEmpty(t, rec.Body.String())
			assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraphScriptUsesBackendPaths(t *testing.T) {
	b, err := staticFS.ReadFile("static/" + GraphScript)
	require.NoError(t, err)
	for _, want := range []string{`"/graph/"`, `"/graph/style"`, `"/graph/view"`, `"/graph/delete"`, "graph-container", "htmx:afterSwap"} {
		assert.Contains(t, string(b), want)
	}
}

func TestGraphScriptSurvivesBackendFailures(t *testing.T) {
	b, err := staticFS.ReadFile("static/" + GraphScript)
	require.NoError(t, err)
	script := string(b)

	assert.Contains(t, script, `"`+graphview.GraphDataID+`"`, "fallback is seeded from the embedded graph")
	assert.Contains(t, script, "DEFAULT_STYLE", "a failed style fetch still renders")
	assert.Contains(t, script, `console.warn("style fetch failed", resp.status)`)
	assert.Contains(t, script, `.catch((err) => console.error("graph refresh failed", err))`)
	assert.NotContains(t, script, "styleConfig = await resp.json()", "only a checked style is cached")
}
