package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{mode: ModeAuto, want: ModeMarkdown},
		{mode: "", want: ModeMarkdown},
		{mode: ModeText, want: ModeText},
		{mode: ModeJSON, want: ModeJSON},
		{mode: ModeMarkdown, want: ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_Streams(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Success("saved")
	r.Muted("2 users")
	r.Warning("store is empty")
	r.Error("boom")

	assert.Equal(t, "saved\n2 users\n", out.String(), "non-terminal output carries no escape codes")
	assert.Equal(t, "Warning: store is empty\nError: boom\n", errOut.String())
}

func TestRenderer_Header(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, &out, ModeMarkdown).Header(2, "Users")
	assert.Equal(t, "## Users\n\n", out.String())

	out.Reset()
	NewRenderer(&out, &out, ModeText).Header(1, "Users")
	assert.Equal(t, "Users\n\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeMarkdown)
	r.Table([]string{"ID", "Kind"}, [][]string{{"t1", "table"}})
	assert.Contains(t, out.String(), "| ID | Kind |")
	assert.Contains(t, out.String(), "| t1 | table |")

	out.Reset()
	r = NewRenderer(&out, &out, ModeText)
	r.Table([]string{"ID"}, [][]string{{"t1"}})
	assert.Contains(t, out.String(), "│ t1 │")
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"nodes": 2}))
	assert.Equal(t, "{\n  \"nodes\": 2\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Graph", FormatHeader(0, "Graph"))
	assert.Equal(t, "### Graph", FormatHeader(3, "Graph"))
	assert.Equal(t, "- **Nodes:** 3", FormatKeyValue("Nodes", "3"))
}
