package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sansdoublons/internal/core"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	out := renderString(t, ErrorAlert("Bad <file>", "", "FILE003"))

	assert.Contains(t, out, "Bad &lt;file&gt;")
	assert.Contains(t, out, "Code: FILE003")
	assert.NotContains(t, out, "alert-action")
}

func TestPreviewTable_EscapesCells(t *testing.T) {
	p := &core.Preview{
		Columns:   []string{"name"},
		Rows:      [][]string{{`<script>alert("x")</script>`}, {""}},
		Total:     10,
		Truncated: true,
	}

	out := renderString(t, PreviewTable("Loaded data", p))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `<td class="null"></td>`)
	assert.Contains(t, out, "Showing 2 of 10 rows.")
}

func TestSessionView_Sections(t *testing.T) {
	snap := &core.Snapshot{
		ID:       "abc",
		FileName: "people.csv",
		Family:   "delimited",
		Columns:  []core.ColumnInfo{{Name: "id"}, {Name: "name"}},
		Rows:     3,
		Result: &core.ResultInfo{
			All:          false,
			Columns:      []string{"id"},
			Keep:         "last",
			RowsBefore:   3,
			RowsAfter:    2,
			Removed:      1,
			DownloadName: "people_sans_doublons.csv",
			Preview:      &core.Preview{Columns: []string{"id", "name"}},
			RemovedRows:  []core.RemovedRow{{Line: 1, Values: []string{"1", "Ann"}}},
		},
	}
	opts := Options{Keep: []Choice{{Value: "first", Label: "first"}, {Value: "last", Label: "last"}}}

	out := renderString(t, SessionView(snap, opts))

	assert.Contains(t, out, `hx-post="/api/sessions/abc/dedup"`)
	assert.Contains(t, out, `value="columns" checked`)
	assert.Contains(t, out, `value="id" checked`)
	assert.NotContains(t, out, `value="name" checked`)
	assert.Contains(t, out, `<option value="last" selected>`)
	assert.Contains(t, out, `href="/api/sessions/abc/download"`)
	assert.Contains(t, out, "Removed rows")
	assert.NotContains(t, out, `name="sheet"`)
	assert.NotContains(t, out, `name="encoding"`)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "50 MB", formatBytes(50<<20))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "12 bytes", formatBytes(12))
}
