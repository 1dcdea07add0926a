package core

import (
	"github.com/JonMunkholm/sansdoublons/internal/dedup"
	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// DefaultPreviewRows is used when no preview size is configured.
const DefaultPreviewRows = 50

// Preview is the top of a dataset rendered as text.
type Preview struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
	Truncated bool       `json:"truncated"`
}

// NewPreview renders at most maxRows rows of ds. A non-positive maxRows
// means DefaultPreviewRows.
func NewPreview(ds *tabular.Dataset, maxRows int) *Preview {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	total := ds.RowCount()
	return &Preview{
		Columns:   ds.ColumnNames(),
		Rows:      ds.Head(maxRows).Records(),
		Total:     total,
		Truncated: total > maxRows,
	}
}

// RemovedRow is one row dropped by deduplication.
// Line is the 1-based data row number in the loaded dataset.
type RemovedRow struct {
	Line   int      `json:"line"`
	Values []string `json:"values"`
}

// RemovedSample lists up to limit rows that res dropped from ds.
func RemovedSample(ds *tabular.Dataset, res *dedup.Result, limit int) []RemovedRow {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	dropped := res.Dropped()
	if len(dropped) > limit {
		dropped = dropped[:limit]
	}

	out := make([]RemovedRow, len(dropped))
	for i, r := range dropped {
		values := make([]string, len(ds.Columns))
		for c := range ds.Columns {
			values[c] = ds.Columns[c].Values[r].Raw
		}
		out[i] = RemovedRow{Line: r + 1, Values: values}
	}
	return out
}
