package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// writeCSV writes the header and every row as comma-separated UTF-8 with a
// leading BOM. Nulls are written as empty fields.
func writeCSV(ds *tabular.Dataset) ([]byte, error) {
	if err := checkFinite(ds); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	bom := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(bom)

	if err := w.Write(ds.ColumnNames()); err != nil {
		return nil, fmt.Errorf("%w: write header: %w", ErrSerialization, err)
	}
	if err := w.WriteAll(ds.Records()); err != nil {
		return nil, fmt.Errorf("%w: write rows: %w", ErrSerialization, err)
	}
	if err := bom.Close(); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// checkFinite rejects numeric cells holding NaN or an infinity.
func checkFinite(ds *tabular.Dataset) error {
	for _, col := range ds.Columns {
		for r, v := range col.Values {
			if !v.Null && v.Kind == tabular.TypeNumber && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
				return fmt.Errorf("%w: column %q row %d: non-finite number", ErrSerialization, col.Name, r+1)
			}
		}
	}
	return nil
}
