package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// Built-in number formats.
const (
	numFmtDate     = 14 // m/d/yy
	numFmtDateTime = 22 // m/d/yy h:mm
)

// SheetName returns the output sheet name for hint: at most 31 runes,
// DefaultSheetName when the hint is blank.
func SheetName(hint string) string {
	name := strings.TrimSpace(hint)
	if name == "" {
		return DefaultSheetName
	}
	if utf8.RuneCountInString(name) > excelize.MaxSheetNameLength {
		name = string([]rune(name)[:excelize.MaxSheetNameLength])
	}
	return name
}

// writeXLSX streams ds into a single-sheet workbook.
func writeXLSX(ds *tabular.Dataset, sheetNameHint string) ([]byte, error) {
	if err := checkFinite(ds); err != nil {
		return nil, err
	}
	if ds.RowCount()+1 > excelize.TotalRows {
		return nil, fmt.Errorf("%w: %d rows exceed the sheet limit", ErrSerialization, ds.RowCount())
	}
	if len(ds.Columns) > excelize.MaxColumns {
		return nil, fmt.Errorf("%w: %d columns exceed the sheet limit", ErrSerialization, len(ds.Columns))
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(sheetNameHint)
	if err := f.SetSheetName(DefaultSheetName, sheet); err != nil {
		return nil, fmt.Errorf("%w: sheet name %q: %w", ErrSerialization, sheet, err)
	}
	// Renaming is case-insensitive, so "sheet1" leaves the default in place.
	sheet = f.GetSheetName(f.GetActiveSheetIndex())

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDate})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	dateTimeStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDateTime})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	header := make([]interface{}, len(ds.Columns))
	for c, name := range ds.ColumnNames() {
		if err := checkText(name); err != nil {
			return nil, fmt.Errorf("%w: header %d: %w", ErrSerialization, c+1, err)
		}
		header[c] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrSerialization, err)
	}

	for r := 0; r < ds.RowCount(); r++ {
		row := make([]interface{}, len(ds.Columns))
		for c := range ds.Columns {
			col := &ds.Columns[c]
			cell, err := cellValue(col.Values[r], dateStyle, dateTimeStyle)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q row %d: %w", ErrSerialization, col.Name, r+1, err)
			}
			row[c] = cell
		}

		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		if err := sw.SetRow(ref, row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrSerialization, r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// cellValue converts one value to what the stream writer expects.
// Integer literals are written with all their digits; ones beyond int64
// are written as text.
func cellValue(v tabular.Value, dateStyle, dateTimeStyle int) (interface{}, error) {
	if v.Null {
		return nil, nil
	}

	switch v.Kind {
	case tabular.TypeNumber:
		if !tabular.IsIntegerLiteral(v.Raw) {
			return v.Num, nil
		}
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, nil
		}
	case tabular.TypeBool:
		return v.Bool, nil
	case tabular.TypeDate:
		if !v.Time.IsZero() {
			style := dateStyle
			if hasClock(v.Time) {
				style = dateTimeStyle
			}
			return excelize.Cell{StyleID: style, Value: v.Time}, nil
		}
	}

	if err := checkText(v.Raw); err != nil {
		return nil, err
	}
	return v.Raw, nil
}

func checkText(s string) error {
	if n := utf8.RuneCountInString(s); n > excelize.TotalCellChars {
		return fmt.Errorf("text of %d characters exceeds the %d cell limit", n, excelize.TotalCellChars)
	}
	return nil
}

func hasClock(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
}
