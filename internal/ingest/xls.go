package ingest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/extrame/xls"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// xlsWorkbook reads legacy BIFF (.xls) workbooks.
//
// The BIFF reader panics on some malformed streams, so every call into it
// is guarded and reported as an ordinary error.
type xlsWorkbook struct {
	book   *xls.WorkBook
	sheets []string
}

func openXLS(data []byte) (wb *xlsWorkbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%w: %v", ErrCorruptWorkbook, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptWorkbook, err)
	}

	var names []string
	for i := 0; i < book.NumSheets(); i++ {
		if sheet := book.GetSheet(i); sheet != nil {
			names = append(names, sheet.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no sheets found", ErrCorruptWorkbook)
	}
	return &xlsWorkbook{book: book, sheets: names}, nil
}

func (w *xlsWorkbook) SheetNames() []string {
	return w.sheets
}

func (w *xlsWorkbook) ReadSheet(name string) (ds *tabular.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("%w: sheet %q: %v", ErrSheetRead, name, r)
		}
	}()

	var sheet *xls.WorkSheet
	for i := 0; i < w.book.NumSheets(); i++ {
		if s := w.book.GetSheet(i); s != nil && s.Name == name {
			sheet = s
			break
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrSheetRead, name)
	}

	rows := make([][]tabular.Value, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		cells = trimTrailingEmpty(cells)

		values := make([]tabular.Value, len(cells))
		for c, text := range cells {
			values[c] = xlsValue(text)
		}
		rows = append(rows, values)
	}
	return buildSheet(rows), nil
}

func (w *xlsWorkbook) Close() error {
	return nil
}

// xlsNumber matches numbers as the BIFF reader prints them. Leading zeros
// only come from text cells or custom formats, so they stay text.
var xlsNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// xlsValue types a BIFF cell from its text. The reader only exposes
// formatted strings, so booleans and dates are kept as the text shown.
func xlsValue(text string) tabular.Value {
	if xlsNumber.MatchString(text) {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return tabular.Number(text, f)
		}
	}
	return tabular.Text(text)
}

// trimTrailingEmpty drops empty cells past the last value, matching the
// shape of rows returned for OOXML sheets.
func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
