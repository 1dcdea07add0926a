package ingest

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// Workbook is an opened spreadsheet container. Sheets are read lazily.
type Workbook interface {
	// SheetNames lists the sheets in workbook order.
	SheetNames() []string

	// ReadSheet loads one sheet as a dataset. The first non-empty row is
	// the header and fully empty rows are skipped.
	ReadSheet(name string) (*tabular.Dataset, error)

	Close() error
}

// SheetMetadata lists the sheets of a workbook and the one in use.
type SheetMetadata struct {
	Sheets   []string `json:"sheets"`
	Selected string   `json:"selected"`
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// OpenWorkbook opens data as a workbook, choosing the reader from the
// container signature rather than the extension: OOXML is a ZIP archive,
// legacy BIFF workbooks are OLE2 compound files.
func OpenWorkbook(data []byte) (Workbook, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return openXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		return openXLS(data)
	}
	return nil, fmt.Errorf("%w: unrecognized container signature", ErrCorruptWorkbook)
}

// ReadSheet reads the named sheet of wb.
func ReadSheet(wb Workbook, name string) (*tabular.Dataset, error) {
	if !slices.Contains(wb.SheetNames(), name) {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrSheetRead, name)
	}
	return wb.ReadSheet(name)
}

// xlsxWorkbook reads OOXML workbooks.
//
// Cells keep the type stored in the file: strings stay text whatever they
// look like, numbers keep their stored literal, and numbers carrying a date
// format become dates. Display formatting is never parsed back.
type xlsxWorkbook struct {
	file     *excelize.File
	date1904 bool
}

func openXLSX(data []byte) (*xlsxWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptWorkbook, err)
	}
	if len(f.GetSheetList()) == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: no sheets found", ErrCorruptWorkbook)
	}

	wb := &xlsxWorkbook{file: f}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *xlsxWorkbook) ReadSheet(name string) (*tabular.Dataset, error) {
	if !slices.Contains(w.file.GetSheetList(), name) {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrSheetRead, name)
	}
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrSheetRead, name, err)
	}

	reader := sheetReader{wb: w, sheet: name, dateStyles: make(map[int]bool)}
	cells := make([][]tabular.Value, len(rows))
	for r, row := range rows {
		values := make([]tabular.Value, len(row))
		for c, raw := range row {
			v, err := reader.value(c+1, r+1, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: sheet %q: %w", ErrSheetRead, name, err)
			}
			values[c] = v
		}
		cells[r] = values
	}
	return buildSheet(cells), nil
}

func (w *xlsxWorkbook) Close() error {
	return w.file.Close()
}

// sheetReader types the cells of one sheet.
type sheetReader struct {
	wb         *xlsxWorkbook
	sheet      string
	dateStyles map[int]bool
}

// value converts the stored value of the cell at col, row.
func (r *sheetReader) value(col, row int, raw string) (tabular.Value, error) {
	if raw == "" {
		return tabular.Value{Null: true}, nil
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return tabular.Value{}, err
	}
	typ, err := r.wb.file.GetCellType(r.sheet, ref)
	if err != nil {
		return tabular.Value{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return tabular.Bool(raw == "1" || strings.EqualFold(raw, "true")), nil

	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return tabular.Date(t), nil
		}

	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			break
		}
		isDate, err := r.isDateCell(ref)
		if err != nil {
			return tabular.Value{}, err
		}
		if isDate {
			if t, err := excelize.ExcelDateToTime(f, r.wb.date1904); err == nil {
				return tabular.Date(t), nil
			}
		}
		return tabular.Number(raw, f), nil
	}
	return tabular.Text(raw), nil
}

// isDateCell reports whether the number format of ref displays a date or time.
func (r *sheetReader) isDateCell(ref string) (bool, error) {
	styleID, err := r.wb.file.GetCellStyle(r.sheet, ref)
	if err != nil {
		return false, err
	}
	if isDate, ok := r.dateStyles[styleID]; ok {
		return isDate, nil
	}

	isDate := false
	if style, err := r.wb.file.GetStyle(styleID); err == nil && style != nil {
		code := ""
		if style.CustomNumFmt != nil {
			code = *style.CustomNumFmt
		}
		isDate = isDateFormat(style.NumFmt, code)
	}
	r.dateStyles[styleID] = isDate
	return isDate, nil
}

// builtInDateFormats are the predefined number format IDs that show dates
// or times, CJK variants included.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// Pieces of a format code that never denote a date part: quoted literals,
// escaped characters, bracketed colors and locales, fill and padding.
var formatLiterals = regexp.MustCompile(`"[^"]*"|\\.|\[[^\]]*\]|[_*].`)

// isDateFormat reports whether a number format shows a date or time.
func isDateFormat(id int, code string) bool {
	if code == "" {
		return builtInDateFormats[id]
	}
	code = formatLiterals.ReplaceAllString(strings.ToLower(code), "")
	code = strings.ReplaceAll(code, "general", "")
	return strings.ContainsAny(code, "dmyhs")
}

var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildSheet turns typed sheet rows into a dataset. The first non-empty
// row is the header.
func buildSheet(rows [][]tabular.Value) *tabular.Dataset {
	var header []string
	var body [][]tabular.Value
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if header == nil {
			header = make([]string, len(row))
			for i, v := range row {
				header[i] = v.Raw
			}
			continue
		}
		body = append(body, row)
	}
	return tabular.BuildValues(header, body)
}

func isEmptyRow(row []tabular.Value) bool {
	for _, v := range row {
		if !v.Null && strings.TrimSpace(v.Raw) != "" {
			return false
		}
	}
	return true
}
