// Package ingest turns an uploaded file into a tabular dataset.
//
// The file family comes from the extension. Spreadsheets are opened as a
// Workbook whose sheets are read on demand; delimited text is decoded and
// split by trying a fixed, ordered list of encodings and delimiters until
// one parses (see ReadText). Reread lets the caller force one combination
// when the automatic choice is visibly wrong.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// extensions maps recognized lowercase file extensions to their family.
var extensions = map[string]tabular.Family{
	".xlsx": tabular.FamilySpreadsheet,
	".xls":  tabular.FamilySpreadsheet,
	".csv":  tabular.FamilyDelimited,
}

// Extensions returns the recognized extensions, spreadsheet first.
func Extensions() []string {
	return []string{".xlsx", ".xls", ".csv"}
}

// DetectFamily classifies filename by extension, case-insensitively.
func DetectFamily(filename string) (tabular.Family, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	family, ok := extensions[ext]
	if !ok {
		if ext == "" {
			return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, filename)
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return family, nil
}

// Result is the outcome of ingesting one file.
//
// For FamilyDelimited, Dataset and Text are set. For FamilySpreadsheet,
// Workbook and Sheets are set and Dataset stays nil until the caller reads
// a sheet.
type Result struct {
	Family   tabular.Family
	Dataset  *tabular.Dataset
	Text     *TextMetadata
	Workbook Workbook
	Sheets   *SheetMetadata
}

// Ingest reads an uploaded file. data must hold the whole file.
func Ingest(data []byte, filename string) (*Result, error) {
	family, err := DetectFamily(filename)
	if err != nil {
		return nil, err
	}

	switch family {
	case tabular.FamilySpreadsheet:
		wb, err := OpenWorkbook(data)
		if err != nil {
			return nil, err
		}
		return &Result{
			Family:   family,
			Workbook: wb,
			Sheets:   &SheetMetadata{Sheets: wb.SheetNames()},
		}, nil

	default:
		ds, meta, err := ReadText(data)
		if err != nil {
			return nil, err
		}
		return &Result{Family: family, Dataset: ds, Text: meta}, nil
	}
}
