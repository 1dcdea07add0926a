// Package export serializes a cleaned dataset back to the family it was
// read from.
//
// Delimited datasets become comma-separated UTF-8 with a byte order mark so
// that spreadsheet applications pick the right encoding. Spreadsheet
// datasets become a single-sheet .xlsx workbook, including those read from
// legacy .xls files.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// ErrSerialization is returned when a dataset cannot be written in the
// requested format. No partial output accompanies it.
var ErrSerialization = errors.New("serialization error")

const (
	// Suffix is appended to the original file stem.
	Suffix = "_sans_doublons"

	// DefaultSheetName is used when no sheet name hint is given.
	DefaultSheetName = "Sheet1"

	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export serializes ds for family. sheetNameHint names the output sheet
// for spreadsheets and is ignored for delimited text.
func Export(ds *tabular.Dataset, family tabular.Family, sheetNameHint string) ([]byte, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset", ErrSerialization)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	switch family {
	case tabular.FamilyDelimited:
		return writeCSV(ds)
	case tabular.FamilySpreadsheet:
		return writeXLSX(ds, sheetNameHint)
	}
	return nil, fmt.Errorf("%w: unknown family %q", ErrSerialization, family)
}

// Extension returns the output extension for family.
func Extension(family tabular.Family) string {
	if family == tabular.FamilySpreadsheet {
		return ".xlsx"
	}
	return ".csv"
}

// FileName derives the download name from the uploaded file name:
// "clients.xls" becomes "clients_sans_doublons.xlsx".
func FileName(original string, family tabular.Family) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "export"
	}
	return stem + Suffix + Extension(family)
}

// ContentType returns the MIME type of the export for family.
func ContentType(family tabular.Family) string {
	if family == tabular.FamilySpreadsheet {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}
