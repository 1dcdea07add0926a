package tabular

// Family is the category of an uploaded file.
type Family string

const (
	// FamilySpreadsheet covers workbook files (.xlsx, .xls).
	FamilySpreadsheet Family = "spreadsheet"

	// FamilyDelimited covers delimited plain-text files (.csv).
	FamilyDelimited Family = "delimited"
)
