package export

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sansdoublons/internal/ingest"
	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

func sample() *tabular.Dataset {
	return tabular.Build(
		[]string{"id", "name", "active"},
		[][]string{
			{"1", "Doe, Ann", "true"},
			{"2", `Bob "B"`, "false"},
			{"3", "", "true"},
		},
	)
}

func TestExport_CSV(t *testing.T) {
	out, err := Export(sample(), tabular.FamilyDelimited, "ignored")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("\xEF\xBB\xBF")), "missing BOM")
	lines := strings.Split(strings.TrimPrefix(string(out), "\uFEFF"), "\n")
	assert.Equal(t, "id,name,active", lines[0])
	assert.Equal(t, `1,"Doe, Ann",true`, lines[1])
	assert.Equal(t, `2,"Bob ""B""",false`, lines[2])
	assert.Equal(t, "3,,true", lines[3])
}

func TestExport_CSVRoundTrip(t *testing.T) {
	ds := sample()
	out, err := Export(ds, tabular.FamilyDelimited, "")
	require.NoError(t, err)

	back, meta, err := ingest.ReadText(out)
	require.NoError(t, err)
	assert.Equal(t, ',', meta.Delimiter)
	assert.Equal(t, ds.ColumnNames(), back.ColumnNames())
	assert.Equal(t, ds.Records(), back.Records())
	for i := range ds.Columns {
		assert.Equal(t, ds.Columns[i].Type, back.Columns[i].Type, ds.Columns[i].Name)
	}
}

func TestExport_CSVHeaderOnly(t *testing.T) {
	out, err := Export(tabular.Build([]string{"a", "b"}, nil), tabular.FamilyDelimited, "")
	require.NoError(t, err)
	assert.Equal(t, "\uFEFFa,b\n", string(out))
}

func TestExport_XLSX(t *testing.T) {
	out, err := Export(sample(), tabular.FamilySpreadsheet, "Clients")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Clients"}, f.GetSheetList())

	rows, err := f.GetRows("Clients")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "name", "active"}, rows[0])
	assert.Equal(t, []string{"1", "Doe, Ann", "TRUE"}, rows[1])
	assert.Equal(t, []string{"3", "", "TRUE"}, rows[3])
}

func TestExport_XLSXDates(t *testing.T) {
	ds := tabular.Build([]string{"day"}, [][]string{{"2024-03-01"}, {"2024-03-01 08:30:00"}})
	require.Equal(t, tabular.TypeDate, ds.Columns[0].Type)

	out, err := Export(ds, tabular.FamilySpreadsheet, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	raw, err := f.GetCellValue(DefaultSheetName, "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	serial, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	assert.InDelta(t, 45352, serial, 1e-6)
}

func TestExport_XLSXRoundTripKeepsCells(t *testing.T) {
	src := excelize.NewFile()
	defer src.Close()

	require.NoError(t, src.SetSheetRow("Sheet1", "A1", &[]interface{}{"zip", "flag", "day", "account"}))
	require.NoError(t, src.SetCellStr("Sheet1", "A2", "00123"))
	require.NoError(t, src.SetCellStr("Sheet1", "B2", "TRUE"))
	require.NoError(t, src.SetCellInt("Sheet1", "C2", 45356)) // 5 March 2024
	require.NoError(t, src.SetCellValue("Sheet1", "D2", int64(12345678901234567)))

	dmy := "dd/mm/yyyy"
	style, err := src.NewStyle(&excelize.Style{CustomNumFmt: &dmy})
	require.NoError(t, err)
	require.NoError(t, src.SetCellStyle("Sheet1", "C2", "C2", style))

	in, err := src.WriteToBuffer()
	require.NoError(t, err)

	wb, err := ingest.OpenWorkbook(in.Bytes())
	require.NoError(t, err)
	defer wb.Close()
	ds, err := ingest.ReadSheet(wb, "Sheet1")
	require.NoError(t, err)

	out, err := Export(ds, tabular.FamilySpreadsheet, "Sheet1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	raw := func(ref string) string {
		t.Helper()
		v, err := f.GetCellValue("Sheet1", ref, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "00123", raw("A2"))
	assert.Equal(t, "TRUE", raw("B2"))
	assert.Equal(t, "45356", raw("C2"))
	assert.Equal(t, "12345678901234567", raw("D2"))
}

func TestExport_XLSXLargeIntegerAsText(t *testing.T) {
	ds := tabular.Build([]string{"id"}, [][]string{{"123456789012345678901234"}})
	require.Equal(t, tabular.TypeNumber, ds.Columns[0].Type)

	out, err := Export(ds, tabular.FamilySpreadsheet, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(DefaultSheetName, "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234", v)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", SheetName(""))
	assert.Equal(t, "Sheet1", SheetName("   "))
	assert.Equal(t, "Ventes", SheetName("Ventes"))

	long := strings.Repeat("é", 40)
	assert.Equal(t, strings.Repeat("é", 31), SheetName(long))
}

func TestExport_XLSXLongSheetName(t *testing.T) {
	out, err := Export(sample(), tabular.FamilySpreadsheet, strings.Repeat("x", 40))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{strings.Repeat("x", 31)}, f.GetSheetList())
}

func TestExport_SerializationErrors(t *testing.T) {
	nonFinite := tabular.Build([]string{"n"}, [][]string{{"1"}})
	nonFinite.Columns[0].Values[0].Num = math.Inf(1)

	tooLong := tabular.Build([]string{"s"}, [][]string{{strings.Repeat("a", excelize.TotalCellChars+1)}})

	tests := []struct {
		name   string
		ds     *tabular.Dataset
		family tabular.Family
		sheet  string
	}{
		{"nil dataset", nil, tabular.FamilyDelimited, ""},
		{"non-finite csv", nonFinite, tabular.FamilyDelimited, ""},
		{"non-finite xlsx", nonFinite, tabular.FamilySpreadsheet, ""},
		{"cell too long", tooLong, tabular.FamilySpreadsheet, ""},
		{"invalid sheet name", sample(), tabular.FamilySpreadsheet, "a/b"},
		{"unknown family", sample(), tabular.Family("pdf"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Export(tt.ds, tt.family, tt.sheet)
			assert.ErrorIs(t, err, ErrSerialization)
			assert.Nil(t, out)
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		original string
		family   tabular.Family
		want     string
	}{
		{"clients.csv", tabular.FamilyDelimited, "clients_sans_doublons.csv"},
		{"clients.xlsx", tabular.FamilySpreadsheet, "clients_sans_doublons.xlsx"},
		{"legacy.XLS", tabular.FamilySpreadsheet, "legacy_sans_doublons.xlsx"},
		{"my.data.csv", tabular.FamilyDelimited, "my.data_sans_doublons.csv"},
		{`C:\Users\ann\list.csv`, tabular.FamilyDelimited, "list_sans_doublons.csv"},
		{"", tabular.FamilyDelimited, "export_sans_doublons.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.original, tt.family))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType(tabular.FamilyDelimited))
	assert.Equal(t, ContentTypeXLSX, ContentType(tabular.FamilySpreadsheet))
}
