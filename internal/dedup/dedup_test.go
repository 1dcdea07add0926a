package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

func people() *tabular.Dataset {
	return tabular.Build(
		[]string{"id", "name"},
		[][]string{{"1", "Ann"}, {"2", "Bob"}, {"1", "Ann"}},
	)
}

func TestDedup_AllColumns(t *testing.T) {
	tests := []struct {
		name string
		keep Keep
		want [][]string
	}{
		{"keep first", KeepFirst, [][]string{{"1", "Ann"}, {"2", "Bob"}}},
		{"keep last", KeepLast, [][]string{{"2", "Bob"}, {"1", "Ann"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Dedup(people(), Request{Scope: AllColumns(), Keep: tt.keep})
			require.NoError(t, err)

			assert.Equal(t, 3, res.RowsBefore)
			assert.Equal(t, 2, res.RowsAfter)
			assert.Equal(t, 1, res.Removed())
			assert.Equal(t, tt.want, res.Dataset.Records())
			assert.Equal(t, []string{"id", "name"}, res.Dataset.ColumnNames())
			assert.Len(t, res.Dropped(), 1)
		})
	}
}

func TestDedup_ColumnScope(t *testing.T) {
	ds := tabular.Build(
		[]string{"email", "city"},
		[][]string{
			{"a@x.io", "Paris"},
			{"b@x.io", "Lyon"},
			{"a@x.io", "Nice"},
			{"c@x.io", "Paris"},
		},
	)

	res, err := Dedup(ds, Request{Scope: ColumnsScope("email"), Keep: KeepFirst})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"a@x.io", "Paris"},
		{"b@x.io", "Lyon"},
		{"c@x.io", "Paris"},
	}, res.Dataset.Records())

	assert.Equal(t, []int{0, 1, 3}, res.Kept)
	assert.Equal(t, []int{2}, res.Dropped())

	res, err = Dedup(ds, Request{Scope: ColumnsScope("email"), Keep: KeepLast})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, res.Kept)
	assert.Equal(t, []int{0}, res.Dropped())
	assert.Equal(t, [][]string{
		{"b@x.io", "Lyon"},
		{"a@x.io", "Nice"},
		{"c@x.io", "Paris"},
	}, res.Dataset.Records())

	// Repeating a column in the scope changes nothing.
	res, err = Dedup(ds, Request{Scope: ColumnsScope("city", "city")})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsAfter)
}

func TestDedup_InvalidScope(t *testing.T) {
	_, err := Dedup(people(), Request{Scope: Scope{}})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = Dedup(people(), Request{Scope: ColumnsScope("id", "missing")})
	assert.ErrorIs(t, err, ErrInvalidScope)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestDedup_TrimSpace(t *testing.T) {
	ds := tabular.Build(
		[]string{"name"},
		[][]string{{"Ann"}, {"  Ann "}, {"Bob"}},
	)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsAfter)

	res, err = Dedup(ds, Request{Scope: AllColumns(), TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ann"}, {"Bob"}}, res.Dataset.Records())

	// The input keeps its original whitespace.
	assert.Equal(t, "  Ann ", ds.Columns[0].Values[1].Raw)
}

func TestDedup_TypedEquality(t *testing.T) {
	ds := tabular.Build(
		[]string{"amount", "flag", "note"},
		[][]string{
			{"1", "true", ""},
			{"1.0", "TRUE", ""},
			{"-0", "false", "x"},
			{"0", "False", "x"},
			{"", "true", ""},
			{"", "true", ""},
		},
	)
	require.Equal(t, tabular.TypeNumber, ds.Columns[0].Type)
	require.Equal(t, tabular.TypeBool, ds.Columns[1].Type)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, 6, res.RowsBefore)
	assert.Equal(t, 3, res.RowsAfter)
	assert.Equal(t, [][]string{
		{"1", "true", ""},
		{"-0", "false", "x"},
		{"", "true", ""},
	}, res.Dataset.Records())
}

func TestDedup_LargeIntegersStayDistinct(t *testing.T) {
	ds := tabular.Build(
		[]string{"account"},
		[][]string{{"12345678901234567"}, {"12345678901234568"}, {"+12345678901234567"}},
	)
	require.Equal(t, tabular.TypeNumber, ds.Columns[0].Type)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsAfter)
	assert.Equal(t, [][]string{{"12345678901234567"}, {"12345678901234568"}}, res.Dataset.Records())
}

func TestDedup_TrimmedBlankIsNull(t *testing.T) {
	ds := tabular.Build(
		[]string{"name", "city"},
		[][]string{{"Ann", "   "}, {"Ann", ""}, {"Bob", "Lyon"}},
	)

	res, err := Dedup(ds, Request{Scope: AllColumns(), TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ann", ""}, {"Bob", "Lyon"}}, res.Dataset.Records())
	assert.True(t, res.Dataset.Columns[1].Values[0].Null)

	// Deduplicating the cleaned data again finds nothing more.
	again, err := Dedup(res.Dataset, Request{Scope: AllColumns(), TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, again.RowsBefore, again.RowsAfter)
}

func TestDedup_MixedKindsCompareByValue(t *testing.T) {
	ds := tabular.BuildValues(
		[]string{"code"},
		[][]tabular.Value{
			{tabular.Text("00123")},
			{tabular.Number("123", 123)},
			{tabular.Text("00123")},
			{tabular.Text("TRUE")},
			{tabular.Bool(true)},
		},
	)
	require.Equal(t, tabular.TypeText, ds.Columns[0].Type)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 4}, res.Kept)
}

func TestDedup_KeysDoNotCollide(t *testing.T) {
	ds := tabular.Build(
		[]string{"a", "b"},
		[][]string{{"x:", "y"}, {"x", ":y"}, {"1:sx", ""}},
	)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsAfter)
}

func TestDedup_Idempotent(t *testing.T) {
	for _, keep := range []Keep{KeepFirst, KeepLast} {
		req := Request{Scope: ColumnsScope("id"), Keep: keep, TrimSpace: true}

		first, err := Dedup(people(), req)
		require.NoError(t, err)
		second, err := Dedup(first.Dataset, req)
		require.NoError(t, err)

		assert.Equal(t, first.Dataset.Records(), second.Dataset.Records(), keep.String())
		assert.Equal(t, second.RowsBefore, second.RowsAfter)
	}
}

func TestDedup_DoesNotMutateInput(t *testing.T) {
	ds := people()
	before := ds.Records()

	_, err := Dedup(ds, Request{Scope: AllColumns(), Keep: KeepLast, TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, before, ds.Records())
}

func TestDedup_EmptyDataset(t *testing.T) {
	ds := tabular.Build([]string{"id"}, nil)

	res, err := Dedup(ds, Request{Scope: AllColumns()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowsBefore)
	assert.Equal(t, 0, res.RowsAfter)
	assert.Equal(t, []string{"id"}, res.Dataset.ColumnNames())
}

func TestParseKeep(t *testing.T) {
	k, err := ParseKeep("LAST")
	require.NoError(t, err)
	assert.Equal(t, KeepLast, k)

	k, err = ParseKeep("")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, k)

	_, err = ParseKeep("middle")
	assert.Error(t, err)
}
