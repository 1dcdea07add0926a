// Package tabular holds the in-memory table model shared by ingestion,
// deduplication and export.
//
// A Dataset is column-oriented: every Column carries its inferred Type and
// one Value per row. All columns of a Dataset have the same length and
// distinct names. A Dataset belongs to exactly one session and is never
// mutated after construction; transformations return new datasets.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidDataset is returned by Validate when a dataset breaks the
// equal-length or unique-name invariants.
var ErrInvalidDataset = errors.New("invalid dataset")

// Value is a single cell.
//
// Raw always holds the textual cell content. Kind is the type the cell
// was read as; Num, Bool and Time are only meaningful when Kind matches.
type Value struct {
	Raw  string
	Null bool
	Kind Type
	Num  float64
	Bool bool
	Time time.Time
}

// Column is a named, typed sequence of values. Type is the shared Kind of
// every non-null value, or TypeText when the kinds are mixed.
type Column struct {
	Name   string
	Type   Type
	Values []Value
}

// Dataset is an ordered set of equal-length columns.
type Dataset struct {
	Columns []Column
}

// Build creates a dataset from a header row and data rows of raw strings.
//
// Empty or repeated header names are made unique ("Unnamed: 2", "id.1").
// Rows shorter than the header are padded with nulls; rows wider than the
// header extend it with unnamed columns. Column types are inferred from the
// non-empty cells.
func Build(header []string, rows [][]string) *Dataset {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	names := make([]string, width)
	copy(names, header)
	names = UniqueNames(names)

	ds := &Dataset{Columns: make([]Column, width)}
	for c := 0; c < width; c++ {
		raw := make([]string, len(rows))
		for r, row := range rows {
			if c < len(row) {
				raw[r] = row[c]
			}
		}
		ds.Columns[c] = NewColumn(names[c], raw)
	}
	return ds
}

// BuildValues creates a dataset from cells that already carry their Kind,
// as read from a spreadsheet. Header handling and padding follow Build;
// no type is guessed from cell text.
func BuildValues(header []string, rows [][]Value) *Dataset {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	names := make([]string, width)
	copy(names, header)
	names = UniqueNames(names)

	ds := &Dataset{Columns: make([]Column, width)}
	for c := 0; c < width; c++ {
		values := make([]Value, len(rows))
		for r, row := range rows {
			if c < len(row) {
				values[r] = row[c]
			} else {
				values[r] = Value{Null: true}
			}
		}
		ds.Columns[c] = Column{Name: names[c], Type: ColumnType(values), Values: values}
	}
	return ds
}

// ColumnType is the Kind shared by every non-null value, or TypeText.
func ColumnType(values []Value) Type {
	typ, seen := TypeText, false
	for _, v := range values {
		if v.Null {
			continue
		}
		if !seen {
			typ, seen = v.Kind, true
			continue
		}
		if v.Kind != typ {
			return TypeText
		}
	}
	return typ
}

// NewColumn infers the type of raw and converts every cell to a Value.
func NewColumn(name string, raw []string) Column {
	typ := InferType(raw)
	values := make([]Value, len(raw))
	for i, s := range raw {
		values[i] = ParseValue(s, typ)
	}
	return Column{Name: name, Type: typ, Values: values}
}

// UniqueNames returns header names with blanks replaced by "Unnamed: <i>"
// and repeats suffixed with ".1", ".2", ...
func UniqueNames(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))

	for i, h := range header {
		name := h
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n := counts[name]; n > 0 {
			base := name
			for ; ; n++ {
				name = base + "." + strconv.Itoa(n)
				if counts[name] == 0 {
					break
				}
			}
			counts[base] = n + 1
		}
		counts[name]++
		out[i] = name
	}
	return out
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns the values of row i across all columns.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.Columns))
	for c := range d.Columns {
		row[c] = d.Columns[c].Values[i]
	}
	return row
}

// Records returns the raw text of every row, nulls as empty strings.
func (d *Dataset) Records() [][]string {
	n := d.RowCount()
	out := make([][]string, n)
	for r := 0; r < n; r++ {
		rec := make([]string, len(d.Columns))
		for c := range d.Columns {
			rec[c] = d.Columns[c].Values[r].Raw
		}
		out[r] = rec
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Columns: make([]Column, len(d.Columns))}
	for i, c := range d.Columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}

// Select returns a new dataset holding only the given rows, in the given order.
func (d *Dataset) Select(rows []int) *Dataset {
	out := &Dataset{Columns: make([]Column, len(d.Columns))}
	for i, c := range d.Columns {
		values := make([]Value, len(rows))
		for j, r := range rows {
			values[j] = c.Values[r]
		}
		out.Columns[i] = Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}

// Head returns at most n rows from the top.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > d.RowCount() {
		n = d.RowCount()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return d.Select(rows)
}

// Validate checks the equal-length and unique-name invariants.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Columns))
	n := d.RowCount()
	for _, c := range d.Columns {
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidDataset, c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != n {
			return fmt.Errorf("%w: column %q has %d values, want %d", ErrInvalidDataset, c.Name, len(c.Values), n)
		}
	}
	return nil
}
