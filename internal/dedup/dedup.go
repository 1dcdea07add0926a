// Package dedup removes duplicate rows from a dataset.
//
// Two rows are duplicates when their values are equal on every column in
// the request scope: numbers compare by exact value, booleans and dates by
// value, text exactly, and empty cells equal each other. One row per group
// survives (the first or the last by original position) and survivors keep
// their original relative order. Dedup never modifies its input and is
// idempotent for a fixed request.
package dedup

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

// ErrInvalidScope is returned when an explicit scope is empty or names a
// column that the dataset does not have.
var ErrInvalidScope = errors.New("invalid dedup scope")

// Keep selects which row of a duplicate group is retained.
type Keep int

const (
	KeepFirst Keep = iota
	KeepLast
)

func (k Keep) String() string {
	if k == KeepLast {
		return "last"
	}
	return "first"
}

// ParseKeep resolves "first" or "last".
func ParseKeep(s string) (Keep, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	}
	return KeepFirst, fmt.Errorf("unknown keep policy %q", s)
}

// Scope is the set of columns that decide row equality.
type Scope struct {
	All     bool
	Columns []string
}

// AllColumns is the scope covering every column.
func AllColumns() Scope {
	return Scope{All: true}
}

// ColumnsScope is an explicit scope over the named columns.
func ColumnsScope(columns ...string) Scope {
	return Scope{Columns: columns}
}

// Request holds the user's dedup parameters.
type Request struct {
	Scope Scope
	Keep  Keep

	// TrimSpace strips leading and trailing whitespace from text values
	// before comparison. The trimmed values are the ones kept, and a value
	// left empty becomes null.
	TrimSpace bool
}

// Result is the cleaned dataset with before/after row counts.
type Result struct {
	Dataset    *tabular.Dataset
	RowsBefore int
	RowsAfter  int

	// Kept holds the input row index of every retained row, ascending.
	Kept []int
}

// Removed returns how many rows were dropped.
func (r *Result) Removed() int {
	return r.RowsBefore - r.RowsAfter
}

// Dedup applies req to ds.
func Dedup(ds *tabular.Dataset, req Request) (*Result, error) {
	cols, err := resolveScope(ds, req.Scope)
	if err != nil {
		return nil, err
	}

	work := ds
	if req.TrimSpace {
		work = trimText(ds)
	}

	n := work.RowCount()
	keys := make([]string, n)
	for r := 0; r < n; r++ {
		keys[r] = rowKey(work, cols, r)
	}

	keep := make([]int, 0, n)
	seen := make(map[string]struct{}, n)
	if req.Keep == KeepLast {
		for r := n - 1; r >= 0; r-- {
			if _, dup := seen[keys[r]]; dup {
				continue
			}
			seen[keys[r]] = struct{}{}
			keep = append(keep, r)
		}
		slices.Reverse(keep)
	} else {
		for r := 0; r < n; r++ {
			if _, dup := seen[keys[r]]; dup {
				continue
			}
			seen[keys[r]] = struct{}{}
			keep = append(keep, r)
		}
	}

	return &Result{
		Dataset:    work.Select(keep),
		RowsBefore: n,
		RowsAfter:  len(keep),
		Kept:       keep,
	}, nil
}

// Dropped returns the input row indexes that were removed, ascending.
func (r *Result) Dropped() []int {
	dropped := make([]int, 0, r.Removed())
	k := 0
	for i := 0; i < r.RowsBefore; i++ {
		if k < len(r.Kept) && r.Kept[k] == i {
			k++
			continue
		}
		dropped = append(dropped, i)
	}
	return dropped
}

// resolveScope returns the column positions that take part in row equality.
func resolveScope(ds *tabular.Dataset, scope Scope) ([]int, error) {
	if scope.All {
		cols := make([]int, len(ds.Columns))
		for i := range cols {
			cols[i] = i
		}
		return cols, nil
	}

	if len(scope.Columns) == 0 {
		return nil, fmt.Errorf("%w: select at least one column", ErrInvalidScope)
	}

	cols := make([]int, 0, len(scope.Columns))
	for _, name := range scope.Columns {
		idx := ds.Index(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: column %q not found", ErrInvalidScope, name)
		}
		if !slices.Contains(cols, idx) {
			cols = append(cols, idx)
		}
	}
	return cols, nil
}

// trimText returns a copy of ds with whitespace trimmed on text values.
func trimText(ds *tabular.Dataset) *tabular.Dataset {
	out := ds.Clone()
	for i := range out.Columns {
		col := &out.Columns[i]
		changed := false
		for j := range col.Values {
			v := &col.Values[j]
			if v.Null || v.Kind != tabular.TypeText {
				continue
			}
			v.Raw = strings.TrimSpace(v.Raw)
			if v.Raw == "" {
				*v = tabular.Value{Null: true}
				changed = true
			}
		}
		if changed {
			col.Type = tabular.ColumnType(col.Values)
		}
	}
	return out
}

// rowKey encodes the scoped values of row r. Each part is length-prefixed
// so that no pair of distinct tuples can produce the same key.
func rowKey(ds *tabular.Dataset, cols []int, r int) string {
	var b strings.Builder
	for _, c := range cols {
		col := &ds.Columns[c]
		part := valueKey(col.Values[r])
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// valueKey is the canonical comparison form of one cell.
func valueKey(v tabular.Value) string {
	if v.Null {
		return "\x00"
	}
	switch v.Kind {
	case tabular.TypeNumber:
		return "n" + numberKey(v)
	case tabular.TypeBool:
		return "b" + strconv.FormatBool(v.Bool)
	case tabular.TypeDate:
		return "d" + v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "s" + v.Raw
	}
}

// numberKey renders a number exactly. Integer literals keep every digit,
// so IDs beyond float precision stay distinct; other integral values use
// the same digits, and fractions their shortest float form.
func numberKey(v tabular.Value) string {
	if tabular.IsIntegerLiteral(v.Raw) {
		if n, ok := new(big.Int).SetString(v.Raw, 10); ok {
			return n.String()
		}
	}
	f := v.Num
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		n, _ := big.NewFloat(f).Int(nil)
		return n.String()
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
