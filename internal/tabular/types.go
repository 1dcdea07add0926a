package tabular

// types.go infers per-column types from raw cell text.
//
// Inference mirrors what users expect from a spreadsheet import:
//   - Empty cells are nulls and do not vote
//   - A column is numeric when every non-empty cell is a plain number
//   - "true"/"false" (any case) make a boolean column
//   - Dates are recognized in the common ISO, US and EU layouts
//   - Anything else, including mixed columns, falls back to text

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type is the inferred type of a column.
type Type int

const (
	TypeText Type = iota
	TypeNumber
	TypeBool
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeDate:
		return "date"
	default:
		return "text"
	}
}

// MarshalText renders the type name in JSON payloads.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// numericRegex matches integers, decimals and scientific notation.
// NaN and Inf spellings are deliberately not numbers.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// Date layouts, four-digit years first so they win over ambiguous two-digit forms.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"01-02-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"01-02-06",
	"1/2/06",
	"1/2/06 15:04",
}

// InferType returns the narrowest type that accepts every non-empty cell.
func InferType(raw []string) Type {
	number, boolean, date := true, true, true
	seen := false

	for _, s := range raw {
		if s == "" {
			continue
		}
		seen = true
		if number && !isNumber(s) {
			number = false
		}
		if boolean && !isBool(s) {
			boolean = false
		}
		if date {
			if _, ok := parseDate(s); !ok {
				date = false
			}
		}
		if !number && !boolean && !date {
			return TypeText
		}
	}

	switch {
	case !seen:
		return TypeText
	case number:
		return TypeNumber
	case boolean:
		return TypeBool
	case date:
		return TypeDate
	default:
		return TypeText
	}
}

// ParseValue converts raw text to a Value of the given column type.
// Cells that do not parse as typ are text values holding their Raw text.
func ParseValue(s string, typ Type) Value {
	v := Value{Raw: s}
	if s == "" {
		v.Null = true
		return v
	}

	switch typ {
	case TypeNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v.Kind, v.Num = TypeNumber, f
		}
	case TypeBool:
		if isBool(s) {
			v.Kind, v.Bool = TypeBool, strings.EqualFold(s, "true")
		}
	case TypeDate:
		if t, ok := parseDate(s); ok {
			v.Kind, v.Time = TypeDate, t
		}
	}
	return v
}

// Text returns a text value, or a null for the empty string.
func Text(s string) Value {
	return Value{Raw: s, Null: s == "", Kind: TypeText}
}

// Number returns a numeric value whose Raw text is the exact literal.
func Number(raw string, f float64) Value {
	return Value{Raw: raw, Kind: TypeNumber, Num: f}
}

// Bool returns a boolean value spelled TRUE or FALSE.
func Bool(b bool) Value {
	raw := "FALSE"
	if b {
		raw = "TRUE"
	}
	return Value{Raw: raw, Kind: TypeBool, Bool: b}
}

// Date returns a date value. Raw is the ISO form, without a clock part
// at midnight.
func Date(t time.Time) Value {
	raw := t.Format("2006-01-02 15:04:05")
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		raw = t.Format("2006-01-02")
	}
	return Value{Raw: raw, Kind: TypeDate, Time: t}
}

// IsIntegerLiteral reports whether s is a plain base-10 integer.
func IsIntegerLiteral(s string) bool {
	return integerRegex.MatchString(s)
}

func isNumber(s string) bool {
	return numericRegex.MatchString(s)
}

func isBool(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
