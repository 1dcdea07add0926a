package ingest

// text.go reads delimited text by sweeping a fixed candidate list.
//
// Every encoding in Encodings is paired with every mode in Delimiters,
// encoding-major, and the first pair that parses wins. A pair fails when
// the bytes do not decode, AUTO cannot settle on a delimiter, the CSV
// syntax is broken, a data row has more fields than the header, or there
// is no header at all. The sweep is bounded at 20 attempts.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sansdoublons/internal/tabular"
)

var errNoColumns = errors.New("no columns to parse from file")

// Attempt records one encoding/delimiter pair tried by the reader.
// Err is empty for the pair that succeeded.
type Attempt struct {
	Encoding  Encoding  `json:"encoding"`
	Delimiter Delimiter `json:"delimiter"`
	Err       string    `json:"error,omitempty"`
}

// TextMetadata describes how a delimited-text file was read.
type TextMetadata struct {
	Encoding  Encoding  `json:"encoding"`
	Mode      Delimiter `json:"mode"`
	Delimiter rune      `json:"-"`
	Attempts  []Attempt `json:"attempts"`
}

// DelimiterLabel returns the resolved separator in printable form.
func (m *TextMetadata) DelimiterLabel() string {
	return Delimiter(string(m.Delimiter)).Label()
}

// ReadText decodes and parses data with the first candidate pair that works.
func ReadText(data []byte) (*tabular.Dataset, *TextMetadata, error) {
	var attempts []Attempt
	var last error

	for _, enc := range Encodings {
		for _, mode := range Delimiters {
			ds, delim, err := parseText(data, enc, mode)
			if err != nil {
				attempts = append(attempts, Attempt{Encoding: enc, Delimiter: mode, Err: err.Error()})
				last = err
				continue
			}
			attempts = append(attempts, Attempt{Encoding: enc, Delimiter: mode})
			return ds, &TextMetadata{
				Encoding:  enc,
				Mode:      mode,
				Delimiter: delim,
				Attempts:  attempts,
			}, nil
		}
	}

	return nil, nil, &UnreadableTextError{Attempts: attempts, Last: last}
}

// Reread parses data with one explicit encoding and delimiter mode, both
// given by name as a user would pick them.
func Reread(data []byte, encodingName, delimiterName string) (*tabular.Dataset, *TextMetadata, error) {
	enc, err := ParseEncoding(encodingName)
	if err != nil {
		return nil, nil, &UnreadableTextError{Last: err}
	}
	mode, err := ParseDelimiter(delimiterName)
	if err != nil {
		return nil, nil, &UnreadableTextError{Last: err}
	}

	attempt := Attempt{Encoding: enc, Delimiter: mode}
	ds, delim, err := parseText(data, enc, mode)
	if err != nil {
		attempt.Err = err.Error()
		return nil, nil, &UnreadableTextError{Attempts: []Attempt{attempt}, Last: err}
	}

	return ds, &TextMetadata{
		Encoding:  enc,
		Mode:      mode,
		Delimiter: delim,
		Attempts:  []Attempt{attempt},
	}, nil
}

// parseText runs one candidate pair.
func parseText(data []byte, enc Encoding, mode Delimiter) (*tabular.Dataset, rune, error) {
	text, err := enc.Decode(data)
	if err != nil {
		return nil, 0, err
	}

	delim, err := mode.resolve(text)
	if err != nil {
		return nil, 0, err
	}

	ds, err := parseDelimited(text, delim)
	if err != nil {
		return nil, 0, err
	}
	return ds, delim, nil
}

// parseDelimited splits text into a header and data rows.
// Short rows are padded; a row wider than the header is an error.
func parseDelimited(text string, delim rune) (*tabular.Dataset, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errNoColumns
	}

	header := records[0]
	rows := records[1:]
	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("invalid csv: expected %d fields in data row %d, saw %d", len(header), i+1, len(row))
		}
	}

	return tabular.Build(header, rows), nil
}
