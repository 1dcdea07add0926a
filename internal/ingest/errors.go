package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when the file extension is not a
	// recognized spreadsheet or delimited-text extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptWorkbook is returned when a workbook container cannot be opened.
	ErrCorruptWorkbook = errors.New("corrupt workbook")

	// ErrSheetRead is returned when a sheet is unknown or its rows cannot be read.
	ErrSheetRead = errors.New("sheet read failed")

	// ErrUnreadableText is matched by every *UnreadableTextError.
	ErrUnreadableText = errors.New("unreadable text file")
)

// UnreadableTextError reports that no encoding/delimiter candidate could
// parse a delimited-text file. Last is the error of the final attempt.
type UnreadableTextError struct {
	Attempts []Attempt
	Last     error
}

func (e *UnreadableTextError) Error() string {
	var b strings.Builder
	b.WriteString(ErrUnreadableText.Error())
	if len(e.Attempts) > 0 {
		fmt.Fprintf(&b, " after %d attempt(s)", len(e.Attempts))
	}
	if e.Last != nil {
		b.WriteString(": ")
		b.WriteString(e.Last.Error())
	}
	return b.String()
}

// Unwrap exposes the last underlying parse error.
func (e *UnreadableTextError) Unwrap() error {
	return e.Last
}

// Is makes errors.Is(err, ErrUnreadableText) true for any UnreadableTextError.
func (e *UnreadableTextError) Is(target error) bool {
	return target == ErrUnreadableText
}
