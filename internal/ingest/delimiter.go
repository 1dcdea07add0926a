package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter is a delimiter mode: either DelimiterAuto or a literal separator.
type Delimiter string

const (
	DelimiterAuto      Delimiter = "AUTO"
	DelimiterSemicolon Delimiter = ";"
	DelimiterComma     Delimiter = ","
	DelimiterTab       Delimiter = "\t"
	DelimiterPipe      Delimiter = "|"
)

// Delimiters is the ordered candidate list tried for each encoding.
var Delimiters = []Delimiter{
	DelimiterAuto,
	DelimiterSemicolon,
	DelimiterComma,
	DelimiterTab,
	DelimiterPipe,
}

// sniffCandidates are the separators the automatic mode considers, in
// tie-break order.
var sniffCandidates = []rune{',', ';', '\t', '|', ':'}

// sniffLines bounds how many lines the automatic mode samples.
const sniffLines = 50

var errUndetermined = errors.New("could not determine delimiter")

// ParseDelimiter resolves a user-supplied delimiter mode. Besides the
// literal characters it accepts "auto", "tab" and the escaped form "\t".
func ParseDelimiter(s string) (Delimiter, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return DelimiterAuto, nil
	case ";", "semicolon":
		return DelimiterSemicolon, nil
	case ",", "comma":
		return DelimiterComma, nil
	case "\t", `\t`, "tab":
		return DelimiterTab, nil
	case "|", "pipe":
		return DelimiterPipe, nil
	}
	return "", fmt.Errorf("unknown delimiter %q", s)
}

// Label is a printable form of the mode ("\t" shown escaped).
func (d Delimiter) Label() string {
	if d == DelimiterTab {
		return `\t`
	}
	return string(d)
}

// resolve returns the separator rune for the mode, sniffing text for AUTO.
func (d Delimiter) resolve(text string) (rune, error) {
	switch d {
	case DelimiterAuto:
		return sniffDelimiter(text)
	case DelimiterSemicolon, DelimiterComma, DelimiterTab, DelimiterPipe:
		return rune(d[0]), nil
	}
	return 0, fmt.Errorf("unknown delimiter %q", string(d))
}

// sniffDelimiter picks the candidate that occurs the same non-zero number of
// times on every sampled line. Several consistent candidates are ranked by
// per-line count, then by candidate order. No consistent candidate is an error.
func sniffDelimiter(text string) (rune, error) {
	best := rune(0)
	bestCount := 0

	for _, delim := range sniffCandidates {
		counts := countPerLine(text, delim, sniffLines)
		if len(counts) == 0 || counts[0] == 0 {
			continue
		}
		consistent := true
		for _, n := range counts[1:] {
			if n != counts[0] {
				consistent = false
				break
			}
		}
		if consistent && counts[0] > bestCount {
			best, bestCount = delim, counts[0]
		}
	}

	if best == 0 {
		return 0, errUndetermined
	}
	return best, nil
}

// countPerLine counts delim outside double quotes on each non-empty line,
// stopping after maxLines lines.
func countPerLine(text string, delim rune, maxLines int) []int {
	var counts []int
	inQuote := false
	count := 0
	lineHasContent := false

	flush := func() {
		if lineHasContent {
			counts = append(counts, count)
		}
		count = 0
		lineHasContent = false
	}

	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			lineHasContent = true
		case inQuote:
		case r == '\n':
			flush()
			if len(counts) >= maxLines {
				return counts
			}
		case r == '\r':
		case r == delim:
			count++
			lineHasContent = true
		default:
			lineHasContent = true
		}
	}
	flush()
	return counts
}
