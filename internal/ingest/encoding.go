package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a candidate character encoding for delimited text.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-sig"
	EncodingCP1252  Encoding = "cp1252"
	EncodingLatin1  Encoding = "latin1"
)

// Encodings is the ordered candidate list tried by the automatic reader.
// UTF-8 first, then the Western European code pages common in regional
// spreadsheet exports.
var Encodings = []Encoding{
	EncodingUTF8,
	EncodingUTF8BOM,
	EncodingCP1252,
	EncodingLatin1,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cp1252Undefined are the five byte values Windows-1252 leaves unassigned.
// A strict decoder rejects them instead of mapping them to C1 controls.
var cp1252Undefined = []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D}

// ParseEncoding resolves a user-supplied encoding name.
func ParseEncoding(name string) (Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-8-sig", "utf8-sig", "utf-8-bom":
		return EncodingUTF8BOM, nil
	case "cp1252", "windows-1252":
		return EncodingCP1252, nil
	case "latin1", "latin-1", "iso-8859-1":
		return EncodingLatin1, nil
	}
	return "", fmt.Errorf("unknown encoding %q", name)
}

// Decode converts data to a UTF-8 string, failing on bytes that are not
// valid in the encoding. A leading UTF-8 byte-order mark is never part of
// the returned text.
func (e Encoding) Decode(data []byte) (string, error) {
	switch e {
	case EncodingUTF8:
		if err := validateUTF8(data); err != nil {
			return "", err
		}
		return string(bytes.TrimPrefix(data, utf8BOM)), nil

	case EncodingUTF8BOM:
		if err := validateUTF8(data); err != nil {
			return "", err
		}
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("encoding error (%s): %w", e, err)
		}
		return string(out), nil

	case EncodingCP1252:
		for i, b := range data {
			if bytes.IndexByte(cp1252Undefined, b) >= 0 {
				return "", fmt.Errorf("encoding error (%s): undefined byte 0x%02X at offset %d", e, b, i)
			}
		}
		return decodeWith(charmap.Windows1252, e, data)

	case EncodingLatin1:
		return decodeWith(charmap.ISO8859_1, e, data)
	}
	return "", fmt.Errorf("unknown encoding %q", string(e))
}

func validateUTF8(data []byte) error {
	if _, _, err := transform.Bytes(encoding.UTF8Validator, data); err != nil {
		return fmt.Errorf("encoding error (utf-8): %w", err)
	}
	return nil
}

func decodeWith(cm *charmap.Charmap, e Encoding, data []byte) (string, error) {
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("encoding error (%s): %w", e, err)
	}
	return string(out), nil
}
