package subtitles

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToUTF8 returns raw re-encoded as UTF-8 without a byte-order mark, together
// with the name of the charset it was decoded from.
func ToUTF8(raw []byte) ([]byte, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return raw[len(utf8BOM):], "utf-8", nil
	}
	if utf8.Valid(raw) {
		return raw, "utf-8", nil
	}
	enc, name, _ := charset.DetermineEncoding(raw, "text/plain")
	if name == "utf-8" {
		// Invalid UTF-8 without a BOM; treat as Windows-1252.
		enc, name = charset.Lookup("windows-1252")
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, name, fmt.Errorf("decode %s subtitle: %w", name, err)
	}
	return bytes.TrimPrefix(decoded, utf8BOM), name, nil
}
