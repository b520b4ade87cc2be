package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText extracts plain text from raw document bytes.
//
// Plain text and markdown manuals are supported; anything that is not
// valid UTF-8 text (or is empty once trimmed) fails with
// ErrExtractionFailed and nothing is stored.
func extractText(data []byte, source string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrExtractionFailed, source)
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", ErrExtractionFailed, source)
	}
	if bytes.IndexByte(data, 0x00) >= 0 {
		return "", fmt.Errorf("%w: %s contains binary content", ErrExtractionFailed, source)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s has no textual content", ErrExtractionFailed, source)
	}

	return text, nil
}
