package utils

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// DecodeText decodes transcript file bytes as UTF-8
// with a Latin-1 fallback for legacy exports
func DecodeText(data []byte) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("binary content")
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Latin-1: every byte maps 1:1 to the same code point
	rs := make([]rune, len(data))
	for i, b := range data {
		rs[i] = rune(b)
	}
	return string(rs), nil
}
