package utils

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes returns at most maxRunes characters of text. Cutting by
// rune rather than byte keeps multi-byte names valid UTF-8.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i]
		}
		count++
	}
	return text
}

// SanitizeUTF8 replaces every byte that is not part of a valid UTF-8
// sequence with the Unicode replacement character
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(text[i : i+size])
		}
		i += size
	}
	return b.String()
}

// UnfoldHeader removes RFC 5322 line folding from a header value
func UnfoldHeader(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "")
	value = strings.ReplaceAll(value, "\n", "")
	return strings.TrimSpace(value)
}
