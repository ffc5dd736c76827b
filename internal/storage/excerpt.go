package storage

import (
	"strings"
	"unicode/utf8"
)

// excerptMaxChars bounds the stored excerpt length.
const excerptMaxChars = 300

// makeExcerpt derives a short plain-text preview from text bytes. It is
// deliberately cheap: whitespace collapsing and a rune-safe cut, nothing
// that needs an external collaborator.
func makeExcerpt(data []byte) string {
	text := strings.Join(strings.Fields(string(data)), " ")
	if utf8.RuneCountInString(text) <= excerptMaxChars {
		return text
	}
	runes := []rune(text)
	cut := excerptMaxChars
	// Prefer breaking at a word boundary near the limit.
	for i := cut; i > cut-40 && i > 0; i-- {
		if runes[i-1] == ' ' {
			cut = i - 1
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "…"
}
