package analysis

import (
	"errors"
	"strings"
)

// minDescriptionLen is the shortest generated description worth caching.
const minDescriptionLen = 40

// Gate rejection reasons.
var (
	errGateEmpty       = errors.New("empty result")
	errGatePlaceholder = errors.New("placeholder result")
	errGateTooShort    = errors.New("result too short")
	errGateCodeFence   = errors.New("result contains a code fence")
	errGateCodeLike    = errors.New("result resembles source code")
)

// noDescriptionMarkers are known refusal/placeholder phrasings a model
// emits instead of a real description.
var noDescriptionMarkers = []string{
	"no description",
	"cannot describe",
	"can't describe",
	"unable to describe",
	"i cannot see",
	"i can't see",
	"n/a",
}

// gateDescription decides whether a generated description is good enough
// to cache. Low-quality output is dropped rather than stored, so one bad
// generation can never poison every later consumer of the cache; a future
// call simply tries again.
func gateDescription(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errGateEmpty
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range noDescriptionMarkers {
		if lower == marker || strings.HasPrefix(lower, marker) {
			return errGatePlaceholder
		}
	}
	if len([]rune(trimmed)) < minDescriptionLen {
		return errGateTooShort
	}
	if strings.Contains(trimmed, "```") {
		return errGateCodeFence
	}
	if looksLikeCode(trimmed) {
		return errGateCodeLike
	}
	return nil
}

// looksLikeCode flags text with multiple consecutive indented lines ending
// in code punctuation, the usual shape of a model dumping source instead
// of prose.
func looksLikeCode(text string) bool {
	run := 0
	for _, line := range strings.Split(text, "\n") {
		if indentedCodeLine(line) {
			run++
			if run >= 2 {
				return true
			}
		} else if strings.TrimSpace(line) != "" {
			run = 0
		}
	}
	return false
}

func indentedCodeLine(line string) bool {
	if !strings.HasPrefix(line, "    ") && !strings.HasPrefix(line, "\t") {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '{', '}', ';', ')', '(', ':', ',':
		return true
	}
	return false
}
