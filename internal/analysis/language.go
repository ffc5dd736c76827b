package analysis

import (
	"strings"
	"unicode"
)

// detectLanguage guesses the natural language of request text so image
// descriptions come back in the user's language. It is a coarse heuristic:
// script detection for non-Latin text, stopword counting for the Latin
// scripts we care about, English otherwise. The result is fixed per
// content hash; only a content replace re-triggers detection.
func detectLanguage(text string) string {
	var han, kana, hangul, cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.In(r, unicode.Han):
			han++
		case unicode.In(r, unicode.Hangul):
			hangul++
		case unicode.In(r, unicode.Cyrillic):
			cyrillic++
		case unicode.In(r, unicode.Latin):
			latin++
		}
	}
	switch {
	case kana > 0:
		return "ja"
	case hangul > 0 && hangul >= han:
		return "ko"
	case han > 0:
		return "zh"
	case cyrillic > latin:
		return "ru"
	}
	return latinLanguage(text)
}

var latinStopwords = map[string][]string{
	"de": {"der", "die", "das", "und", "ist", "nicht", "ein", "eine", "mit", "für"},
	"fr": {"le", "la", "les", "est", "une", "des", "que", "pas", "avec", "pour"},
	"es": {"el", "los", "las", "es", "una", "del", "que", "con", "para", "por"},
	"it": {"il", "lo", "gli", "una", "che", "non", "per", "con", "sono", "della"},
}

func latinLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "en"
	}
	best, bestHits := "en", 1
	for lang, stops := range latinStopwords {
		hits := 0
		for _, w := range words {
			w = strings.Trim(w, ".,;:!?\"'()")
			for _, s := range stops {
				if w == s {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	return best
}
