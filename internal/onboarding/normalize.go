package onboarding

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes the input and drops combining diacritical marks, so
// "Über" becomes "Uber" before the ASCII filter below.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes free-form answer text for rule matching: diacritics
// removed, every run of non-ASCII-alphanumerics (emoji, punctuation, CJK)
// collapsed to a single space, trimmed, lowercased. Applied identically to
// answers and rule needles so "✅ Yes" matches "contains:yes".
func Normalize(s string) string {
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r + ('a' - 'A'))
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// NormalizeValue stringifies an arbitrary answer value and normalizes it.
// Lists are joined with single spaces so a rule can match any element of a
// multi-choice answer.
func NormalizeValue(v interface{}) string {
	return Normalize(stringifyValue(v))
}

func stringifyValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, " ")
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringifyValue(e)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", t)
	}
}
