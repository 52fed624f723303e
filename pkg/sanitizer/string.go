package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		switch {
		case unicode.IsControl(r):
			// drop control characters entirely
		case unicode.IsSpace(r):
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		default:
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeReason normalizes a block reason for display in conflict messages.
func NormalizeReason(reason string) string {
	return TrimAndNormalize(reason)
}

// NormalizeNotes keeps admin notes readable without imposing casing.
func NormalizeNotes(notes string) string {
	return TrimAndNormalize(notes)
}

// NormalizeLabel lower-cases a label used as a lookup key.
func NormalizeLabel(label string) string {
	return strings.ToLower(TrimAndNormalize(label))
}
