package utils

import (
	"strings"
	"unicode"
)

// Slugify lowercases a label and collapses non-alphanumeric runs into
// underscores, producing a stable map key ("Rendimento Mensal" -> "rendimento_mensal").
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
