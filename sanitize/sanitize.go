// Package sanitize turns arbitrary names into portable file names.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var transliterations = map[rune]string{ //nolint:gochecknoglobals
	'ä': "ae", 'Ä': "Ae", 'ö': "oe", 'Ö': "Oe",
	'ü': "ue", 'Ü': "Ue", 'ß': "ss",
	'&': "_and_", '+': "_plus_", '@': "_at_",
}

func allowed(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_')
}

// FileName keeps ASCII letters, digits, dots, dashes and underscores of name.
// Umlauts are transliterated, accents dropped and every other run of
// characters becomes a single underscore. Leading and trailing underscores
// and dashes are trimmed.
func FileName(name string) string {
	var expanded strings.Builder

	for _, r := range name {
		if repl, ok := transliterations[r]; ok {
			expanded.WriteString(repl)
		} else {
			expanded.WriteRune(r)
		}
	}

	var out strings.Builder

	for _, r := range norm.NFD.String(expanded.String()) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case allowed(r):
			out.WriteRune(r)
		case !strings.HasSuffix(out.String(), "_"):
			out.WriteByte('_')
		}
	}

	cleaned := out.String()
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}

	return strings.Trim(cleaned, "_-")
}
