package server

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces an uploaded file name to a safe ASCII base name.
// Path separators become spaces, whitespace runs become "_", other characters outside
// [A-Za-z0-9_.-] are dropped, and leading or trailing dots and underscores are trimmed.
// The result may be empty.
func SecureFilename(name string) string {
	// Decompose accents so "é" keeps its "e".
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, name)

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
