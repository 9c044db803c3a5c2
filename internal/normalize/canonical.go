package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

var (
	reDisallowed = regexp.MustCompile(`[^a-z0-9\s.\-]+`)
	reDots       = regexp.MustCompile(`\.{2,}`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Canonicalize folds free text into the comparison form shared by every
// dictionary lookup: ASCII, lower case, only [a-z0-9 .-], single dots and
// single spaces, trimmed. Only Latin letters are transliterated; other
// scripts are dropped like any other disallowed character.
// Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(s string) string {
	if s == "" {
		return ""
	}
	// diacritics first, so "Pínang" keeps its letters instead of losing them
	s = strings.ToLower(foldLatin(s))
	s = reDisallowed.ReplaceAllString(s, "")
	s = reDots.ReplaceAllString(s, ".")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func foldLatin(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.Is(unicode.Latin, r):
			b.WriteString(unidecode.Unidecode(string(r)))
		}
	}
	return b.String()
}
