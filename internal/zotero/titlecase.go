package zotero

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var smallWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "en": true, "for": true, "if": true, "in": true, "nor": true,
	"of": true, "on": true, "or": true, "per": true, "the": true, "to": true,
	"v": true, "vs": true, "via": true,
}

// Titlecase capitalizes the words of an English title. Small words stay in
// lower case except at the start, the end or after a colon. Words already
// carrying capitals after the first letter (iPhone, DNA) are kept.
func Titlecase(title string) string {
	caser := cases.Title(language.English, cases.NoLower)
	words := strings.Fields(title)
	for i, word := range words {
		lower := strings.ToLower(word)
		first := i == 0 || strings.HasSuffix(words[i-1], ":")
		last := i == len(words)-1
		switch {
		case hasInnerCapital(word):
		case smallWords[strings.Trim(lower, ".,;:!?")] && !first && !last:
			words[i] = lower
		default:
			words[i] = caser.String(word)
		}
	}
	return strings.Join(words, " ")
}

func hasInnerCapital(word string) bool {
	for i, r := range word {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
