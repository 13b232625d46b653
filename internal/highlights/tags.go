package highlights

import (
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// TagNames returns the Readwise tag names carried by a note: every dot token
// on the note's first line, without the dot. Structural tags are included,
// Readwise renders .h1-.h3 tagged highlights as headings.
func TagNames(h entities.Highlight) []string {
	if !strings.HasPrefix(h.Note, ".") {
		return nil
	}
	first, _, _ := strings.Cut(h.Note, "\n")

	var names []string
	for _, token := range strings.Fields(first) {
		if len(token) > 1 && strings.HasPrefix(token, ".") {
			names = append(names, token[1:])
		}
	}
	return names
}

// AddTag prepends a dot tag to a note. The tag joins an existing tag line,
// or goes on its own line above free text.
func AddTag(note, tag string) string {
	switch {
	case note == "":
		return tag
	case strings.HasPrefix(note, "."):
		return tag + " " + note
	default:
		return tag + "\n\n" + note
	}
}

// CountHeadings reports how many of the records are synthetic headings.
func CountHeadings(records []entities.Highlight) int {
	n := 0
	for _, h := range records {
		if h.IsHeading() {
			n++
		}
	}
	return n
}
