package entities

import (
	"fmt"
	"strings"
)

const (
	MaxHeadingLevel = 3
	MaxConcatIndex  = 5
)

// NoteTags is the structured form of a highlight note. A note whose first
// line starts with "." carries dot tags on that line. Other words on that
// line and everything after it are free text content.
type NoteTags struct {
	Tags         []string // without the leading dot, structural tags removed
	HeadingLevel int
	ConcatIndex  int
	Content      string
}

// ParseNote splits a note into its tag line and content.
func ParseNote(note string) NoteTags {
	if note == "" {
		return NoteTags{}
	}
	lines := strings.Split(note, "\n")
	first := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(first, ".") {
		return NoteTags{Content: note}
	}

	var nt NoteTags
	var words []string
	for _, token := range strings.Fields(first) {
		if !strings.HasPrefix(token, ".") {
			words = append(words, token)
			continue
		}
		if level := tagLevel(token, 'h', MaxHeadingLevel); level > 0 {
			if nt.HeadingLevel == 0 {
				nt.HeadingLevel = level
			}
			continue
		}
		if idx := tagLevel(token, 'c', MaxConcatIndex); idx > 0 {
			if nt.ConcatIndex == 0 {
				nt.ConcatIndex = idx
			}
			continue
		}
		nt.Tags = append(nt.Tags, token[1:])
	}
	content := lines[1:]
	if len(words) > 0 {
		content = append([]string{strings.Join(words, " ")}, content...)
	}
	nt.Content = strings.TrimSpace(strings.Join(content, "\n"))
	return nt
}

// String rebuilds the note: structural tags first, then the other tags, then
// the content on the following lines.
func (nt NoteTags) String() string {
	var tokens []string
	if nt.HeadingLevel > 0 {
		tokens = append(tokens, HeadingTag(nt.HeadingLevel))
	}
	if nt.ConcatIndex > 0 {
		tokens = append(tokens, ConcatTag(nt.ConcatIndex))
	}
	for _, tag := range nt.Tags {
		tokens = append(tokens, "."+tag)
	}

	tagLine := strings.Join(tokens, " ")
	switch {
	case tagLine == "":
		return nt.Content
	case nt.Content == "":
		return tagLine
	default:
		return tagLine + "\n" + nt.Content
	}
}

func HeadingTag(level int) string {
	return fmt.Sprintf(".h%d", level)
}

func ConcatTag(index int) string {
	return fmt.Sprintf(".c%d", index)
}

// tagLevel returns N for a token ".{kind}N" with 1 <= N <= max.
func tagLevel(token string, kind byte, max int) int {
	if len(token) != 3 || token[0] != '.' || token[1] != kind {
		return 0
	}
	n := int(token[2] - '0')
	if n < 1 || n > max {
		return 0
	}
	return n
}
