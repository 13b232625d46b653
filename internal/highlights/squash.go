// Package highlights holds the normalization shared by every converter:
// concatenation of split highlights, tag extraction and tag decoration.
package highlights

import (
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// Squash merges runs of concatenation-tagged records into single highlights.
//
// A record tagged .c1 opens a group. Following records tagged with a higher
// .cN are appended to it until the sequence breaks; the record that breaks
// it is then handled on its own. Records without a concat tag are returned
// untouched, so Squash is a no-op on input without .c notes.
func Squash(records []entities.Highlight) []entities.Highlight {
	result := make([]entities.Highlight, 0, len(records))
	var group []entities.Highlight
	last := 0

	flush := func() {
		if len(group) > 0 {
			result = append(result, Concatenate(group))
			group = nil
			last = 0
		}
	}

	for _, h := range records {
		idx := h.ConcatIndex()
		switch {
		case idx == 1:
			flush()
			group = []entities.Highlight{h}
			last = idx
		case idx > last && len(group) > 0:
			group = append(group, h)
			last = idx
		default:
			flush()
			result = append(result, h)
		}
	}
	flush()

	return result
}

// Concatenate joins a group of fragments into the first one: texts are
// joined with a single space, note contents with newlines, and tags are
// unioned in first-seen order. The concat tag itself is dropped.
func Concatenate(group []entities.Highlight) entities.Highlight {
	merged := group[0]

	texts := make([]string, 0, len(group))
	var contents []string
	var tags []string
	seen := make(map[string]bool)
	heading := 0

	for _, h := range group {
		texts = append(texts, h.Text)

		nt := entities.ParseNote(h.Note)
		if heading == 0 {
			heading = nt.HeadingLevel
		}
		for _, tag := range nt.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
		if content := strings.TrimSpace(nt.Content); content != "" {
			contents = append(contents, content)
		}
	}

	merged.Text = strings.Join(texts, " ")
	merged.Note = entities.NoteTags{
		HeadingLevel: heading,
		Tags:         tags,
		Content:      strings.Join(contents, "\n"),
	}.String()

	return merged
}
