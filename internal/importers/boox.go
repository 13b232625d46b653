package importers

import (
	"io"
	"strconv"
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const (
	booxHeaderPrefix  = "Reading Notes "
	booxPageMarker    = "Page No.: "
	booxDateSeparator = "  |  "
	booxSeparator     = "-------------------"
	booxSectionSplit  = " // "

	// Boox exports local time without an offset.
	booxTimezone = "+08:00"
)

// BooxConverter parses the plain text notes exported by Boox e-readers:
//
//	Reading Notes | <<Title - Author>>Section
//	2023-01-27 18:58  |  Page No.: 785
//	highlighted text
//	-------------------
type BooxConverter struct{}

func NewBooxConverter() *BooxConverter {
	return &BooxConverter{}
}

func (c *BooxConverter) Name() string { return "boox" }

// booxState carries the scan state between lines.
type booxState struct {
	book          entities.Book
	result        []entities.Highlight
	pending       *entities.Highlight
	lastAutoTitle string
	autoLevel     int
}

func (c *BooxConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	lr := newLineReader(c.Name(), r)
	st := &booxState{
		book: entities.Book{
			SourceType: entities.SourceBoox,
			Category:   entities.CategoryBooks,
		},
		autoLevel: 1,
	}

	for lr.Next() {
		line := lr.Line()
		var err error

		switch {
		case strings.HasPrefix(line, booxHeaderPrefix):
			err = st.header(lr)
		case strings.Contains(line, booxPageMarker):
			err = st.location(lr)
		case strings.HasPrefix(line, booxSeparator):
			if st.pending == nil {
				return nil, lr.Fail("expect pending highlight")
			}
			st.result = append(st.result, *st.pending)
			st.newPending()
		case st.pending != nil && hasLocation(st.pending):
			if st.pending.Text == "" {
				st.pending.Text = line
			} else {
				st.pending.Text += "\n" + line
			}
		case line == "":
			// blank lines only matter inside highlight text
		case st.pending != nil:
			st.section(line)
		default:
			return nil, lr.Fail("unexpected line")
		}

		if err != nil {
			return nil, err
		}
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}

	return st.result, nil
}

func (st *booxState) newPending() {
	h := st.book.NewHighlight("")
	st.pending = &h
}

func (st *booxState) addHeading(text string, level int) {
	st.result = append(st.result, st.book.NewHeading(text, level))
}

// header handles "Reading Notes | <<Title - Author>>Section".
func (st *booxState) header(lr *lineReader) error {
	_, titleAuthorSection, ok := strings.Cut(lr.Line(), "<<")
	if !ok {
		return lr.Fail("missing <<title - author>>")
	}
	parts := strings.Split(titleAuthorSection, ">>")
	if len(parts) != 2 {
		return lr.Fail("malformed <<title - author>> section")
	}
	titleAuthor, section := parts[0], parts[1]

	idx := strings.LastIndex(titleAuthor, " - ")
	if idx < 0 {
		return lr.Fail("missing author")
	}
	st.book.Title = titleAuthor[:idx]
	st.book.Author = titleAuthor[idx+len(" - "):]

	if strings.Contains(section, booxSectionSplit) {
		h1, h2, err := splitSection(lr, section)
		if err != nil {
			return err
		}
		st.autoLevel = 2
		st.addHeading(h1, 1)
		st.addHeading(h2, 2)
		st.lastAutoTitle = h2
	} else {
		st.addHeading(section, 1)
		st.lastAutoTitle = section
	}

	st.newPending()
	return nil
}

// location handles "2023-01-27 18:58  |  Page No.: 785".
func (st *booxState) location(lr *lineReader) error {
	line := lr.Line()
	if st.pending == nil {
		return lr.Fail("expect pending highlight")
	}
	if hasLocation(st.pending) {
		return lr.Fail("expect new pending highlight")
	}

	_, pageText, _ := strings.Cut(line, booxPageMarker)
	page, err := strconv.Atoi(strings.TrimSpace(pageText))
	if err != nil {
		return lr.Fail("invalid page number")
	}
	date, _, _ := strings.Cut(line, booxDateSeparator)

	st.pending.LocationType = entities.LocationTypePage
	st.pending.Location = page
	st.pending.HighlightedAt = strings.ReplaceAll(strings.TrimSpace(date), " ", "T") + ":00" + booxTimezone

	// Headings emitted since the previous highlight point at this page.
	for i := len(st.result) - 1; i >= 0; i-- {
		prev := &st.result[i]
		if hasLocation(prev) {
			break
		}
		prev.LocationType = entities.LocationTypePage
		prev.Location = page
	}
	return nil
}

// section handles a chapter title line between highlights.
func (st *booxState) section(line string) {
	if strings.Contains(line, booxSectionSplit) {
		h1, h2, _ := strings.Cut(line, booxSectionSplit)
		st.addHeading(h1, 1)
		st.addHeading(h2, 2)
		return
	}
	if line != st.lastAutoTitle {
		st.lastAutoTitle = line
		st.addHeading(line, st.autoLevel)
	}
}

func splitSection(lr *lineReader, section string) (string, string, error) {
	parts := strings.Split(section, booxSectionSplit)
	if len(parts) != 2 {
		return "", "", lr.Fail("expect exactly two section levels")
	}
	return parts[0], parts[1], nil
}

func hasLocation(h *entities.Highlight) bool {
	return h.LocationType != ""
}

var _ Converter = (*BooxConverter)(nil)
