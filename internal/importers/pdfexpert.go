package importers

import (
	"fmt"
	"io"
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const (
	pdfExpertSummaryPrefix   = "# Annotation Summary of "
	pdfExpertHeadingPrefix   = "#### "
	pdfExpertHighlightPrefix = "*Highlight ["
	pdfExpertNotePrefix      = "*and Note ["
	pdfExpertBodyMarker      = "]:* "
)

type pdfExpertState int

const (
	pdfExpertBody pdfExpertState = iota
	pdfExpertInHighlight
	pdfExpertInNote
)

// PDFExpertConverter parses the Markdown annotation summary exported by
// PDF Expert:
//
//	# Annotation Summary of Author - Title.pdf
//	<https://example.com/source>
//	#### Chapter
//	*Highlight [12]:* highlighted text
//	*and Note [12]:* note text
type PDFExpertConverter struct{}

func NewPDFExpertConverter() *PDFExpertConverter {
	return &PDFExpertConverter{}
}

func (c *PDFExpertConverter) Name() string { return "pdf-expert" }

func (c *PDFExpertConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	lr := newLineReader(c.Name(), r)
	book := entities.Book{
		SourceType: entities.SourcePDFExpert,
		Category:   entities.CategoryBooks,
	}

	var result []entities.Highlight
	var pending *entities.Highlight
	state := pdfExpertBody

	finalize := func() {
		if pending == nil {
			return
		}
		pending.Text = strings.TrimSpace(pending.Text)
		pending.Note = strings.TrimSpace(pending.Note)
		result = append(result, *pending)
		pending = nil
	}

	for lr.Next() {
		line := lr.Line()

		switch {
		case lr.lineNo == 1:
			if !strings.HasPrefix(line, pdfExpertSummaryPrefix) {
				return nil, lr.Fail("expect annotation summary title")
			}
			author, title, ok := strings.Cut(strings.TrimPrefix(line, pdfExpertSummaryPrefix), " - ")
			if !ok {
				return nil, lr.Fail("expect \"Author - Title\"")
			}
			if idx := strings.LastIndex(title, ".pdf"); idx >= 0 {
				title = title[:idx]
			}
			book.Author = author
			book.Title = title
		case lr.lineNo == 2 && strings.HasPrefix(line, "<"):
			book.SourceURL = strings.TrimSuffix(strings.TrimPrefix(line, "<"), ">")
		case strings.HasPrefix(line, pdfExpertHeadingPrefix):
			state = pdfExpertBody
			finalize()
			result = append(result, book.NewHeading(strings.TrimSpace(strings.TrimPrefix(line, pdfExpertHeadingPrefix)), 1))
		case strings.HasPrefix(line, pdfExpertHighlightPrefix):
			state = pdfExpertInHighlight
			finalize()

			page, text, err := splitPDFExpertMarker(lr, pdfExpertHighlightPrefix)
			if err != nil {
				return nil, err
			}
			h := book.NewHighlight(fmt.Sprintf("%s (Page %s)", text, page))
			pending = &h
		case strings.HasPrefix(line, pdfExpertNotePrefix):
			state = pdfExpertInNote
			if pending == nil {
				return nil, lr.Fail("note without highlight")
			}

			_, note, err := splitPDFExpertMarker(lr, pdfExpertNotePrefix)
			if err != nil {
				return nil, err
			}
			pending.Note = note
			if isHeadingNote(note) {
				if idx := strings.LastIndex(pending.Text, " (Page"); idx >= 0 {
					pending.Text = pending.Text[:idx]
				}
			}
		case state == pdfExpertInHighlight:
			pending.Text += "\n" + line
		case state == pdfExpertInNote:
			pending.Note += "\n" + line
		}
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}

	finalize()
	return result, nil
}

// splitPDFExpertMarker splits "*Highlight [12]:* text" into "12" and "text".
func splitPDFExpertMarker(lr *lineReader, prefix string) (string, string, error) {
	rest := strings.TrimPrefix(lr.Line(), prefix)
	page, text, ok := strings.Cut(rest, pdfExpertBodyMarker)
	if !ok {
		if strings.HasSuffix(rest, "]:*") {
			return strings.TrimSuffix(rest, "]:*"), "", nil
		}
		return "", "", lr.Fail("malformed annotation marker")
	}
	return page, text, nil
}

func isHeadingNote(note string) bool {
	return note == ".h1" || note == ".h2" || note == ".h3"
}

var _ Converter = (*PDFExpertConverter)(nil)
