package importers

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/highlights"
	"github.com/doitian/readwise-scripts/internal/utils"
)

const (
	kindleTitleSel     = ".bookTitle"
	kindleAuthorsSel   = ".authors"
	kindleSourceURLSel = ".sourceURL"
	kindleBlockSel     = ".bodyContainer > div"

	kindleSectionHeading = "sectionHeading"
	kindleNoteHeading    = "noteHeading"
	kindleNoteText       = "noteText"
)

// kindleLabels are the literal strings of one notebook export language.
type kindleLabels struct {
	Highlight       string
	Note            string
	Location        string // "Highlight(yellow) - Location 70"
	ChapterLocation string // "Highlight(yellow) - Chapter > Location 70"
}

var (
	kindleLabelsEN = kindleLabels{
		Highlight:       "Highlight",
		Note:            "Note",
		Location:        " - Location ",
		ChapterLocation: " · Location ",
	}
	kindleLabelsZH = kindleLabels{
		Highlight:       "标注",
		Note:            "笔记",
		Location:        " -  位置 ",
		ChapterLocation: " >  位置 ",
	}
)

// KindleHTMLConverter parses the notebook HTML Kindle exports ("Export
// notes" → email) in English or Chinese.
type KindleHTMLConverter struct{}

func NewKindleHTMLConverter() *KindleHTMLConverter {
	return &KindleHTMLConverter{}
}

func (c *KindleHTMLConverter) Name() string { return "kindle-html" }

func (c *KindleHTMLConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", c.Name(), err)
	}

	titleSel := doc.Find(kindleTitleSel).First()
	if titleSel.Length() == 0 {
		return nil, c.fail("", "missing book title")
	}
	book := entities.Book{
		Title:      strings.TrimSpace(titleSel.Text()),
		Author:     strings.TrimSpace(doc.Find(kindleAuthorsSel).First().Text()),
		SourceType: entities.SourceKindle,
		Category:   entities.CategoryBooks,
	}
	if sourceURL := doc.Find(kindleSourceURLSel).First(); sourceURL.Length() > 0 {
		book.SourceURL = strings.TrimSpace(sourceURL.Text())
	}

	var result []entities.Highlight
	lastChapter := ""

	blocks := doc.Find(kindleBlockSel)
	for i := range blocks.Nodes {
		div := blocks.Eq(i)
		headingText := strings.TrimSpace(div.Text())

		if div.HasClass(kindleSectionHeading) {
			result = append(result, book.NewHeading(headingText, 1))
			continue
		}
		if !div.HasClass(kindleNoteHeading) {
			continue
		}
		labels := detectKindleLabels(headingText)
		if !strings.Contains(headingText, labels.Highlight) {
			// Notes are consumed together with the highlight they follow.
			continue
		}

		siblings := div.NextAllFiltered("div")
		if siblings.Length() > 3 {
			siblings = siblings.Slice(0, 3)
		}
		if siblings.Length() < 1 || !siblings.Eq(0).HasClass(kindleNoteText) {
			return nil, c.fail(headingText, "highlight has no noteText")
		}

		h := book.NewHighlight(strings.TrimSpace(siblings.Eq(0).Text()))
		if parts := strings.Split(headingText, labels.Location); len(parts) == 2 {
			h.Text = fmt.Sprintf("%s (Loc %s)", h.Text, parts[1])
		} else if parts := strings.Split(headingText, labels.ChapterLocation); len(parts) == 2 {
			h.Text = fmt.Sprintf("%s (Loc %s)", h.Text, parts[1])
			chapterParts := strings.SplitN(parts[0], ") - ", 2)
			if len(chapterParts) == 2 && chapterParts[1] != lastChapter {
				lastChapter = chapterParts[1]
				result = append(result, book.NewHeading(lastChapter, 2))
			}
		}

		switch siblings.Length() {
		case 2:
			return nil, c.fail(headingText, "odd number of following siblings")
		case 3:
			next, after := siblings.Eq(1), siblings.Eq(2)
			if !next.HasClass(kindleSectionHeading) &&
				(!next.HasClass(kindleNoteHeading) || !after.HasClass(kindleNoteText)) {
				return nil, c.fail(headingText, "unknown following siblings")
			}
			if next.HasClass(kindleNoteHeading) && strings.Contains(next.Text(), labels.Note) {
				h.Note = strings.TrimSpace(after.Text())
			}
		}

		if span := div.Find("span").First(); span.Length() > 0 {
			class, _ := span.Attr("class")
			if strings.Contains(class, "highlight") {
				if tag, ok := utils.ColorTag(span.Text()); ok {
					h.Note = highlights.AddTag(h.Note, tag)
				}
			}
		}

		result = append(result, h)
	}

	return result, nil
}

func (c *KindleHTMLConverter) fail(text, reason string) error {
	return &ParseError{Converter: c.Name(), Text: text, Reason: reason}
}

func detectKindleLabels(heading string) kindleLabels {
	if strings.Contains(heading, kindleLabelsZH.Highlight) || strings.Contains(heading, kindleLabelsZH.Note) {
		return kindleLabelsZH
	}
	return kindleLabelsEN
}

var _ Converter = (*KindleHTMLConverter)(nil)
