package importers

import (
	"io"
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// WereadConverter parses the notes WeRead copies to the clipboard:
//
//	《Title》
//	Author
//	https://weread.qq.com/web/bookDetail/...
//	2个笔记
//
//	.h1 Chapter
//
//	>> highlighted text
//
//	https://weread.qq.com/web/reader/...#1
type WereadConverter struct{}

func NewWereadConverter() *WereadConverter {
	return &WereadConverter{}
}

func (c *WereadConverter) Name() string { return "weread" }

func (c *WereadConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	lr := newLineReader(c.Name(), r)
	book := entities.Book{
		SourceType: entities.SourceWeread,
		Category:   entities.CategoryBooks,
	}
	authorSeen := false
	seenURLs := make(map[string]bool)

	var result []entities.Highlight
	var pending *entities.Highlight
	flush := func() {
		if pending != nil {
			result = append(result, *pending)
			pending = nil
		}
	}

	for lr.Next() {
		line := lr.Line()
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "《") && strings.HasSuffix(line, "》"):
			book.Title = strings.TrimSuffix(strings.TrimPrefix(line, "《"), "》")
		case !authorSeen:
			book.Author = line
			authorSeen = true
		case book.SourceURL == "" && strings.HasPrefix(line, "https://"):
			book.SourceURL = line
		case isWereadHeading(line):
			flush()
			result = append(result, book.NewHeading(line[4:], int(line[2]-'0')))
		case strings.HasPrefix(line, ">> "):
			flush()
			h := book.NewHighlight(strings.TrimPrefix(line, ">> "))
			pending = &h
		case strings.HasPrefix(line, "https://"):
			if pending == nil {
				return nil, lr.Fail("expect pending highlight")
			}
			if seenURLs[line] {
				return nil, lr.Fail("duplicated highlight url")
			}
			seenURLs[line] = true
			pending.HighlightURL = line
		case pending != nil:
			return nil, lr.Fail("unexpected line")
		}
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}

	flush()
	return result, nil
}

func isWereadHeading(line string) bool {
	return strings.HasPrefix(line, ".h1 ") ||
		strings.HasPrefix(line, ".h2 ") ||
		strings.HasPrefix(line, ".h3 ")
}

var _ Converter = (*WereadConverter)(nil)
