package importers

import (
	"io"
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const dukuTitlePrefix = "读库 - "

// DukuConverter parses the notes exported by the Duku (读库) app:
//
//	# 佚名 导出的笔记
//	* 佚名 通过读库导出的笔记
//	## 《Article》
//	**Author** · **读库** · _2022-09-06 13:56_
//	> highlighted text
type DukuConverter struct{}

func NewDukuConverter() *DukuConverter {
	return &DukuConverter{}
}

func (c *DukuConverter) Name() string { return "duku" }

func (c *DukuConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	lr := newLineReader(c.Name(), r)
	book := entities.Book{
		SourceType: entities.SourceDuku,
		Category:   entities.CategoryBooks,
	}

	var result []entities.Highlight
	for lr.Next() {
		line := lr.Line()
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "## 《") && strings.HasSuffix(line, "》"):
			book.Title = dukuTitlePrefix + strings.TrimSuffix(strings.TrimPrefix(line, "## 《"), "》")
		case strings.HasPrefix(line, "## "):
			book.Title = dukuTitlePrefix + strings.TrimPrefix(line, "## ")
		case strings.HasPrefix(line, "**"):
			book.Author = strings.TrimSpace(strings.Split(line, "**")[1])
		case strings.HasPrefix(line, "> "):
			result = append(result, book.NewHighlight(strings.TrimPrefix(line, "> ")))
		case strings.HasPrefix(line, "# "), strings.HasPrefix(line, "* "):
			// export banner
		default:
			return nil, lr.Fail("unexpected line")
		}
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

var _ Converter = (*DukuConverter)(nil)
