package importers

import (
	"fmt"
	"io"
	"log"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/parsers"
)

// MarkdownConverter reads highlight notes previously rendered by
// json-to-markdown, so edited notes can be uploaded again.
type MarkdownConverter struct {
	parser *parsers.MarkdownParser
}

func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{parser: parsers.NewMarkdownParser()}
}

func (c *MarkdownConverter) Name() string { return "markdown" }

func (c *MarkdownConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: read input: %w", c.Name(), err)
	}
	records, err := c.parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name(), err)
	}
	return records, nil
}

// ConvertDir reads every .md file under dir. It fails when any file could
// not be parsed, after logging each failure.
func (c *MarkdownConverter) ConvertDir(dir string) ([]entities.Highlight, error) {
	records, result, err := c.parser.ParseDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name(), err)
	}
	log.Printf("Parsed %d files (%d failed) with %d highlights from %s",
		result.BooksProcessed, result.BooksFailed, result.HighlightsProcessed, dir)
	if result.BooksFailed > 0 {
		return nil, fmt.Errorf("%s: %d of %d files in %s failed to parse", c.Name(),
			result.BooksFailed, result.BooksFailed+result.BooksProcessed, dir)
	}
	return records, nil
}

var _ Converter = (*MarkdownConverter)(nil)
