package importers

import (
	"fmt"
	"io"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/kindle"
)

// KindleClippingsConverter reads the My Clippings.txt file kept on Kindle
// devices.
type KindleClippingsConverter struct {
	parser *kindle.Parser
}

func NewKindleClippingsConverter() *KindleClippingsConverter {
	return &KindleClippingsConverter{parser: kindle.NewParser()}
}

func (c *KindleClippingsConverter) Name() string { return "kindle-clippings" }

func (c *KindleClippingsConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	records, err := c.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name(), err)
	}
	return records, nil
}

var _ Converter = (*KindleClippingsConverter)(nil)
