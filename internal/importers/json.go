package importers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// JSONConverter reads records that are already in Readwise form: a JSON
// array of highlight objects, e.g. the dry-run output of another converter.
// Keys Readwise adds on export, such as id or tags, are ignored.
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) Name() string { return "json" }

func (c *JSONConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	var result []entities.Highlight
	decoder := json.NewDecoder(r)

	// Several files may be concatenated, each holding one array.
	for {
		var batch []entities.Highlight
		err := decoder.Decode(&batch)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: decode highlights: %w", c.Name(), err)
		}
		result = append(result, batch...)
	}

	return result, nil
}

var _ Converter = (*JSONConverter)(nil)
