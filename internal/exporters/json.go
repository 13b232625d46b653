package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// JSONWriter prints records as an indented JSON array. It is the dry-run
// sink and its output is accepted back by the json command.
type JSONWriter struct {
	w      io.Writer
	Result ExportResult
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (jw *JSONWriter) Export(ctx context.Context, records []entities.Highlight) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []entities.Highlight{}
	}

	encoder := json.NewEncoder(jw.w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to write highlights: %w", err)
	}

	jw.Result.HighlightsProcessed += len(records)
	return nil
}
