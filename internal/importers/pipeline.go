package importers

import (
	"context"
	"fmt"
	"io"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/highlights"
)

// Converter turns one export format into highlight records.
// Each import source implements this interface.
//
// Implementations:
//   - BooxConverter (boox.go) - Boox reading notes text export
//   - WereadConverter (weread.go) - WeRead notes text export
//   - DukuConverter (duku.go) - Duku markdown-ish notes export
//   - CSVConverter (csv.go) - generic CSV with Readwise column names
//   - KindleHTMLConverter (kindle_html.go) - Kindle notebook HTML export
//   - PDFExpertConverter (pdfexpert.go) - PDF Expert annotation summary
//   - JSONConverter (json.go) - records already in Readwise JSON form
//   - KindleClippingsConverter (kindle_clippings.go) - Kindle My Clippings.txt
//   - MarkdownConverter (markdown.go) - Markdown files rendered by exporters
type Converter interface {
	Name() string
	// Convert reads the whole input and returns the records in input order.
	// Malformed input is an error, nothing is skipped silently.
	Convert(r io.Reader) ([]entities.Highlight, error)
}

// Exporter consumes the normalized records: uploads them, prints them or
// renders them to files.
type Exporter interface {
	Export(ctx context.Context, records []entities.Highlight) error
}

// ImportResult summarizes one pipeline run.
type ImportResult struct {
	Converted int `json:"converted"`
	Exported  int `json:"exported"`
	Headings  int `json:"headings"`
	Merged    int `json:"merged"`
}

// Pipeline handles the common import workflow:
// convert → merge concatenated fragments → validate → export.
type Pipeline struct {
	exporter Exporter
}

// NewPipeline creates a new import pipeline with the given exporter.
func NewPipeline(exporter Exporter) *Pipeline {
	return &Pipeline{exporter: exporter}
}

// Import converts the input and exports the resulting records.
func (p *Pipeline) Import(ctx context.Context, converter Converter, r io.Reader) (ImportResult, error) {
	records, err := converter.Convert(r)
	if err != nil {
		return ImportResult{}, err
	}
	return p.ImportRecords(ctx, records)
}

// ImportRecords exports records that were collected without a Converter,
// e.g. fetched from the Zotero API or read from an app database.
func (p *Pipeline) ImportRecords(ctx context.Context, records []entities.Highlight) (ImportResult, error) {
	squashed := highlights.Squash(records)
	for i, h := range squashed {
		if err := h.Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("invalid record %d (%s): %w", i+1, preview(h.Text), err)
		}
	}

	if err := p.exporter.Export(ctx, squashed); err != nil {
		return ImportResult{}, err
	}

	return ImportResult{
		Converted: len(records),
		Exported:  len(squashed),
		Headings:  highlights.CountHeadings(squashed),
		Merged:    len(records) - len(squashed),
	}, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 40 {
		return fmt.Sprintf("%q...", string(runes[:40]))
	}
	return fmt.Sprintf("%q", text)
}
