package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// csvColumnMapping maps spreadsheet style headers to record fields.
var csvColumnMapping = map[string]string{
	"Highlight": "text",
	"Title":     "title",
	"Author":    "author",
	"URL":       "source_url",
	"Note":      "note",
	"Location":  "location",
	"Date":      "highlighted_at",
}

// CSVConverter parses a CSV file whose header row names highlight fields,
// either with the spreadsheet names above or with the record field names
// themselves (source_type, category, location_type, ...).
type CSVConverter struct{}

func NewCSVConverter() *CSVConverter {
	return &CSVConverter{}
}

func (c *CSVConverter) Name() string { return "csv" }

func (c *CSVConverter) Convert(r io.Reader) ([]entities.Highlight, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: failed to read header: %w", err)
	}

	fields := make([]string, len(header))
	for i, column := range header {
		field, ok := csvField(column)
		if !ok {
			return nil, &ParseError{Converter: c.Name(), Line: 1, Text: column, Reason: "unsupported column"}
		}
		fields[i] = field
	}

	var result []entities.Highlight
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		h := entities.Highlight{}
		hasLocation := false
		for i, value := range record {
			if value == "" {
				continue
			}
			hasLocation = hasLocation || fields[i] == "location"
			if err := setCSVField(&h, fields[i], value); err != nil {
				return nil, &ParseError{Converter: c.Name(), Line: line, Text: value, Reason: err.Error()}
			}
		}
		if hasLocation && h.LocationType == "" {
			h.LocationType = entities.LocationTypePage
		}
		result = append(result, h)
	}

	return result, nil
}

func csvField(column string) (string, bool) {
	column = strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))
	if field, ok := csvColumnMapping[column]; ok {
		return field, true
	}

	field := strings.ReplaceAll(strings.ToLower(column), " ", "_")
	switch field {
	case "text", "title", "author", "source_type", "category", "source_url",
		"highlight_url", "location", "location_type", "highlighted_at", "note":
		return field, true
	}
	return "", false
}

func setCSVField(h *entities.Highlight, field, value string) error {
	switch field {
	case "text":
		h.Text = value
	case "title":
		h.Title = value
	case "author":
		h.Author = value
	case "source_type":
		h.SourceType = value
	case "category":
		h.Category = entities.Category(value)
	case "source_url":
		h.SourceURL = value
	case "highlight_url":
		h.HighlightURL = value
	case "location":
		location, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return errors.New("location must be an integer")
		}
		h.Location = location
	case "location_type":
		h.LocationType = entities.LocationType(strings.ToLower(value))
	case "highlighted_at":
		h.HighlightedAt = value
	case "note":
		h.Note = value
	}
	return nil
}

var _ Converter = (*CSVConverter)(nil)
