package entities

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type LocationType string

const (
	LocationTypePage     LocationType = "page"
	LocationTypeLocation LocationType = "location" // Kindle-style location
	LocationTypeOrder    LocationType = "order"
	LocationTypeTime     LocationType = "time"
)

type Category string

const (
	CategoryBooks    Category = "books"
	CategoryArticles Category = "articles"
)

// Source types sent to Readwise as source_type.
const (
	SourceBoox       = "Boox"
	SourceWeread     = "Weread"
	SourceDuku       = "Duku"
	SourceKindle     = "Kindle"
	SourcePDFExpert  = "PDF Expert"
	SourceZotero     = "Zotero"
	SourceAppleBooks = "Apple Books"
	SourceMoonReader = "MoonReader"
	SourceUnknown    = "readwise"
)

// Highlight is the normalized record every converter emits and every sink
// consumes. Field names follow the Readwise highlight creation API.
type Highlight struct {
	Text          string       `json:"text"`
	Title         string       `json:"title,omitempty"`
	Author        string       `json:"author,omitempty"`
	SourceType    string       `json:"source_type,omitempty"`
	Category      Category     `json:"category,omitempty"`
	SourceURL     string       `json:"source_url,omitempty"`
	HighlightURL  string       `json:"highlight_url,omitempty"`
	Location      int          `json:"location,omitempty"`
	LocationType  LocationType `json:"location_type,omitempty"`
	HighlightedAt string       `json:"highlighted_at,omitempty"`
	Note          string       `json:"note,omitempty"`
}

// Book holds the metadata shared by every highlight of one source document.
// Converters copy it into each record they emit.
type Book struct {
	Title      string
	Author     string
	SourceType string
	Category   Category
	SourceURL  string
}

// NewHighlight returns a record carrying the book metadata and the given text.
func (b Book) NewHighlight(text string) Highlight {
	return Highlight{
		Text:       text,
		Title:      b.Title,
		Author:     b.Author,
		SourceType: b.SourceType,
		Category:   b.Category,
		SourceURL:  b.SourceURL,
	}
}

// NewHeading returns a synthetic heading record of the given level (1-3).
func (b Book) NewHeading(text string, level int) Highlight {
	h := b.NewHighlight(text)
	h.Note = HeadingTag(level)
	return h
}

// GroupKey identifies the document a highlight belongs to.
func (h Highlight) GroupKey() string {
	return h.SourceURL + "|" + h.Title + "|" + h.Author
}

// FirstNoteToken returns the first whitespace separated token of the note.
func (h Highlight) FirstNoteToken() string {
	fields := strings.Fields(h.Note)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HeadingLevel returns 1-3 when the note's first token is .h1-.h3, 0 otherwise.
func (h Highlight) HeadingLevel() int {
	return tagLevel(h.FirstNoteToken(), 'h', MaxHeadingLevel)
}

func (h Highlight) IsHeading() bool {
	return h.HeadingLevel() > 0
}

// ConcatIndex returns 1-5 when the note's first token is .c1-.c5, 0 otherwise.
func (h Highlight) ConcatIndex() int {
	return tagLevel(h.FirstNoteToken(), 'c', MaxConcatIndex)
}

func (h Highlight) IsConcatenating() bool {
	return h.ConcatIndex() > 0
}

var knownLocationTypes = []any{
	LocationTypePage,
	LocationTypeLocation,
	LocationTypeOrder,
	LocationTypeTime,
}

// ErrEmptyText is returned by Validate for a record without text.
var ErrEmptyText = errors.New("highlight text is required")

// Validate checks the invariants a record must satisfy before it leaves a converter.
func (h Highlight) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Text, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return ErrEmptyText
			}
			return nil
		})),
		validation.Field(&h.Location, validation.Min(0)),
		validation.Field(&h.LocationType, validation.In(knownLocationTypes...)),
		validation.Field(&h.Category, validation.In(CategoryBooks, CategoryArticles)),
		validation.Field(&h.SourceURL, validation.By(validURL)),
		validation.Field(&h.HighlightURL, validation.By(validURL)),
	)
}

func validURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return validation.NewError("validation_url_invalid", "must be an absolute URL")
	}
	return nil
}
