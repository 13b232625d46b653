package kindle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// Entry types in Kindle clippings
type EntryType string

const (
	EntryTypeHighlight EntryType = "highlight"
	EntryTypeNote      EntryType = "note"
	EntryTypeBookmark  EntryType = "bookmark"
)

// ClippingEntry represents a single parsed entry from My Clippings.txt
type ClippingEntry struct {
	Title       string
	Author      string
	Type        EntryType
	Page        int
	PageEnd     int
	Location    int
	LocationEnd int
	AddedAt     time.Time
	Text        string
}

// EntryError reports a clipping entry that cannot be parsed.
type EntryError struct {
	Entry  int
	Reason string
	Text   string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d: %s: %q", e.Entry, e.Reason, e.Text)
}

// Parser parses Kindle My Clippings.txt format
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

const entrySeparator = "=========="

// Regex patterns for parsing metadata lines
var (
	// Matches: "- Your Highlight on page 8 | Location 64-64 | Added on Tuesday, April 15, 2025 10:16:21 PM"
	// or: "- Your Note on page 31 | Location 307 | Added on Tuesday, April 15, 2025 11:33:26 PM"
	// or: "- Your Highlight at location 784-785 | Added on Saturday, 26 March 2016 18:37:26"
	// or: "- Your Bookmark at location 346 | Added on Saturday, 26 March 2016 15:46:21"
	metadataPattern = regexp.MustCompile(`^- Your (Highlight|Note|Bookmark)`)

	pagePattern     = regexp.MustCompile(`(?i)(?:on )?page (\d+)(?:-(\d+))?`)
	locationPattern = regexp.MustCompile(`(?i)(?:at )?location (\d+)(?:-(\d+))?`)

	// Date formats observed in the wild
	datePatterns = []string{
		"Added on Monday, January 2, 2006 3:04:05 PM",
		"Added on Monday, January 2, 2006 15:04:05",
		"Added on Monday, 2 January 2006 3:04:05 PM",
		"Added on Monday, 2 January 2006 15:04:05",
	}

	// Title with author: "Book Title (Author Name)"
	titleAuthorPattern = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)
)

// Parse reads a Kindle My Clippings.txt file and returns one record per
// highlight in file order. Notes are attached to the highlight at the same
// location; a note without one becomes a record of its own.
func (p *Parser) Parse(r io.Reader) ([]entities.Highlight, error) {
	entries, err := p.ParseEntries(r)
	if err != nil {
		return nil, err
	}

	return toHighlights(entries), nil
}

// ParseEntries parses individual clipping entries from the reader.
// Bookmarks and empty highlights are skipped; any other malformed entry is
// an error.
func (p *Parser) ParseEntries(r io.Reader) ([]ClippingEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []ClippingEntry
	var currentLines []string
	index := 0

	flush := func() error {
		if len(currentLines) == 0 {
			return nil
		}
		index++
		entry, err := p.parseEntry(index, currentLines)
		currentLines = nil
		if err != nil {
			return err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\ufeff")

		if strings.TrimSpace(line) == entrySeparator {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		// Blank lines between entries belong to no entry.
		if len(currentLines) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		currentLines = append(currentLines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading clippings: %w", err)
	}

	// Handle last entry if file doesn't end with separator
	if err := flush(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (p *Parser) parseEntry(index int, lines []string) (*ClippingEntry, error) {
	titleLine := strings.TrimSpace(lines[0])
	if len(lines) < 2 {
		return nil, &EntryError{Entry: index, Reason: "entry too short", Text: titleLine}
	}

	title, author := parseTitleAuthor(titleLine)

	metadataLine := strings.TrimSpace(lines[1])
	if !metadataPattern.MatchString(metadataLine) {
		return nil, &EntryError{Entry: index, Reason: "invalid metadata line", Text: metadataLine}
	}

	entryType := parseEntryType(metadataLine)
	if entryType == EntryTypeBookmark {
		return nil, nil
	}

	page, pageEnd := parsePageRange(metadataLine)
	location, locationEnd := parseLocationRange(metadataLine)
	addedAt := parseDate(metadataLine)

	// Format is: title, metadata, blank line, content
	text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
	if text == "" {
		// Kindle writes empty highlights when the clipping limit is reached.
		return nil, nil
	}

	return &ClippingEntry{
		Title:       title,
		Author:      author,
		Type:        entryType,
		Page:        page,
		PageEnd:     pageEnd,
		Location:    location,
		LocationEnd: locationEnd,
		AddedAt:     addedAt,
		Text:        text,
	}, nil
}

func parseTitleAuthor(line string) (title, author string) {
	matches := titleAuthorPattern.FindStringSubmatch(line)
	if len(matches) == 3 {
		return strings.TrimSpace(matches[1]), strings.TrimSpace(matches[2])
	}
	return strings.TrimSpace(line), ""
}

func parseEntryType(line string) EntryType {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "your note"):
		return EntryTypeNote
	case strings.Contains(lower, "your bookmark"):
		return EntryTypeBookmark
	default:
		return EntryTypeHighlight
	}
}

func parsePageRange(line string) (page, pageEnd int) {
	return parseRange(pagePattern, line)
}

func parseLocationRange(line string) (location, locationEnd int) {
	return parseRange(locationPattern, line)
}

func parseRange(pattern *regexp.Regexp, line string) (start, end int) {
	matches := pattern.FindStringSubmatch(line)
	if len(matches) >= 2 {
		start, _ = strconv.Atoi(matches[1])
		if len(matches) >= 3 && matches[2] != "" {
			end, _ = strconv.Atoi(matches[2])
		}
	}
	return
}

func parseDate(line string) time.Time {
	idx := strings.Index(strings.ToLower(line), "added on")
	if idx == -1 {
		return time.Time{}
	}

	dateStr := strings.TrimSpace("Added on" + line[idx+8:])
	for _, pattern := range datePatterns {
		t, err := time.Parse(pattern, dateStr)
		if err == nil {
			return t
		}
	}

	return time.Time{}
}

func toHighlights(entries []ClippingEntry) []entities.Highlight {
	var result []entities.Highlight
	// Index into result of the latest highlight per book and position.
	byPosition := make(map[string]int)

	for _, entry := range entries {
		key := positionKey(entry)

		if entry.Type == EntryTypeNote {
			if i, ok := byPosition[key]; ok {
				h := &result[i]
				if h.Note == "" {
					h.Note = entry.Text
				} else {
					h.Note = h.Note + "\n\n" + entry.Text
				}
				continue
			}
		}

		byPosition[key] = len(result)
		result = append(result, entryToHighlight(entry))
	}

	return result
}

func entryToHighlight(entry ClippingEntry) entities.Highlight {
	book := entities.Book{
		Title:      entry.Title,
		Author:     entry.Author,
		SourceType: entities.SourceKindle,
		Category:   entities.CategoryBooks,
	}
	h := book.NewHighlight(entry.Text)

	// Prefer location over page for Kindle
	if entry.Location > 0 {
		h.LocationType = entities.LocationTypeLocation
		h.Location = entry.Location
	} else if entry.Page > 0 {
		h.LocationType = entities.LocationTypePage
		h.Location = entry.Page
	}
	if !entry.AddedAt.IsZero() {
		h.HighlightedAt = entry.AddedAt.Format(time.RFC3339)
	}

	return h
}

// positionKey matches a note to its highlight. Kindle reports a note at the
// end location of the highlight range.
func positionKey(entry ClippingEntry) string {
	loc := entry.Location
	if entry.Type == EntryTypeHighlight && entry.LocationEnd > 0 {
		loc = entry.LocationEnd
	}
	if loc == 0 {
		loc = entry.Page
		if entry.Type == EntryTypeHighlight && entry.PageEnd > 0 {
			loc = entry.PageEnd
		}
	}
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(entry.Title), strings.ToLower(entry.Author), loc)
}
