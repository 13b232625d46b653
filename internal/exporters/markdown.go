package exporters

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/utils"
)

const (
	continuationIndent = "    "
	lineBreakMarker    = "↩︎"
	visibleSpace       = "␣"
	endOfNoteMarker    = "\n∎"
)

// Document is one rendered Markdown file.
type Document struct {
	Filename   string
	Content    string
	Highlights int
}

// MarkdownRenderer writes one Obsidian note per document, grouping records
// by source URL, title and author in first-seen order.
type MarkdownRenderer struct {
	OutputDir   string
	Frontmatter bool
	Verbose     bool
	Result      ExportResult

	now func() time.Time
}

func NewMarkdownRenderer(outputDir string, frontmatter bool) *MarkdownRenderer {
	return &MarkdownRenderer{
		OutputDir:   outputDir,
		Frontmatter: frontmatter,
		now:         time.Now,
	}
}

func (r *MarkdownRenderer) Export(ctx context.Context, records []entities.Highlight) error {
	// Reset result state for each export
	r.Result = ExportResult{}

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	docs, err := r.Render(records)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		outputPath := filepath.Join(r.OutputDir, doc.Filename)
		if r.Verbose {
			log.Printf("Writing %d highlights to %s", doc.Highlights, outputPath)
		}
		if err := os.WriteFile(outputPath, []byte(doc.Content), 0644); err != nil {
			r.Result.BooksFailed++
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		r.Result.BooksProcessed++
		r.Result.HighlightsProcessed += doc.Highlights
	}

	return nil
}

// Render builds the documents without touching the filesystem.
func (r *MarkdownRenderer) Render(records []entities.Highlight) ([]Document, error) {
	var docs []Document
	for _, group := range groupRecords(records) {
		var b strings.Builder
		if r.Frontmatter {
			if err := r.writeFrontmatter(&b, group[0]); err != nil {
				return nil, err
			}
		}
		b.WriteString(RenderGroup(group))

		docs = append(docs, Document{
			Filename:   Filename(group[0]),
			Content:    b.String(),
			Highlights: len(group),
		})
	}
	return docs, nil
}

type frontmatter struct {
	ContentSource string   `yaml:"content_source"`
	ContentType   string   `yaml:"content_type"`
	CreatedAt     string   `yaml:"created_at"`
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author,omitempty"`
	Category      string   `yaml:"category,omitempty"`
	SourceURL     string   `yaml:"source_url,omitempty"`
	Tags          []string `yaml:"tags"`
}

func (r *MarkdownRenderer) writeFrontmatter(b *strings.Builder, first entities.Highlight) error {
	fm := frontmatter{
		ContentSource: sourceSlug(first.SourceType),
		ContentType:   "book_highlights",
		CreatedAt:     r.now().Format("2006-01-02"),
		Title:         titleOrUntitled(first.Title),
		Author:        first.Author,
		Category:      string(first.Category),
		SourceURL:     strings.TrimSpace(first.SourceURL),
		Tags:          []string{"highlights"},
	}
	if first.Category != "" {
		fm.Tags = append(fm.Tags, string(first.Category))
	}

	out, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	return nil
}

func groupRecords(records []entities.Highlight) [][]entities.Highlight {
	index := make(map[string]int)
	var groups [][]entities.Highlight
	for _, h := range records {
		key := h.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], h)
	}
	return groups
}

// RenderGroup renders the records of one document: page title, metadata
// block and the highlight list.
func RenderGroup(records []entities.Highlight) string {
	if len(records) == 0 {
		return ""
	}
	first := records[0]

	lines := []string{
		PageTitle(first.Author, first.Title),
		"",
		metadataSection(first),
		"",
		"## Highlights",
	}
	for _, h := range records {
		if md := RenderHighlight(h); md != "" {
			lines = append(lines, md)
		}
	}

	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n") + "\n"
}

func PageTitle(author, title string) string {
	title = titleOrUntitled(title)
	if a := utils.FormatAuthorForTitle(author); a != "" {
		return fmt.Sprintf("# %s - %s (Highlights)", a, title)
	}
	return fmt.Sprintf("# %s (Highlights)", title)
}

// Filename returns the sanitized file name of the document a record belongs to.
func Filename(h entities.Highlight) string {
	return utils.SanitizeFilename(strings.TrimPrefix(PageTitle(h.Author, h.Title), "# ")) + ".md"
}

func titleOrUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

func sourceSlug(sourceType string) string {
	if sourceType == "" {
		sourceType = entities.SourceUnknown
	}
	return strings.ReplaceAll(strings.ToLower(sourceType), " ", "-")
}

func metadataSection(h entities.Highlight) string {
	lines := []string{
		"## Metadata",
		"**Source**:: #from/" + sourceSlug(h.SourceType),
	}
	if authors := utils.SplitAuthors(h.Author); len(authors) > 0 {
		lines = append(lines, "**Authors**:: [["+strings.Join(authors, "]], [[")+"]]")
	}
	if h.Title != "" {
		lines = append(lines, "**Full Title**:: "+h.Title)
	}
	if h.Category != "" {
		lines = append(lines, fmt.Sprintf("**Category**:: #%s #readwise/%s", h.Category, h.Category))
	}
	if sourceURL := strings.TrimSpace(h.SourceURL); sourceURL != "" {
		if strings.HasPrefix(strings.ToLower(sourceURL), "zotero://") {
			lines = append(lines, fmt.Sprintf("**Zotero App Link**:: [Open in Zotero](%s)", sourceURL))
		} else {
			lines = append(lines, "**URL**:: "+sourceURL)
		}
	}
	return strings.Join(lines, "\n")
}

// RenderHighlight renders one record as a heading or a list item. It returns
// an empty string for a heading without any text.
func RenderHighlight(h entities.Highlight) string {
	nt := entities.ParseNote(h.Note)
	content := nt.Content

	if nt.HeadingLevel > 0 {
		heading := strings.TrimSpace(normalizeText(h.Text))
		if heading == "" && content != "" {
			heading = normalizeNote(content)
			content = ""
		}
		if heading == "" {
			return ""
		}
		lines := []string{strings.Repeat("#", nt.HeadingLevel) + " " + heading}
		if content != "" {
			lines = append(lines, "", normalizeNote(content))
		}
		return strings.Join(lines, "\n")
	}

	if len([]rune(strings.TrimSpace(h.Text))) <= 1 && content != "" {
		return normalizeNote(content)
	}

	firstPart, rest := splitHighlightText(h.Text)
	firstPart = strings.TrimSpace(firstPart)
	if firstPart == "" {
		firstPart = strings.TrimSpace(normalizeText(h.Text))
	}

	location := FormatLocation(h)
	suffix := ""
	switch {
	case location != "" && h.HighlightURL != "":
		suffix = fmt.Sprintf(" ([%s](%s))", location, h.HighlightURL)
	case location != "":
		suffix = fmt.Sprintf(" (%s)", location)
	}

	anchor := "^" + HighlightID(h.Text, location, h.Title)
	body := content
	if content != "" {
		firstLine, remaining, _ := strings.Cut(content, "\n")
		if strings.HasPrefix(strings.TrimSpace(firstLine), "^") {
			anchor = strings.TrimSpace(firstLine)
			body = strings.TrimSpace(remaining)
		}
	}

	lines := []string{strings.TrimRight(fmt.Sprintf("- %s%s %s", firstPart, suffix, anchor), " ")}
	if rest != "" {
		lines = append(lines, indent(rest))
	}
	if len(nt.Tags) > 0 {
		tags := make([]string, len(nt.Tags))
		for i, tag := range nt.Tags {
			tags[i] = "#" + tag
		}
		lines = append(lines, "", continuationIndent+strings.Join(tags, " "))
	}
	if body = normalizeNote(body); body != "" {
		lines = append(lines, indent(body))
	}

	return strings.Join(lines, "\n")
}

// FormatLocation returns "{location_type} {location}", or "" without a location.
func FormatLocation(h entities.Highlight) string {
	if h.Location == 0 {
		return ""
	}
	if h.LocationType != "" {
		return fmt.Sprintf("%s %d", h.LocationType, h.Location)
	}
	return strconv.Itoa(h.Location)
}

// HighlightID is the block reference id of a rendered highlight: the first
// 8 hex digits of the SHA-1 of text, location and title.
func HighlightID(text, location, title string) string {
	sum := sha1.Sum([]byte(text + "|" + location + "|" + title))
	return hex.EncodeToString(sum[:])[:8]
}

func normalizeText(text string) string {
	return strings.ReplaceAll(text, visibleSpace, " ")
}

func normalizeNote(note string) string {
	note = strings.ReplaceAll(note, endOfNoteMarker, "\n")
	return strings.TrimSpace(strings.ReplaceAll(note, visibleSpace, " "))
}

// splitHighlightText splits the text on the first line break marker. The
// part after it goes on continuation lines.
func splitHighlightText(text string) (string, string) {
	text = normalizeText(text)
	before, after, found := strings.Cut(text, lineBreakMarker)
	if !found {
		return text, ""
	}
	if before == "" {
		return lineBreakMarker, strings.TrimSpace(after)
	}
	return strings.TrimRight(before, " \t\r\n"), strings.TrimSpace(after)
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = continuationIndent + line
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}
