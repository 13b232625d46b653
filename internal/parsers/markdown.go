package parsers

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/utils"
)

// MarkdownParser reads highlight notes written by exporters.MarkdownRenderer
// back into records.
type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{md: goldmark.New()}
}

// ParseResult contains the results of parsing markdown files
type ParseResult struct {
	BooksProcessed      int `json:"books_processed"`
	HighlightsProcessed int `json:"highlights_processed"`
	BooksFailed         int `json:"books_failed"`
}

// ParseDir recursively walks through a directory and parses all .md files.
// A path that cannot be read or parsed is logged and counted in
// BooksFailed, the walk continues.
func (parser *MarkdownParser) ParseDir(rootDir string) ([]entities.Highlight, ParseResult, error) {
	var records []entities.Highlight
	result := ParseResult{}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("Error accessing path %s: %v", path, err)
			result.BooksFailed++
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		parsed, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			log.Printf("Failed to parse file %s: %v", path, parseErr)
			result.BooksFailed++
			return nil
		}

		records = append(records, parsed...)
		result.BooksProcessed++
		result.HighlightsProcessed += len(parsed)
		return nil
	})
	if err != nil {
		return records, result, fmt.Errorf("failed to walk directory %s: %w", rootDir, err)
	}

	return records, result, nil
}

// ParseFile reads a single markdown file.
func (parser *MarkdownParser) ParseFile(filePath string) ([]entities.Highlight, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	return parser.Parse(source)
}

type frontMatterEnvelope struct {
	ContentSource string `yaml:"content_source"`
	Title         string `yaml:"title"`
	Author        string `yaml:"author"`
	Category      string `yaml:"category"`
	SourceURL     string `yaml:"source_url"`
}

const (
	sectionNone = iota
	sectionMetadata
	sectionHighlights
)

// Parse reads one rendered document. The optional YAML frontmatter and the
// metadata block give the book; every heading, list item and paragraph
// under "## Highlights" gives one record.
func (parser *MarkdownParser) Parse(source []byte) ([]entities.Highlight, error) {
	var meta frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	doc := parser.md.Parser().Parse(text.NewReader(body))

	var book entities.Book
	var pageTitle string
	var records []entities.Highlight
	section := sectionNone
	// Index of the heading record a following paragraph belongs to.
	lastHeading := -1

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := joinLines(blockLines(node, body))
			if section != sectionHighlights {
				switch {
				case node.Level == 1 && pageTitle == "":
					pageTitle = title
				case node.Level == 2 && title == "Metadata":
					section = sectionMetadata
				case node.Level == 2 && title == "Highlights":
					section = sectionHighlights
				}
				continue
			}
			if title == "" {
				continue
			}
			lastHeading = len(records)
			records = append(records, entities.Highlight{
				Text: title,
				Note: entities.HeadingTag(min(node.Level, entities.MaxHeadingLevel)),
			})
			continue

		case *ast.Paragraph:
			lines := blockLines(node, body)
			switch {
			case section == sectionMetadata:
				for _, line := range lines {
					parseMetadataLine(&book, line.text)
				}
			case section == sectionHighlights && lastHeading == len(records)-1 && lastHeading >= 0:
				records[lastHeading].Note += "\n" + joinLines(lines)
			case section == sectionHighlights:
				records = append(records, entities.Highlight{Text: joinLines(lines)})
			}

		case *ast.List:
			if section == sectionHighlights {
				for item := n.FirstChild(); item != nil; item = item.NextSibling() {
					records = append(records, parseListItem(item, body)...)
				}
			}
		}
		lastHeading = -1
	}

	fillBook(&book, meta, pageTitle)
	for i := range records {
		h := &records[i]
		h.Title = book.Title
		h.Author = book.Author
		h.SourceType = book.SourceType
		h.Category = book.Category
		h.SourceURL = book.SourceURL
	}

	return records, nil
}

type sourceLine struct {
	text string
	// lazy marks a paragraph continuation line without indentation. Inside a
	// list item it starts text that is not part of the item.
	lazy bool
}

func blockLines(n ast.Node, source []byte) []sourceLine {
	segments := n.Lines()
	lines := make([]sourceLine, 0, segments.Len())
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		lineStart := bytes.LastIndexByte(source[:seg.Start], '\n') + 1
		lines = append(lines, sourceLine{
			text: strings.TrimSpace(string(seg.Value(source))),
			lazy: seg.Start == lineStart && seg.Padding == 0,
		})
	}
	return lines
}

func joinLines(lines []sourceLine) string {
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.text
	}
	return strings.Join(texts, "\n")
}

// collectBlocks returns the lines of every leaf block under n, one slice
// per block, in document order.
func collectBlocks(n ast.Node, source []byte) [][]sourceLine {
	var blocks [][]sourceLine
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() != ast.TypeBlock {
			continue
		}
		if c.Lines().Len() > 0 {
			blocks = append(blocks, blockLines(c, source))
			continue
		}
		blocks = append(blocks, collectBlocks(c, source)...)
	}
	return blocks
}

var (
	// "- text (page 12) ^a1b2c3d4" or "- text ([page 12](url)) ^a1b2c3d4"
	itemHeadPattern = regexp.MustCompile(`^(.*?)(?: \((?:\[((?:\w+ )?\d+)\]\((\S+)\)|((?:\w+ )?\d+))\))? (\^[A-Za-z0-9-]+)$`)
	locationPattern = regexp.MustCompile(`^(?:(\w+) )?(\d+)$`)
	generatedAnchor = regexp.MustCompile(`^\^[0-9a-f]{8}$`)
)

func parseListItem(item ast.Node, source []byte) []entities.Highlight {
	blocks := collectBlocks(item, source)
	if len(blocks) == 0 || len(blocks[0]) == 0 {
		return nil
	}

	var trailing []string
	for bi, block := range blocks {
		for li, line := range block {
			if bi == 0 && li == 0 || !line.lazy {
				continue
			}
			// Lazy lines only end the last paragraph of an item.
			for _, rest := range block[li:] {
				trailing = append(trailing, rest.text)
			}
			blocks[bi] = block[:li]
			break
		}
	}

	h := parseItemHead(blocks[0][0].text)
	var nt entities.NoteTags
	var content []string
	if anchor := h.Note; anchor != "" {
		content = append(content, anchor)
		h.Note = ""
	}

	var rest [][]sourceLine
	if len(blocks[0]) > 1 {
		rest = append(rest, blocks[0][1:])
	}
	rest = append(rest, blocks[1:]...)
	for _, block := range rest {
		if len(block) == 0 {
			continue
		}
		if tags, ok := parseTagLine(block[0].text); ok && nt.Tags == nil {
			nt.Tags = tags
			block = block[1:]
		}
		if len(block) > 0 {
			content = append(content, joinLines(block))
		}
	}
	nt.Content = strings.Join(content, "\n")
	h.Note = nt.String()

	result := []entities.Highlight{h}
	if len(trailing) > 0 {
		result = append(result, entities.Highlight{Text: strings.Join(trailing, "\n")})
	}
	return result
}

// parseItemHead splits the first line of a list item into text, location
// and anchor. A custom anchor is returned in Note.
func parseItemHead(line string) entities.Highlight {
	m := itemHeadPattern.FindStringSubmatch(line)
	if m == nil {
		return entities.Highlight{Text: line}
	}

	h := entities.Highlight{Text: m[1], HighlightURL: m[3]}
	location := m[4]
	if m[2] != "" {
		location = m[2]
	}
	if lm := locationPattern.FindStringSubmatch(location); lm != nil {
		h.Location, _ = strconv.Atoi(lm[2])
		h.LocationType = entities.LocationType(lm[1])
	}
	if !generatedAnchor.MatchString(m[5]) {
		h.Note = m[5]
	}
	return h
}

func parseTagLine(line string) ([]string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	tags := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 || field[0] != '#' || field[1] == '#' {
			return nil, false
		}
		tags = append(tags, field[1:])
	}
	return tags, true
}

var sourceTypes = map[string]string{
	"boox":        entities.SourceBoox,
	"weread":      entities.SourceWeread,
	"duku":        entities.SourceDuku,
	"kindle":      entities.SourceKindle,
	"pdf-expert":  entities.SourcePDFExpert,
	"zotero":      entities.SourceZotero,
	"apple-books": entities.SourceAppleBooks,
	"moonreader":  entities.SourceMoonReader,
}

func sourceType(slug string) string {
	if st, ok := sourceTypes[slug]; ok {
		return st
	}
	if slug == entities.SourceUnknown {
		return ""
	}
	return slug
}

var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
var markdownLinkPattern = regexp.MustCompile(`^\[[^\]]*\]\((\S+)\)$`)

// parseMetadataLine reads one "**Key**:: value" line.
func parseMetadataLine(book *entities.Book, line string) {
	key, value, ok := strings.Cut(line, "**:: ")
	if !ok || !strings.HasPrefix(key, "**") {
		return
	}
	value = strings.TrimSpace(value)

	switch strings.TrimPrefix(key, "**") {
	case "Source":
		book.SourceType = sourceType(strings.TrimPrefix(value, "#from/"))
	case "Authors":
		var authors []string
		for _, m := range wikiLinkPattern.FindAllStringSubmatch(value, -1) {
			authors = append(authors, m[1])
		}
		book.Author = strings.Join(authors, " & ")
	case "Full Title":
		book.Title = value
	case "Category":
		if fields := strings.Fields(value); len(fields) > 0 {
			book.Category = entities.Category(strings.TrimPrefix(fields[0], "#"))
		}
	case "URL":
		book.SourceURL = value
	case "Zotero App Link":
		if m := markdownLinkPattern.FindStringSubmatch(value); m != nil {
			book.SourceURL = m[1]
		}
	}
}

// fillBook completes the metadata block from the frontmatter, then from the
// page title "Author - Title (Highlights)".
func fillBook(book *entities.Book, meta frontMatterEnvelope, pageTitle string) {
	if book.Title == "" {
		book.Title = meta.Title
	}
	if book.Author == "" {
		book.Author = meta.Author
	}
	if book.SourceType == "" && meta.ContentSource != "" {
		book.SourceType = sourceType(meta.ContentSource)
	}
	if book.Category == "" {
		book.Category = entities.Category(meta.Category)
	}
	if book.SourceURL == "" {
		book.SourceURL = meta.SourceURL
	}

	if book.Title != "" || pageTitle == "" {
		return
	}
	title := strings.TrimSuffix(pageTitle, " (Highlights)")
	if author, rest, ok := strings.Cut(title, " - "); ok && book.Author == "" {
		book.Author = utils.SanitizeAuthor(author)
		title = rest
	}
	book.Title = title
}
