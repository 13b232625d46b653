package zotero

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const annotationHeadingPrefix = "Annotation"

// NoteConverter turns the annotation notes Zotero generates ("Add Note from
// Annotations") into highlight records.
type NoteConverter struct {
	images *ImageStore
}

func NewNoteConverter(images *ImageStore) *NoteConverter {
	return &NoteConverter{images: images}
}

// ItemBook returns the metadata shared by all records of an item.
func ItemBook(item Item) entities.Book {
	authors := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		authors = append(authors, a.String())
	}

	category := entities.CategoryArticles
	if item.Type == "book" {
		category = entities.CategoryBooks
	}

	return entities.Book{
		Title:      Titlecase(item.Title),
		Author:     strings.Join(authors, " & "),
		SourceType: entities.SourceZotero,
		Category:   category,
		SourceURL:  "zotero://select/library/items/" + item.Key,
	}
}

// Convert reads every annotation note of the item. Each paragraph yields one
// record; other notes are ignored.
func (c *NoteConverter) Convert(item Item, notes []string) ([]entities.Highlight, error) {
	book := ItemBook(item)

	var records []entities.Highlight
	for _, note := range notes {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(replaceBreaks(note)))
		if err != nil {
			return nil, fmt.Errorf("parse note of %s: %w", item.ID, err)
		}
		if doc.Find("div").Length() == 0 {
			continue
		}
		if h1 := doc.Find("h1").First(); !strings.HasPrefix(h1.Text(), annotationHeadingPrefix) {
			continue
		}

		paragraphs := doc.Find("p")
		for i := range paragraphs.Nodes {
			h, ok, err := c.convertParagraph(book, paragraphs.Eq(i))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", item.Title, err)
			}
			if ok {
				records = append(records, h)
			}
		}
	}
	return records, nil
}

func (c *NoteConverter) convertParagraph(book entities.Book, p *goquery.Selection) (entities.Highlight, bool, error) {
	var marked []*goquery.Selection
	for _, selector := range []string{"span.highlight", "span.underline", "img[data-annotation]"} {
		found := p.Find(selector)
		for i := range found.Nodes {
			marked = append(marked, found.Eq(i))
		}
		found.Remove()
	}
	p.Find("span.citation").Remove()

	annotation, err := c.markdown(p.Contents())
	if err != nil {
		return entities.Highlight{}, false, err
	}
	annotation = strings.TrimSpace(annotation)

	if len(marked) == 0 {
		if annotation == "" {
			return entities.Highlight{}, false, nil
		}
		return book.NewHighlight(annotation), true, nil
	}

	texts := make([]string, 0, len(marked))
	for _, sel := range marked {
		text, err := c.markdown(sel)
		if err != nil {
			return entities.Highlight{}, false, err
		}
		texts = append(texts, stripQuotes(strings.TrimSpace(text)))
	}
	h := book.NewHighlight(strings.Join(texts, "…"))

	if annotation != "" {
		h.Note = annotation
		// A lone tag line would be read as tags plus empty content.
		if strings.HasPrefix(annotation, ".") && !strings.Contains(annotation, "\n") {
			h.Note += "\n"
		}
	}

	if raw, ok := marked[0].Attr("data-annotation"); ok {
		applyAnnotationData(&h, raw)
	}
	return h, true, nil
}

// applyAnnotationData sets the location and the link back to the PDF or
// EPUB reader from the url-encoded data-annotation JSON.
func applyAnnotationData(h *entities.Highlight, raw string) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	data := gjson.Parse(decoded)

	attachmentURI := data.Get("attachmentURI").String()
	itemKey := attachmentURI[strings.LastIndex(attachmentURI, "/")+1:]
	annotationKey := data.Get("annotationKey").String()

	if data.Get("position.type").String() == "FragmentSelector" {
		h.HighlightURL = fmt.Sprintf("zotero://open-pdf/library/items/%s?annotation=%s", itemKey, annotationKey)
		return
	}

	if page, err := strconv.Atoi(data.Get("pageLabel").String()); err == nil {
		h.Location = page
		h.LocationType = entities.LocationTypePage
	}
	h.HighlightURL = fmt.Sprintf("zotero://open-pdf/library/items/%s?page=%d&annotation=%s",
		itemKey, data.Get("position.pageIndex").Int(), annotationKey)
}

// markdown renders inline HTML as Markdown. Images are published through
// the image store.
func (c *NoteConverter) markdown(sel *goquery.Selection) (string, error) {
	var b strings.Builder
	for i := range sel.Nodes {
		node := sel.Eq(i)
		name := goquery.NodeName(node)
		switch name {
		case "#text":
			b.WriteString(node.Text())
			continue
		case "#comment":
			continue
		case "img":
			key, _ := node.Attr("data-attachment-key")
			if c.images == nil {
				return "", fmt.Errorf("%w: %s", ErrImageNotFound, key)
			}
			image, err := c.images.Publish(key)
			if err != nil {
				return "", err
			}
			b.WriteString(image)
			continue
		}

		inner, err := c.markdown(node.Contents())
		if err != nil {
			return "", err
		}
		switch name {
		case "b", "strong":
			b.WriteString("**" + inner + "**")
		case "i", "em":
			b.WriteString("*" + inner + "*")
		case "code":
			b.WriteString("`" + inner + "`")
		default:
			b.WriteString(inner)
		}
	}
	return b.String(), nil
}

func replaceBreaks(html string) string {
	return strings.NewReplacer("<br/>", "\n", "<br>", "\n", "<br />", "\n").Replace(html)
}

func stripQuotes(text string) string {
	if strings.HasPrefix(text, "“") && strings.HasSuffix(text, "”") && len(text) >= len("“”") {
		return strings.TrimSuffix(strings.TrimPrefix(text, "“"), "”")
	}
	return text
}
