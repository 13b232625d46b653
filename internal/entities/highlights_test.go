package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote(t *testing.T) {
	tests := []struct {
		name     string
		note     string
		expected NoteTags
	}{
		{
			name:     "empty note",
			note:     "",
			expected: NoteTags{},
		},
		{
			name:     "plain note is all content",
			note:     "just a thought\nsecond line",
			expected: NoteTags{Content: "just a thought\nsecond line"},
		},
		{
			name:     "heading tag",
			note:     ".h2",
			expected: NoteTags{HeadingLevel: 2},
		},
		{
			name:     "concat with tags and content",
			note:     ".c1 .favorite .blue\nremember this",
			expected: NoteTags{ConcatIndex: 1, Tags: []string{"favorite", "blue"}, Content: "remember this"},
		},
		{
			name:     "first structural tag wins",
			note:     ".h1 .h3 .c2 .c4",
			expected: NoteTags{HeadingLevel: 1, ConcatIndex: 2},
		},
		{
			name:     "words on the tag line are content",
			note:     ".c2 .todo closing thought\nmore",
			expected: NoteTags{ConcatIndex: 2, Tags: []string{"todo"}, Content: "closing thought\nmore"},
		},
		{
			name:     "out of range levels are plain tags",
			note:     ".h4 .c0",
			expected: NoteTags{Tags: []string{"h4", "c0"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseNote(tt.note))
		})
	}
}

func TestNoteTags_String(t *testing.T) {
	assert.Equal(t, "", NoteTags{}.String())
	assert.Equal(t, "content", NoteTags{Content: "content"}.String())
	assert.Equal(t, ".h1", NoteTags{HeadingLevel: 1}.String())
	assert.Equal(t, ".c2 .a .b\nbody", NoteTags{ConcatIndex: 2, Tags: []string{"a", "b"}, Content: "body"}.String())

	note := ".c1 .favorite\nremember this"
	assert.Equal(t, note, ParseNote(note).String())
}

func TestHighlight_Tags(t *testing.T) {
	assert.Equal(t, 1, Highlight{Note: ".h1"}.HeadingLevel())
	assert.True(t, Highlight{Note: ".h3 extra"}.IsHeading())
	assert.False(t, Highlight{Note: ".h4"}.IsHeading())
	assert.False(t, Highlight{Note: "h1"}.IsHeading())

	assert.Equal(t, 5, Highlight{Note: ".c5\nnote"}.ConcatIndex())
	assert.False(t, Highlight{Note: ".c6"}.IsConcatenating())
	assert.False(t, Highlight{}.IsConcatenating())
	assert.Equal(t, "", Highlight{Note: "   "}.FirstNoteToken())
}

func TestBook_NewHeading(t *testing.T) {
	book := Book{Title: "Foundation", Author: "Asimov", SourceType: SourceBoox, Category: CategoryBooks}

	h := book.NewHeading("Part I", 2)

	assert.Equal(t, "Part I", h.Text)
	assert.Equal(t, ".h2", h.Note)
	assert.Equal(t, "Foundation", h.Title)
	assert.Equal(t, "Asimov", h.Author)
	assert.Equal(t, SourceBoox, h.SourceType)
	assert.Equal(t, CategoryBooks, h.Category)
}

func TestHighlight_Validate(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		h := Highlight{
			Text:         "text",
			Category:     CategoryBooks,
			Location:     12,
			LocationType: LocationTypePage,
			SourceURL:    "https://weread.qq.com/web/bookDetail/1",
			HighlightURL: "zotero://open-pdf/library/items/ABC?page=1",
		}
		require.NoError(t, h.Validate())
	})

	t.Run("missing text", func(t *testing.T) {
		err := Highlight{Text: "  \n"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "text")
	})

	t.Run("unknown location type", func(t *testing.T) {
		err := Highlight{Text: "x", LocationType: "chapter"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "location_type")
	})

	t.Run("negative location", func(t *testing.T) {
		err := Highlight{Text: "x", Location: -1}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "location")
	})

	t.Run("relative url", func(t *testing.T) {
		err := Highlight{Text: "x", SourceURL: "not a url"}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source_url")
	})
}
