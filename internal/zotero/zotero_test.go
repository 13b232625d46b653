package zotero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitian/readwise-scripts/internal/entities"
)

const cslItems = `[
	{
		"id": "doe2020",
		"item-key": "ITEM1",
		"type": "book",
		"title": "the art of reading: a field guide",
		"author": [
			{"given": "Jane", "family": "Doe"},
			{"literal": "World Health Organization"}
		]
	},
	{
		"id": "roe2021",
		"item-key": "ITEM2",
		"type": "article-journal",
		"title": "On iOS Apps"
	}
]`

func annotationData(t *testing.T, data map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return url.PathEscape(string(raw))
}

func annotationNote(t *testing.T) string {
	pdf := annotationData(t, map[string]any{
		"attachmentURI": "http://zotero.org/users/1/items/ATTACH1",
		"annotationKey": "ANN1",
		"pageLabel":     "12",
		"position":      map[string]any{"pageIndex": 11},
	})
	epub := annotationData(t, map[string]any{
		"attachmentURI": "http://zotero.org/users/1/items/ATTACH2",
		"annotationKey": "ANN2",
		"position":      map[string]any{"type": "FragmentSelector", "value": "epubcfi(/6/4)"},
	})
	image := annotationData(t, map[string]any{
		"attachmentURI": "http://zotero.org/users/1/items/ATTACH1",
		"annotationKey": "ANN3",
		"pageLabel":     "iv",
		"position":      map[string]any{"pageIndex": 3},
	})

	return `<div data-schema-version="8"><h1>Annotations<br>(2024/1/2)</h1>` +
		`<p><span class="highlight" data-annotation="` + pdf + `">“Some <b>bold</b> text”</span> ` +
		`<span class="citation">(<span class="citation-item">Doe, 2020, p. 12</span>)</span> .idea</p>` +
		`<p>Just a comment with <i>style</i> and <code>x</code></p>` +
		`<p><span class="underline" data-annotation="` + epub + `">first</span>` +
		`<span class="highlight" data-annotation="` + epub + `">second</span> longer<br>comment</p>` +
		`<p><img data-attachment-key="IMG1" data-annotation="` + image + `"> a figure</p>` +
		`<p></p>` +
		`</div>`
}

func newTestImageStore(t *testing.T) *ImageStore {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/zotero/storage/IMG1/image.png", []byte("png"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/zotero/storage/IMG1/.zotero-ft-cache", []byte("cache"), 0644))
	return &ImageStore{
		Fs:         fs,
		StorageDir: "/zotero/storage",
		UploadsDir: "uploads/202401/zotero",
		Site:       "https://blog.example",
	}
}

func TestParseItems(t *testing.T) {
	items, err := parseItems([]byte(cslItems))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "doe2020", items[0].ID)
	assert.Equal(t, "ITEM1", items[0].Key)
	assert.Equal(t, []Author{{Given: "Jane", Family: "Doe"}, {Literal: "World Health Organization"}}, items[0].Authors)
	assert.Empty(t, items[1].Authors)

	_, err = parseItems([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
	_, err = parseItems([]byte(`[{`))
	assert.Error(t, err)
}

func TestItemBook(t *testing.T) {
	items, err := parseItems([]byte(cslItems))
	require.NoError(t, err)

	book := ItemBook(items[0])
	assert.Equal(t, entities.Book{
		Title:      "The Art of Reading: A Field Guide",
		Author:     "Jane Doe & World Health Organization",
		SourceType: entities.SourceZotero,
		Category:   entities.CategoryBooks,
		SourceURL:  "zotero://select/library/items/ITEM1",
	}, book)

	article := ItemBook(items[1])
	assert.Equal(t, entities.CategoryArticles, article.Category)
	assert.Equal(t, "On iOS Apps", article.Title)
	assert.Equal(t, "", article.Author)
}

func TestTitlecase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"the art of computer programming", "The Art of Computer Programming"},
		{"a tale of two cities: the sequel", "A Tale of Two Cities: The Sequel"},
		{"learning iOS development", "Learning iOS Development"},
		{"what is it for", "What Is It For"},
		{"  extra   spaces ", "Extra Spaces"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Titlecase(tt.input))
		})
	}
}

func TestNoteConverter_Convert(t *testing.T) {
	images := newTestImageStore(t)
	converter := NewNoteConverter(images)
	item := Item{ID: "doe2020", Key: "ITEM1", Type: "book", Title: "a book"}

	notes := []string{
		annotationNote(t),
		`<div><h1>My thoughts</h1><p>ignored</p></div>`,
		`<h1>Annotations</h1><p>no wrapping div</p>`,
	}

	records, err := converter.Convert(item, notes)
	require.NoError(t, err)
	require.Len(t, records, 4)

	for _, h := range records {
		assert.Equal(t, "A Book", h.Title)
		assert.Equal(t, entities.SourceZotero, h.SourceType)
	}

	t.Run("pdf highlight with tag annotation", func(t *testing.T) {
		h := records[0]
		assert.Equal(t, "Some **bold** text", h.Text)
		assert.Equal(t, ".idea\n", h.Note)
		assert.Equal(t, 12, h.Location)
		assert.Equal(t, entities.LocationTypePage, h.LocationType)
		assert.Equal(t, "zotero://open-pdf/library/items/ATTACH1?page=11&annotation=ANN1", h.HighlightURL)
	})

	t.Run("comment only paragraph", func(t *testing.T) {
		h := records[1]
		assert.Equal(t, "Just a comment with *style* and `x`", h.Text)
		assert.Empty(t, h.Note)
		assert.Empty(t, h.HighlightURL)
	})

	t.Run("epub highlights are joined", func(t *testing.T) {
		h := records[2]
		assert.Equal(t, "second…first", h.Text)
		assert.Equal(t, "longer\ncomment", h.Note)
		assert.Equal(t, 0, h.Location)
		assert.Empty(t, h.LocationType)
		assert.Equal(t, "zotero://open-pdf/library/items/ATTACH2?annotation=ANN2", h.HighlightURL)
	})

	t.Run("image annotation is published", func(t *testing.T) {
		h := records[3]
		assert.Equal(t, "![IMG1](https://blog.example/uploads/202401/zotero/IMG1/image.png)", h.Text)
		assert.Equal(t, "a figure", h.Note)
		assert.Equal(t, 0, h.Location)
		assert.Equal(t, "zotero://open-pdf/library/items/ATTACH1?page=3&annotation=ANN3", h.HighlightURL)

		copied, err := afero.ReadFile(images.Fs, filepath.Join("uploads/202401/zotero", "IMG1", "image.png"))
		require.NoError(t, err)
		assert.Equal(t, "png", string(copied))
		exists, err := afero.Exists(images.Fs, filepath.Join("uploads/202401/zotero", "IMG1", ".zotero-ft-cache"))
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestNoteConverter_MissingImage(t *testing.T) {
	converter := NewNoteConverter(newTestImageStore(t))
	note := `<div><h1>Annotations</h1><p><img data-attachment-key="MISSING" data-annotation="%7B%7D"></p></div>`

	_, err := converter.Convert(Item{ID: "x", Title: "T"}, []string{note})

	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "quoted", stripQuotes("“quoted”"))
	assert.Equal(t, "“open", stripQuotes("“open"))
	assert.Equal(t, "", stripQuotes("“”"))
	assert.Equal(t, "plain", stripQuotes("plain"))
}

func newBetterBibTeX(t *testing.T, notes map[string][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(betterBibTeXHandler(t, notes, nil))
}

// betterBibTeXHandler serves the selection and item notes. delay, when set,
// is called with the item id before its notes are written.
func betterBibTeXHandler(t *testing.T, notes map[string][]string, delay func(id string)) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/better-bibtex/cayw":
			assert.Equal(t, "1", r.URL.Query().Get("selected"))
			assert.Equal(t, "csljson", r.URL.Query().Get("translator"))
			_, _ = w.Write([]byte(cslItems))
		case "/better-bibtex/json-rpc":
			var req struct {
				Method string     `json:"method"`
				Params [][]string `json:"params"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "item.notes", req.Method)
			if !assert.Len(t, req.Params, 1) || !assert.Len(t, req.Params[0], 1) {
				return
			}
			id := req.Params[0][0]
			if delay != nil {
				delay(id)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"result":  map[string][]string{id: notes[id]},
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func TestClient(t *testing.T) {
	server := newBetterBibTeX(t, map[string][]string{"doe2020": {"<p>a</p>", "<p>b</p>"}})
	defer server.Close()
	client := NewClient(server.URL)

	items, err := client.SelectedItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	notes, err := client.ItemNotes(context.Background(), "doe2020")
	require.NoError(t, err)
	assert.Equal(t, []string{"<p>a</p>", "<p>b</p>"}, notes)

	notes, err = client.ItemNotes(context.Background(), "roe2021")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestClient_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no selection", http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).SelectedItems(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 400")
	})

	t.Run("json-rpc error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsonrpc": "2.0", "error": {"code": -32601, "message": "method not found"}}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).ItemNotes(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "method not found")
	})
}

func TestCollector_Collect(t *testing.T) {
	server := newBetterBibTeX(t, map[string][]string{
		"doe2020": {annotationNote(t)},
		"roe2021": {`<div><h1>Annotations</h1><p>article comment</p></div>`},
	})
	defer server.Close()

	collector := NewCollector(NewClient(server.URL), NewNoteConverter(newTestImageStore(t)))
	records, err := collector.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 5)
	assert.Equal(t, "The Art of Reading: A Field Guide", records[0].Title)
	assert.Equal(t, "article comment", records[4].Text)
	assert.Equal(t, "On iOS Apps", records[4].Title)
	assert.Equal(t, entities.CategoryArticles, records[4].Category)
}

func TestCollector_Collect_KeepsSelectionOrder(t *testing.T) {
	// the first item answers last
	server := httptest.NewServer(betterBibTeXHandler(t, map[string][]string{
		"doe2020": {`<div><h1>Annotations</h1><p>book comment</p></div>`},
		"roe2021": {`<div><h1>Annotations</h1><p>article comment</p></div>`},
	}, func(id string) {
		if id == "doe2020" {
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer server.Close()

	collector := NewCollector(NewClient(server.URL), NewNoteConverter(newTestImageStore(t)))
	records, err := collector.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "book comment", records[0].Text)
	assert.Equal(t, "article comment", records[1].Text)
}
