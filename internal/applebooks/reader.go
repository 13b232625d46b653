package applebooks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/highlights"
	"github.com/doitian/readwise-scripts/internal/utils"
)

// Apple Books uses Core Data timestamp format: seconds since 2001-01-01 00:00:00 UTC
var coreDataEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

type AnnotationStyle int

const (
	AnnotationStyleUnderline AnnotationStyle = 1
	AnnotationStyleGreen     AnnotationStyle = 2
	AnnotationStyleBlue      AnnotationStyle = 3
	AnnotationStyleYellow    AnnotationStyle = 4
	AnnotationStylePink      AnnotationStyle = 5
	AnnotationStylePurple    AnnotationStyle = 6
)

// Reader reads annotations from the Apple Books databases on macOS.
type Reader struct {
	annotationDBPath string
	bookDBPath       string
}

// Annotation is one row of the annotation table joined with its book.
type Annotation struct {
	AssetID       string
	Title         string
	Author        string
	SelectedText  string
	Note          string
	RepresentText string
	Chapter       string
	Style         int
	ModifiedDate  float64
	LocationStart int
}

const containerDir = "Library/Containers/com.apple.iBooksX/Data/Documents"

func DefaultAnnotationDBPath() (string, error) {
	return findSQLite("AEAnnotation")
}

func DefaultBookDBPath() (string, error) {
	return findSQLite("BKLibrary")
}

// findSQLite returns the first .sqlite file in an Apple Books document directory.
func findSQLite(name string) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("apple books databases only exist on macOS")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, filepath.FromSlash(containerDir), name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sqlite" {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("no .sqlite file found in %s", dir)
}

// NewReader opens nothing yet, it only resolves and checks the paths.
// Empty paths fall back to the default macOS locations.
func NewReader(annotationDBPath, bookDBPath string) (*Reader, error) {
	var err error

	if annotationDBPath == "" {
		annotationDBPath, err = DefaultAnnotationDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to find annotation database: %w", err)
		}
	}

	if bookDBPath == "" {
		bookDBPath, err = DefaultBookDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to find book database: %w", err)
		}
	}

	if _, err := os.Stat(annotationDBPath); err != nil {
		return nil, fmt.Errorf("annotation database not found: %w", err)
	}
	if _, err := os.Stat(bookDBPath); err != nil {
		return nil, fmt.Errorf("book database not found: %w", err)
	}

	return &Reader{
		annotationDBPath: annotationDBPath,
		bookDBPath:       bookDBPath,
	}, nil
}

const annotationsQuery = `
	SELECT
		ZANNOTATIONASSETID,
		books.ZBKLIBRARYASSET.ZTITLE AS title,
		books.ZBKLIBRARYASSET.ZAUTHOR AS author,
		ZANNOTATIONSELECTEDTEXT AS selected_text,
		ZANNOTATIONNOTE AS note,
		ZANNOTATIONREPRESENTATIVETEXT,
		ZFUTUREPROOFING5,
		ZANNOTATIONSTYLE,
		ZANNOTATIONMODIFICATIONDATE,
		ZPLLOCATIONRANGESTART
	FROM ZAEANNOTATION
	LEFT JOIN books.ZBKLIBRARYASSET
		ON ZAEANNOTATION.ZANNOTATIONASSETID = books.ZBKLIBRARYASSET.ZASSETID
	WHERE ZANNOTATIONDELETED = 0
		AND (title NOT NULL AND author NOT NULL)
		AND ((selected_text != '' AND selected_text NOT NULL) OR note NOT NULL)
	ORDER BY ZANNOTATIONASSETID, ZPLLOCATIONRANGESTART
`

// Annotations returns the live annotations ordered by book and position.
func (r *Reader) Annotations(ctx context.Context) ([]Annotation, error) {
	db, err := sql.Open("sqlite3", utils.ReadOnlySQLiteDSN(r.annotationDBPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation database: %w", err)
	}
	defer db.Close()
	// ATTACH is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS books", r.bookDBPath); err != nil {
		return nil, fmt.Errorf("failed to attach book database: %w", err)
	}

	rows, err := db.QueryContext(ctx, annotationsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var a Annotation
		var selectedText, note, representText, chapter sql.NullString
		var style, locationStart sql.NullInt64
		var modifiedDate sql.NullFloat64

		err := rows.Scan(
			&a.AssetID,
			&a.Title,
			&a.Author,
			&selectedText,
			&note,
			&representText,
			&chapter,
			&style,
			&modifiedDate,
			&locationStart,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.SelectedText = selectedText.String
		a.Note = note.String
		a.RepresentText = representText.String
		a.Chapter = chapter.String
		a.Style = int(style.Int64)
		a.ModifiedDate = modifiedDate.Float64
		a.LocationStart = int(locationStart.Int64)

		annotations = append(annotations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return annotations, nil
}

// Records reads the annotations and converts them to highlight records.
func (r *Reader) Records(ctx context.Context) ([]entities.Highlight, error) {
	annotations, err := r.Annotations(ctx)
	if err != nil {
		return nil, err
	}
	return Convert(annotations), nil
}

// Convert turns annotations into records. A change of chapter within a book
// emits a level 1 heading before the next annotation.
func Convert(annotations []Annotation) []entities.Highlight {
	var result []entities.Highlight
	var lastAsset, lastChapter string

	for _, a := range annotations {
		text := a.SelectedText
		if text == "" {
			text = a.RepresentText
		}
		note := a.Note
		if text == "" {
			text, note = note, ""
		}
		if text == "" {
			continue
		}

		book := annotationBook(a)
		if a.AssetID != lastAsset {
			lastAsset, lastChapter = a.AssetID, ""
		}
		if a.Chapter != "" && a.Chapter != lastChapter {
			result = append(result, book.NewHeading(a.Chapter, 1))
			lastChapter = a.Chapter
		}

		h := book.NewHighlight(text)
		h.Note = note
		if a.LocationStart > 0 {
			h.Location = a.LocationStart
			h.LocationType = entities.LocationTypeOrder
		}
		if a.ModifiedDate != 0 {
			highlightedAt := coreDataEpoch.Add(time.Duration(a.ModifiedDate * float64(time.Second)))
			h.HighlightedAt = highlightedAt.Format(time.RFC3339)
		}
		if tag, ok := styleTag(a.Style); ok {
			h.Note = highlights.AddTag(h.Note, tag)
		}

		result = append(result, h)
	}

	return result
}

func annotationBook(a Annotation) entities.Book {
	return entities.Book{
		Title:      a.Title,
		Author:     a.Author,
		SourceType: entities.SourceAppleBooks,
		Category:   entities.CategoryBooks,
		SourceURL:  "ibooks://assetid/" + a.AssetID,
	}
}

// styleTag returns the dot tag for an annotation style. Yellow, the default
// highlight color, has none.
func styleTag(style int) (string, bool) {
	switch AnnotationStyle(style) {
	case AnnotationStyleUnderline:
		return ".underline", true
	case AnnotationStyleGreen:
		return utils.ColorTag("green")
	case AnnotationStyleBlue:
		return utils.ColorTag("blue")
	case AnnotationStylePink:
		return utils.ColorTag("pink")
	case AnnotationStylePurple:
		return utils.ColorTag("purple")
	default:
		return utils.ColorTag("yellow")
	}
}
