package moonreader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/highlights"
	"github.com/doitian/readwise-scripts/internal/utils"
)

// Convert turns MoonReader notes into records. Bookmarks without text are
// dropped. The book author comes from the "Title - Author.ext" file name.
func Convert(notes []Note) []entities.Highlight {
	var result []entities.Highlight

	for _, n := range notes {
		text := strings.TrimSpace(n.Text())
		if text == "" || n.BookTitle == "" {
			continue
		}

		book := entities.Book{
			Title:      n.BookTitle,
			Author:     utils.ExtractAuthorFromFilename(n.Filename, n.BookTitle),
			SourceType: entities.SourceMoonReader,
			Category:   entities.CategoryBooks,
		}
		h := book.NewHighlight(text)
		if n.Original != "" {
			h.Note = strings.TrimSpace(n.Note)
		}
		if n.TimeMs > 0 {
			h.HighlightedAt = time.UnixMilli(n.TimeMs).UTC().Format(time.RFC3339)
		}
		switch {
		case n.Strikethrough:
			h.Note = highlights.AddTag(h.Note, ".strikethrough")
		case n.Underline:
			h.Note = highlights.AddTag(h.Note, ".underline")
		}

		result = append(result, h)
	}

	return result
}

// ReadBackup converts the notes of a MoonReader database. path is either a
// backup archive, a directory holding backups (the latest is used), or an
// already extracted database.
func ReadBackup(ctx context.Context, path string) ([]entities.Highlight, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}
	if info.IsDir() {
		if path, err = FindLatestBackup(path); err != nil {
			return nil, err
		}
	} else if !IsBackupFile(path) {
		notes, err := ReadNotes(ctx, path)
		if err != nil {
			return nil, err
		}
		return Convert(notes), nil
	}

	tempDir, err := os.MkdirTemp("", "moonreader-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath, err := ExtractDatabase(path, tempDir)
	if err != nil {
		return nil, err
	}
	notes, err := ReadNotes(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return Convert(notes), nil
}
