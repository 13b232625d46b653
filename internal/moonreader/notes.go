package moonreader

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/doitian/readwise-scripts/internal/utils"
)

// Note is one row of the notes table in a MoonReader database. Bookmarks
// live in the same table and carry neither Original nor Note text.
type Note struct {
	ID            int64
	BookTitle     string
	Filename      string
	Bookmark      string
	Note          string
	Original      string
	TimeMs        int64
	Underline     bool
	Strikethrough bool
}

// Text returns the highlighted text, or the note for a note without a
// highlight.
func (n Note) Text() string {
	if n.Original != "" {
		return n.Original
	}
	return n.Note
}

// ReadNotes returns the rows of the notes table, grouped by book in the
// order they were made.
func ReadNotes(ctx context.Context, dbPath string) ([]Note, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}

	db, err := sql.Open("sqlite3", utils.ReadOnlySQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT _id, book, filename, bookmark, note, original, time, underline, strikethrough
		FROM notes
		ORDER BY book, time, _id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var book, filename, bookmark, note, original sql.NullString
		var timeMs, underline, strikethrough sql.NullInt64

		err := rows.Scan(&n.ID, &book, &filename, &bookmark, &note, &original, &timeMs, &underline, &strikethrough)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		n.BookTitle = book.String
		n.Filename = filename.String
		n.Bookmark = bookmark.String
		n.Note = note.String
		n.Original = original.String
		n.TimeMs = timeMs.Int64
		n.Underline = underline.Int64 != 0
		n.Strikethrough = strikethrough.Int64 != 0

		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notes, nil
}
