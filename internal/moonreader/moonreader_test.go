package moonreader

import (
	"archive/zip"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doitian/readwise-scripts/internal/entities"
)

// createNotesDB writes a MoonReader notes database holding the given rows.
func createNotesDB(t *testing.T, dbPath string, notes []Note) {
	t.Helper()

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE notes (
			_id INTEGER PRIMARY KEY,
			book TEXT,
			filename TEXT,
			highlightColor TEXT,
			time INTEGER,
			bookmark TEXT,
			note TEXT,
			original TEXT,
			underline INTEGER,
			strikethrough INTEGER
		)
	`)
	require.NoError(t, err)

	for _, n := range notes {
		_, err := db.Exec(`
			INSERT INTO notes (_id, book, filename, highlightColor, time, bookmark, note, original, underline, strikethrough)
			VALUES (?, ?, ?, '-256', ?, ?, ?, ?, ?, ?)
		`, n.ID, n.BookTitle, n.Filename, n.TimeMs, n.Bookmark, n.Note, n.Original, n.Underline, n.Strikethrough)
		require.NoError(t, err)
	}
}

// createBackup zips a database the way MoonReader lays out its backups.
func createBackup(t *testing.T, backupPath, dbPath string) {
	t.Helper()

	dbContent, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	out, err := os.Create(backupPath)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	files := []struct {
		name    string
		content []byte
	}{
		{"com.flyersoft.moonreader/_names.list", []byte("/sdcard/Books/.Moon+/Cache/settings.xml\n/data/data/com.flyersoft.moonreader/databases/mrbooks.db\n")},
		{"com.flyersoft.moonreader/1.tag", []byte("<settings/>")},
		{"com.flyersoft.moonreader/2.tag", dbContent},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

var testNotes = []Note{
	{ID: 3, BookTitle: "Solaris", Filename: "/sdcard/Books/Solaris - Stanisław Lem.epub", Original: "The ocean", Note: "alive?", TimeMs: 1758393655000, Underline: true},
	{ID: 1, BookTitle: "Solaris", Filename: "/sdcard/Books/Solaris - Stanisław Lem.epub", Bookmark: "Chapter 1", TimeMs: 1758393600000},
	{ID: 2, BookTitle: "Solaris", Filename: "/sdcard/Books/Solaris - Stanisław Lem.epub", Note: "a thought", TimeMs: 1758393610000},
	{ID: 4, BookTitle: "Dune", Filename: "/sdcard/Books/Dune.epub", Original: "Fear is the mind-killer.", Strikethrough: true, TimeMs: 1758393700000},
}

func TestReadNotes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mrbooks.db")
	createNotesDB(t, dbPath, testNotes)

	notes, err := ReadNotes(context.Background(), dbPath)
	require.NoError(t, err)
	require.Len(t, notes, 4)

	var ids []int64
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []int64{4, 1, 2, 3}, ids)
	assert.Equal(t, testNotes[0], notes[3])

	_, err = ReadNotes(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "database not found")
}

func TestReadNotes_PathWithURIMetacharacters(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "mrbooks.db")
	createNotesDB(t, dbPath, testNotes)

	oddDir := filepath.Join(dir, "backup?v=1#50%")
	require.NoError(t, os.Mkdir(oddDir, 0755))
	oddPath := filepath.Join(oddDir, "mrbooks.db")
	require.NoError(t, os.Rename(dbPath, oddPath))

	notes, err := ReadNotes(context.Background(), oddPath)
	require.NoError(t, err)
	assert.Len(t, notes, 4)
}

func TestConvert(t *testing.T) {
	records := Convert(testNotes)
	require.Len(t, records, 3)

	assert.Equal(t, entities.Highlight{
		Text:          "The ocean",
		Title:         "Solaris",
		Author:        "Stanisław Lem",
		SourceType:    entities.SourceMoonReader,
		Category:      entities.CategoryBooks,
		HighlightedAt: "2025-09-20T18:40:55Z",
		Note:          ".underline\n\nalive?",
	}, records[0])

	assert.Equal(t, "a thought", records[1].Text)
	assert.Empty(t, records[1].Note)

	assert.Equal(t, "Fear is the mind-killer.", records[2].Text)
	assert.Equal(t, "", records[2].Author)
	assert.Equal(t, ".strikethrough", records[2].Note)
}

func TestNote_Text(t *testing.T) {
	assert.Equal(t, "quote", Note{Original: "quote", Note: "note"}.Text())
	assert.Equal(t, "note", Note{Note: "note"}.Text())
	assert.Equal(t, "", Note{Bookmark: "Chapter"}.Text())
}

func TestFindLatestBackup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20240101_120000.mrstd", "20250301_080000.mrpro", "20241231_235959.mrstd", "20990101_000000.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "20991231_000000.mrstd"), 0755))

	latest, err := FindLatestBackup(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250301_080000.mrpro"), latest)

	_, err = FindLatestBackup(t.TempDir())
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, IsBackupFile("20240101_120000.mrstd"))
	assert.True(t, IsBackupFile("20240101_120000.mrpro"))
	assert.False(t, IsBackupFile("mrbooks.db"))
}

func TestExtractDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")
	createNotesDB(t, dbPath, testNotes[:1])
	backupPath := filepath.Join(dir, "20240101_120000.mrstd")
	createBackup(t, backupPath, dbPath)

	destDir := t.TempDir()
	extracted, err := ExtractDatabase(backupPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, DatabaseFile), extracted)

	notes, err := ReadNotes(context.Background(), extracted)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestExtractDatabase_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.mrstd")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

		_, err := ExtractDatabase(path, t.TempDir())
		assert.ErrorContains(t, err, "failed to open backup file")
	})

	t.Run("no manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.mrstd")
		out, err := os.Create(path)
		require.NoError(t, err)
		zw := zip.NewWriter(out)
		_, err = zw.Create("other/file.txt")
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, out.Close())

		_, err = ExtractDatabase(path, t.TempDir())
		assert.ErrorContains(t, err, "_names.list not found")
	})
}

func TestReadBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")
	createNotesDB(t, dbPath, testNotes)

	backups := filepath.Join(dir, "Backup")
	require.NoError(t, os.Mkdir(backups, 0755))
	createBackup(t, filepath.Join(backups, "20240101_120000.mrstd"), dbPath)

	for _, input := range []string{backups, filepath.Join(backups, "20240101_120000.mrstd"), dbPath} {
		records, err := ReadBackup(context.Background(), input)
		require.NoError(t, err, input)
		assert.Len(t, records, 3, input)
	}

	_, err := ReadBackup(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "input not found")
}
