package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)

	authorReplacer = strings.NewReplacer(
		"_", " ",
		":", "", "?", "", `"`, "",
		"/", "", "|", "", "*", "",
		"<", "", ">", "",
		"#", " ",
	)
)

const maxFilenameLength = 200

// SanitizeFilename makes a note title safe to use as a file name.
// Hashtags become spaces so Obsidian does not read them as tags.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "#", " ")
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	// Limit length (most filesystems support 255, but leave room for extension)
	if runes := []rune(filename); len(runes) > maxFilenameLength {
		filename = strings.TrimSpace(string(runes[:maxFilenameLength]))
	}

	if filename == "" {
		filename = "untitled"
	}

	return filename
}

// SanitizeAuthor removes characters that break wiki links from an author list.
func SanitizeAuthor(author string) string {
	return strings.TrimSpace(authorReplacer.Replace(author))
}

// SplitAuthors splits an author list joined by " & " or ", ".
func SplitAuthors(author string) []string {
	author = SanitizeAuthor(author)
	if author == "" {
		return nil
	}
	author = strings.ReplaceAll(author, " & ", ", ")
	return strings.Split(author, ", ")
}

// FormatAuthorForTitle returns the first author, suffixed with "et al." when
// there are more.
func FormatAuthorForTitle(author string) string {
	authors := SplitAuthors(author)
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}

// bookExtensions are stripped from file names before looking for an author.
// Longer suffixes come first so ".fb2.zip" is not left as ".fb2".
var bookExtensions = []string{".fb2.zip", ".fb2", ".epub", ".mobi", ".azw3", ".pdf", ".txt", ".docx", ".doc"}

// ExtractAuthorFromFilename reads the author from a file named
// "Title - Author.ext". It returns "" when the title is not in the name.
func ExtractAuthorFromFilename(filename, title string) string {
	if title == "" {
		return ""
	}
	pos := strings.LastIndex(filename, title)
	if pos == -1 {
		return ""
	}

	author := filename[pos+len(title):]
	for _, ext := range bookExtensions {
		author = strings.TrimSuffix(author, ext)
	}
	return strings.TrimFunc(author, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
