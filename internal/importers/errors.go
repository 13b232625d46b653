package importers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseError reports an input line a converter does not understand.
type ParseError struct {
	Converter string
	Line      int
	Text      string
	Reason    string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		if e.Text == "" {
			return fmt.Sprintf("%s: %s", e.Converter, e.Reason)
		}
		return fmt.Sprintf("%s: %s: %q", e.Converter, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: line %d: %s: %q", e.Converter, e.Line, e.Reason, e.Text)
}

const maxLineSize = 4 * 1024 * 1024

// lineReader yields input lines with surrounding whitespace removed and
// keeps track of the current line number for error reporting.
type lineReader struct {
	converter string
	scanner   *bufio.Scanner
	lineNo    int
	line      string
}

func newLineReader(converter string, r io.Reader) *lineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineReader{converter: converter, scanner: scanner}
}

func (lr *lineReader) Next() bool {
	if !lr.scanner.Scan() {
		return false
	}
	lr.lineNo++
	line := lr.scanner.Text()
	if lr.lineNo == 1 {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	lr.line = strings.TrimSpace(line)
	return true
}

func (lr *lineReader) Line() string {
	return lr.line
}

func (lr *lineReader) Err() error {
	if err := lr.scanner.Err(); err != nil {
		return fmt.Errorf("%s: read input: %w", lr.converter, err)
	}
	return nil
}

// Fail builds a ParseError for the current line.
func (lr *lineReader) Fail(reason string) error {
	return &ParseError{
		Converter: lr.converter,
		Line:      lr.lineNo,
		Text:      lr.line,
		Reason:    reason,
	}
}
