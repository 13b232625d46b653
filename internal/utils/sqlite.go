package utils

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ReadOnlySQLiteDSN returns a read-only SQLite URI for path. The path is made
// absolute and escaped, so names holding '?', '#' or '%' open the right file.
func ReadOnlySQLiteDSN(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
}
