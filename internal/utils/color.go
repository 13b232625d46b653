package utils

import "strings"

// defaultHighlightColors are the color labels Kindle uses for plain yellow
// highlights. They carry no meaning and are not turned into tags.
var defaultHighlightColors = map[string]bool{
	"yellow": true,
	"黄色":     true,
}

// ColorTag maps a highlight color label to a dot tag, e.g. "blue" -> ".blue".
// The default yellow color yields no tag.
func ColorTag(label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" || defaultHighlightColors[strings.ToLower(label)] {
		return "", false
	}
	return "." + strings.Join(strings.Fields(label), "-"), true
}
