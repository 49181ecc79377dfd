package search

import "unicode/utf8"

// PreviewLength is the number of characters shown for a hit's content.
const PreviewLength = 200

// Truncate shortens content to at most limit characters followed by "...".
// Content that fits is returned unchanged.
func Truncate(content string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(content) <= limit {
		return content
	}

	n := 0
	for i := range content {
		if n == limit {
			return content[:i] + "..."
		}
		n++
	}
	return content
}
