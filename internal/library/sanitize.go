package library

import "regexp"

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename produces the on-disk name for an uploaded file: path-unsafe
// characters become underscores, whitespace runs collapse to a single
// underscore, and the result is capped at 100 characters. The rule is part of
// the stored layout, so changing it breaks interop with existing libraries.
func SanitizeFilename(name string) string {
	cleaned := unsafeChars.ReplaceAllString(name, "_")
	cleaned = whitespace.ReplaceAllString(cleaned, "_")
	runes := []rune(cleaned)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return string(runes)
}
