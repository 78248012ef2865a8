// Package sanitize provides text sanitization utilities to prevent XSS attacks.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	spaceRunRegex  = regexp.MustCompile(`[ \t]+`)
	entityReplacer = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"", "&#39;", "'")
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML and collapses runs of spaces and tabs. Newlines are kept
// so multi-line messages survive.
func Text(s string) string {
	return spaceRunRegex.ReplaceAllString(StripHTML(s), " ")
}

// TextPtr is a helper for optional string pointers. Empty results become nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	if result == "" {
		return nil
	}
	return &result
}

// Email lowercases and trims an address. It is the identity used for
// duplicate detection and intake rate limiting.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
