package utils

import (
	"strings"

	"github.com/gosimple/slug"
)

// NormalizeSlug creates a URL-friendly slug using the gosimple/slug library
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}

// CategoryTag turns free text into the snake_case tag stored in alertas.tipo,
// e.g. "Post Rejected" -> "post_rejected".
func CategoryTag(text string) string {
	tag := strings.ReplaceAll(NormalizeSlug(text), "-", "_")
	if tag == "" {
		return "general"
	}
	return tag
}

// IsDottedName reports whether name follows the "area.action.frequency"
// convention: at least two dot-separated, lower-case slug segments.
func IsDottedName(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if !slug.IsSlug(part) {
			return false
		}
	}
	return true
}
