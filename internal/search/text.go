package search

import (
	"strings"
	"unicode/utf8"

	"github.com/Melik1986/sortcore/internal/store"
)

// EmbeddingText composes the text a resource is embedded and lexically
// indexed under. The title is repeated to weight it above body content, and
// categorical metadata is appended so that semantically empty bodies still
// carry signal.
func EmbeddingText(r *store.Resource) string {
	parts := make([]string, 0, 8)
	if r.Content != "" {
		parts = append(parts, r.Content)
	}
	if r.Title != "" {
		parts = append(parts, r.Title, r.Title)
	}
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	if r.Subcategory != "" {
		parts = append(parts, r.Subcategory)
	}
	if len(r.Tags) > 0 {
		parts = append(parts, strings.Join(r.Tags, " "))
	}
	if len(r.Languages) > 0 {
		parts = append(parts, strings.Join(r.Languages, " "))
	}
	if r.ContentType != "" {
		parts = append(parts, r.ContentType)
	}
	return strings.Join(parts, " ")
}

// MakePreview truncates content to at most maxLen characters, breaking on a
// word boundary where one falls in the final fifth of the window, and appends
// an ellipsis when anything was cut. Lengths are counted in runes, so cuts
// never split a multi-byte character.
func MakePreview(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if maxLen <= 0 || utf8.RuneCountInString(content) <= maxLen {
		return content
	}
	cut := []rune(content)[:maxLen]
	if idx := lastSpace(cut); idx > maxLen*4/5 {
		cut = cut[:idx]
	}
	return strings.TrimRight(string(cut), " ") + "..."
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
