package search

import (
	"unicode"

	"maktaba/app/internal/library"
)

// snippetLength is the approximate snippet window in characters.
const snippetLength = 200

const ellipsis = "…"

// buildSnippet windows the text around the first case-insensitive occurrence
// of the query, keeping roughly a third of the window before the match. When
// the query does not occur verbatim the text's prefix is returned instead.
func buildSnippet(text, query string, maxLength int) string {
	textRunes := []rune(text)
	if len(textRunes) <= maxLength {
		return text
	}

	matchIndex := -1
	if query != "" {
		matchIndex = indexFold(textRunes, []rune(query))
	}
	if matchIndex < 0 {
		return string(textRunes[:maxLength]) + ellipsis
	}

	start := matchIndex - maxLength/3
	if start < 0 {
		start = 0
	}
	end := start + maxLength
	if end > len(textRunes) {
		end = len(textRunes)
		start = end - maxLength
		if start < 0 {
			start = 0
		}
	}

	snippet := string(textRunes[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(textRunes) {
		snippet += ellipsis
	}

	return snippet
}

// languageSnippet prefers the stored translation matching the query language,
// falls back to the other translation, then to the original text. Snippets
// built from a translation carry a language marker prefix.
func languageSnippet(row library.SearchRow, query, language string) string {
	type source struct {
		text   string
		marker string
	}

	var sources []source
	switch language {
	case "en":
		sources = []source{
			{row.EnTranslation, "[EN] "},
			{row.IDTranslation, "[ID] "},
		}
	case "id":
		sources = []source{
			{row.IDTranslation, "[ID] "},
			{row.EnTranslation, "[EN] "},
		}
	}

	for _, candidate := range sources {
		if candidate.text != "" {
			return candidate.marker + buildSnippet(candidate.text, query, snippetLength)
		}
	}

	return buildSnippet(row.OriginalText, query, snippetLength)
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of needle in haystack, or -1.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}

	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}

	return -1
}

func equalFold(a, b []rune) bool {
	for i := range b {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}
