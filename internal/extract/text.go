package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// chunkSize is the fallback page-candidate size when a text file carries no
// separator structure at all.
const chunkSize = 1000

// minUnitLength is the trimmed length below which a candidate is discarded as
// an artifact rather than a page.
const minUnitLength = 10

func extractPlainText(data []byte) ([]ExtractedPage, error) {
	text, err := decodeUTF8(data)
	if err != nil {
		return nil, err
	}

	candidates := splitText(text)

	pages := make([]ExtractedPage, 0, len(candidates))
	for i, candidate := range candidates {
		pages = append(pages, ExtractedPage{
			Text:        candidate,
			Method:      MethodText,
			SourceIndex: i,
		})
	}

	return pages, nil
}

func decodeUTF8(data []byte) (string, error) {
	data = trimBOM(data)
	if !utf8.Valid(data) {
		return "", eris.Wrap(ErrEncoding, "decoding text file")
	}
	return string(data), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// splitText breaks a text document into page candidates. Separators are tried
// in priority order: triple newline, form feed, double newline, then
// fixed-size chunks. Candidates at or below the minimum trimmed length are
// discarded.
func splitText(text string) []string {
	var candidates []string

	switch {
	case strings.Contains(text, "\n\n\n"):
		candidates = strings.Split(text, "\n\n\n")
	case strings.ContainsRune(text, '\f'):
		candidates = strings.Split(text, "\f")
	case strings.Contains(text, "\n\n"):
		candidates = strings.Split(text, "\n\n")
	default:
		candidates = chunkRunes(text, chunkSize)
	}

	kept := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		trimmed := strings.TrimSpace(candidate)
		if utf8.RuneCountInString(trimmed) <= minUnitLength {
			continue
		}
		kept = append(kept, trimmed)
	}

	return kept
}

func chunkRunes(text string, size int) []string {
	runes := []rune(text)

	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
