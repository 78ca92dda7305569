package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// TesseractRecognizer runs the local Tesseract engine via gosseract. A fresh
// client is created per attempt; gosseract clients are not safe for reuse
// across goroutines.
type TesseractRecognizer struct {
	languages []string
}

var _ Recognizer = (*TesseractRecognizer)(nil)

// NewTesseractRecognizer constructs a recognizer for the given Tesseract
// language tags (e.g. "ara", "eng").
func NewTesseractRecognizer(languages []string) (*TesseractRecognizer, error) {
	if len(languages) == 0 {
		return nil, eris.New("at least one ocr language is required")
	}

	cleaned := make([]string, 0, len(languages))
	for _, language := range languages {
		trimmed := strings.TrimSpace(language)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return nil, eris.New("at least one ocr language is required")
	}

	return &TesseractRecognizer{languages: cleaned}, nil
}

// Recognize performs one recognition pass with the segmentation mode mapped
// from the requested layout.
func (t *TesseractRecognizer) Recognize(ctx context.Context, imagePNG []byte, layout Layout) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "ocr cancelled")
	}
	if len(imagePNG) == 0 {
		return "", eris.New("image bytes are empty")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", eris.Wrap(err, "setting ocr languages")
	}
	if err := client.SetPageSegMode(pageSegMode(layout)); err != nil {
		return "", eris.Wrap(err, "setting page segmentation mode")
	}
	if err := client.SetImageFromBytes(imagePNG); err != nil {
		return "", eris.Wrap(err, "loading image bytes")
	}

	text, err := client.Text()
	if err != nil {
		return "", eris.Wrapf(err, "recognizing with layout %s", layout)
	}

	return text, nil
}

func pageSegMode(layout Layout) gosseract.PageSegMode {
	switch layout {
	case LayoutColumn:
		return gosseract.PSM_SINGLE_COLUMN
	case LayoutSingleLine:
		return gosseract.PSM_SINGLE_LINE
	case LayoutBlock:
		return gosseract.PSM_SINGLE_BLOCK
	default:
		return gosseract.PSM_AUTO
	}
}
