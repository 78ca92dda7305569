package extract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// rasterDPI is the rendering resolution for pages routed through OCR.
const rasterDPI = 400

const (
	// minMeaningfulChars is the non-whitespace character count below which a
	// text layer is considered an artifact.
	minMeaningfulChars = 50
	// minSubstantialRatio is the minimum fraction of non-empty lines that
	// must be substantial (longer than headers and page numbers).
	minSubstantialRatio = 0.3
	// minLeadingLength is the minimum joined length of the first substantial
	// lines.
	minLeadingLength = 30
	// leadingLineCount is how many substantial lines the leading check joins.
	leadingLineCount = 3
	// minOCRChars is the cleaned-length threshold below which an OCR result
	// is treated as a blank page.
	minOCRChars = 10
)

// extractPDF runs per-page smart extraction: direct text layer where the page
// carries meaningful text, OCR over a rasterized image otherwise. Pages that
// yield nothing are dropped; a blank page is not an error.
func (e *Engine) extractPDF(ctx context.Context, data []byte) ([]ExtractedPage, error) {
	reader, err := openPDF(data)
	if err != nil {
		return nil, err
	}

	// The fitz document is opened lazily: most books have a text layer and
	// never need rasterization.
	var rasterDoc *fitz.Document
	defer func() {
		if rasterDoc != nil {
			rasterDoc.Close()
		}
	}()

	pageCount := reader.NumPage()
	pages := make([]ExtractedPage, 0, pageCount)

	for i := 1; i <= pageCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "pdf extraction cancelled")
		}

		text := pageText(reader, i)
		if hasMeaningfulText(text) {
			pages = append(pages, ExtractedPage{
				Text:        strings.TrimSpace(text),
				Method:      MethodText,
				SourceIndex: i,
			})
			continue
		}

		if rasterDoc == nil {
			rasterDoc, err = fitz.NewFromMemory(data)
			if err != nil {
				return nil, eris.Wrap(err, "opening pdf for rasterization")
			}
		}

		page, ok := e.recognizePage(ctx, rasterDoc, i)
		if ok {
			pages = append(pages, page)
		}
	}

	return pages, nil
}

func openPDF(data []byte) (*pdf.Reader, error) {
	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), func() string {
		// Some publishers encrypt with an empty owner password.
		return ""
	})
	if err != nil {
		message := strings.ToLower(err.Error())
		if strings.Contains(message, "password") || strings.Contains(message, "encrypt") {
			return nil, eris.Wrap(ErrEncrypted, err.Error())
		}
		return nil, eris.Wrap(err, "opening pdf")
	}

	return reader, nil
}

func pageText(reader *pdf.Reader, pageNumber int) string {
	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		// Image-only or malformed page; the OCR path decides what it holds.
		return ""
	}

	return text
}

// recognizePage rasterizes one PDF page and runs it through OCR. The fitz
// document uses 0-based page indexes. Returns false when the page contributes
// nothing.
func (e *Engine) recognizePage(ctx context.Context, doc *fitz.Document, pageNumber int) (ExtractedPage, bool) {
	img, err := doc.ImageDPI(pageNumber-1, rasterDPI)
	if err != nil {
		e.logError(logrus.Fields{"page": pageNumber}, err, "rasterizing pdf page")
		return ExtractedPage{}, false
	}

	text, err := e.recognizer.RecognizeImage(ctx, img)
	if err != nil {
		e.logError(logrus.Fields{"page": pageNumber}, err, "recognizing pdf page")
		return ExtractedPage{}, false
	}
	if utf8.RuneCountInString(text) <= minOCRChars {
		return ExtractedPage{}, false
	}

	encoded, err := encodePagePNG(img)
	if err != nil {
		e.logError(logrus.Fields{"page": pageNumber}, err, "encoding page image")
		encoded = nil
	}

	return ExtractedPage{
		Text:        text,
		Method:      MethodOCR,
		SourceIndex: pageNumber,
		ImagePNG:    encoded,
	}, true
}

// hasMeaningfulText decides whether a page's text layer is real content or an
// artifact (scanner watermarks, page numbers, stray glyphs). Three checks:
// enough non-whitespace characters overall, enough substantial lines relative
// to all non-empty lines, and substantial leading lines that are not just
// fragments.
func hasMeaningfulText(text string) bool {
	if nonWhitespaceCount(text) <= minMeaningfulChars {
		return false
	}

	var nonEmpty, substantial int
	var leading []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if utf8.RuneCountInString(trimmed) > minUnitLength {
			substantial++
			if len(leading) < leadingLineCount {
				leading = append(leading, trimmed)
			}
		}
	}

	if nonEmpty == 0 {
		return false
	}
	if float64(substantial)/float64(nonEmpty) < minSubstantialRatio {
		return false
	}

	return utf8.RuneCountInString(strings.Join(leading, " ")) >= minLeadingLength
}

func encodePagePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nonWhitespaceCount(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
