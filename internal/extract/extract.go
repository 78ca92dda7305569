// Package extract turns uploaded document files into ordered page texts. It
// dispatches on file type, runs per-page smart extraction for PDFs with an
// OCR fallback for image-only pages, and drops units that carry no content.
package extract

import (
	"context"
	"image"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/metric"
)

// ErrEncoding indicates file bytes that could not be decoded as UTF-8.
var ErrEncoding = eris.New("file is not valid utf-8")

// ErrEncrypted indicates a password-protected document that could not be
// unlocked with an empty password.
var ErrEncrypted = eris.New("document is encrypted")

// ErrUnsupported indicates a file type the extractor does not handle.
var ErrUnsupported = eris.New("unsupported file type")

// Method records how a page's text was obtained.
type Method string

const (
	// MethodText marks text taken directly from the document's text layer.
	MethodText Method = "text_extraction"
	// MethodOCR marks text recognized from a rasterized page image.
	MethodOCR Method = "ocr"
)

// ExtractedPage is one unit of extracted content in document order. For OCR'd
// PDF pages ImagePNG holds the rasterized page so callers can persist it.
type ExtractedPage struct {
	Text        string
	Method      Method
	SourceIndex int
	ImagePNG    []byte
}

// PageRecognizer is the OCR capability the extractor needs for image-only PDF
// pages.
type PageRecognizer interface {
	RecognizeImage(ctx context.Context, img image.Image) (string, error)
}

// Engine extracts page texts from uploaded files.
type Engine struct {
	recognizer PageRecognizer
	logger     *logrus.Logger
	metrics    *metric.Metrics
}

// EngineOptions configures the extraction engine.
type EngineOptions struct {
	Recognizer PageRecognizer
	Logger     *logrus.Logger
	Metrics    *metric.Metrics
}

// NewEngine constructs the extraction engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Recognizer == nil {
		return nil, eris.New("page recognizer is required")
	}

	return &Engine{
		recognizer: opts.Recognizer,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// ExtractFile extracts ordered page texts from the file, dispatching on the
// filename extension. Units with empty cleaned text are dropped.
func (e *Engine) ExtractFile(ctx context.Context, filename string, data []byte) ([]ExtractedPage, error) {
	if len(data) == 0 {
		return nil, eris.New("file is empty")
	}

	var (
		pages []ExtractedPage
		err   error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		pages, err = extractPlainText(data)
	case ".pdf":
		pages, err = e.extractPDF(ctx, data)
	case ".docx":
		pages, err = extractWord(data, false)
	case ".doc":
		pages, err = extractWord(data, true)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "file %s", filename)
	}
	if err != nil {
		return nil, err
	}

	return dropEmpty(pages), nil
}

func dropEmpty(pages []ExtractedPage) []ExtractedPage {
	kept := make([]ExtractedPage, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		kept = append(kept, page)
	}
	return kept
}

func (e *Engine) logError(fields logrus.Fields, err error, message string) {
	if e.logger == nil || err == nil {
		return
	}

	entry := e.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
