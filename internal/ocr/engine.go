// Package ocr turns rasterized page images into cleaned Arabic text. It
// preprocesses the image, runs a priority-ordered series of recognition
// attempts and applies script-specific cleanup to the best result.
package ocr

import (
	"context"
	"image"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/metric"
)

// Layout selects the page segmentation strategy for a recognition attempt.
type Layout string

const (
	// LayoutColumn treats the page as a single column of variable-size text.
	LayoutColumn Layout = "column"
	// LayoutAuto lets the engine segment the page fully automatically.
	LayoutAuto Layout = "auto"
	// LayoutSingleLine treats the image as one line of text.
	LayoutSingleLine Layout = "line"
	// LayoutBlock treats the page as a uniform block of text.
	LayoutBlock Layout = "block"
)

// attemptOrder is the fixed priority in which layouts are tried. Column-aware
// segmentation works best for typical book scans, so it goes first.
var attemptOrder = []Layout{LayoutColumn, LayoutAuto, LayoutSingleLine, LayoutBlock}

// earlyStopLength is the non-whitespace character count after which the
// engine stops trying further layouts. Bounds latency, not optimality.
const earlyStopLength = 100

// Recognizer is the raw OCR capability boundary: a preprocessed PNG image in,
// raw recognized text out.
type Recognizer interface {
	Recognize(ctx context.Context, imagePNG []byte, layout Layout) (string, error)
}

// Engine runs the best-of-N recognition loop over a Recognizer.
type Engine struct {
	recognizer Recognizer
	logger     *logrus.Logger
	metrics    *metric.Metrics
}

// EngineOptions configures the OCR engine.
type EngineOptions struct {
	Recognizer Recognizer
	Logger     *logrus.Logger
	Metrics    *metric.Metrics
}

// NewEngine constructs the OCR engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Recognizer == nil {
		return nil, eris.New("ocr recognizer is required")
	}

	return &Engine{
		recognizer: opts.Recognizer,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// RecognizeImage preprocesses the image, tries each layout in priority order
// keeping the longest result, stops early once a result is long enough, and
// returns the cleaned text. A page that yields nothing returns an empty
// string without error; blank pages are legitimate.
func (e *Engine) RecognizeImage(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", eris.New("image is nil")
	}

	e.metrics.OCRPage()

	prepared := Preprocess(img)
	encoded, err := encodePNG(prepared)
	if err != nil {
		return "", eris.Wrap(err, "encoding preprocessed image")
	}

	var best string
	bestLength := 0

	for _, layout := range attemptOrder {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", eris.Wrap(ctxErr, "ocr cancelled")
		}

		e.metrics.OCRAttempt()
		text, attemptErr := e.recognizer.Recognize(ctx, encoded, layout)
		if attemptErr != nil {
			e.logError(logrus.Fields{"layout": string(layout)}, attemptErr, "ocr attempt failed")
			continue
		}

		length := nonWhitespaceLength(text)
		if length > bestLength {
			best = text
			bestLength = length
		}

		if bestLength > earlyStopLength {
			break
		}
	}

	if bestLength == 0 {
		return "", nil
	}

	return CleanArabicText(best), nil
}

func nonWhitespaceLength(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
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
