package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/metric"
)

// ErrEmptyInput indicates the text was empty after cleaning; no provider call
// was made.
var ErrEmptyInput = eris.New("embedding input is empty")

// ErrBadVector indicates the provider returned elements that cannot be used
// as finite floating point values.
var ErrBadVector = eris.New("embedding vector contains invalid elements")

// Adapter normalizes provider output to a fixed-length float32 vector. Every
// vector it returns has exactly Dimension elements.
type Adapter struct {
	provider  Provider
	dimension int
	logger    *logrus.Logger
	metrics   *metric.Metrics
}

// AdapterOptions configures the embedding adapter.
type AdapterOptions struct {
	Provider  Provider
	Dimension int
	Logger    *logrus.Logger
	Metrics   *metric.Metrics
}

// NewAdapter wires the adapter with its provider and target dimensionality.
func NewAdapter(opts AdapterOptions) (*Adapter, error) {
	if opts.Provider == nil {
		return nil, eris.New("embedding provider is required")
	}
	if opts.Dimension <= 0 {
		return nil, eris.Errorf("embedding dimension must be positive, got %d", opts.Dimension)
	}

	return &Adapter{
		provider:  opts.Provider,
		dimension: opts.Dimension,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}, nil
}

// Dimension returns the configured vector width.
func (a *Adapter) Dimension() int {
	return a.dimension
}

// ModelTag identifies the provider and model behind stored vectors,
// e.g. "openai/text-embedding-3-small".
func (a *Adapter) ModelTag() string {
	return fmt.Sprintf("%s/%s", a.provider.Name(), a.provider.Model())
}

// EmbedDocument embeds text that will be stored and searched against.
func (a *Adapter) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return a.Embed(ctx, text, TaskDocument)
}

// EmbedQuery embeds a search query.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return a.Embed(ctx, text, TaskQuery)
}

// Embed cleans the input, requests a raw vector from the provider and
// normalizes it to the configured dimension.
func (a *Adapter) Embed(ctx context.Context, text string, hint TaskHint) ([]float32, error) {
	cleaned := cleanText(text)
	if cleaned == "" {
		return nil, ErrEmptyInput
	}

	raw, err := a.provider.Embed(ctx, cleaned, hint)
	if err != nil {
		a.metrics.EmbeddingRequest("failed")
		a.logError(logrus.Fields{"hint": string(hint)}, err, "requesting embedding")
		return nil, eris.Wrap(err, "requesting embedding")
	}

	vector, err := a.normalize(raw)
	if err != nil {
		a.metrics.EmbeddingRequest("failed")
		a.logError(logrus.Fields{"hint": string(hint), "raw_length": len(raw)}, err, "normalizing embedding")
		return nil, err
	}

	a.metrics.EmbeddingRequest("ok")
	return vector, nil
}

// EmbedBatch embeds several texts preserving input order. Empty or
// whitespace-only entries map to a nil slot without consuming a provider
// slot, and a failure leaves only the affected slots nil.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string, hint TaskHint) ([][]float32, error) {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	validTexts := make([]string, 0, len(texts))
	validIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		cleaned := cleanText(text)
		if cleaned == "" {
			continue
		}
		validTexts = append(validTexts, cleaned)
		validIndices = append(validIndices, i)
	}

	if len(validTexts) == 0 {
		return results, nil
	}

	raws, err := a.provider.EmbedBatch(ctx, validTexts, hint)
	if err != nil {
		// Degrade to nil slots rather than aborting the batch.
		a.metrics.EmbeddingRequest("failed")
		a.logError(logrus.Fields{"count": len(validTexts)}, err, "requesting batch embeddings")
		return results, nil
	}

	for i, raw := range raws {
		if i >= len(validIndices) || len(raw) == 0 {
			continue
		}
		vector, normErr := a.normalize(raw)
		if normErr != nil {
			a.metrics.EmbeddingRequest("failed")
			a.logError(logrus.Fields{"slot": validIndices[i]}, normErr, "normalizing batch embedding")
			continue
		}
		a.metrics.EmbeddingRequest("ok")
		results[validIndices[i]] = vector
	}

	return results, nil
}

// normalize coerces the raw vector into exactly a.dimension float32 elements.
// Padding and truncation are last-resort fallbacks for providers that cannot
// honor the configured dimensionality.
func (a *Adapter) normalize(raw []float64) ([]float32, error) {
	if len(raw) == 0 {
		return nil, ErrBadVector
	}

	vector := make([]float32, a.dimension)
	for i, value := range raw {
		if i >= a.dimension {
			break
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, eris.Wrapf(ErrBadVector, "element %d is not finite", i)
		}
		vector[i] = float32(value)
	}

	if len(raw) != a.dimension {
		a.logWarn(logrus.Fields{"raw_length": len(raw), "dimension": a.dimension}, "reshaping embedding to configured dimension")
	}

	return vector, nil
}

func cleanText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}

func (a *Adapter) logError(fields logrus.Fields, err error, message string) {
	if a.logger == nil || err == nil {
		return
	}

	entry := a.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func (a *Adapter) logWarn(fields logrus.Fields, message string) {
	if a.logger == nil {
		return
	}
	a.logger.WithFields(fields).Warn(message)
}
