package embedding

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type stubProvider struct {
	vector     []float64
	batch      [][]float64
	err        error
	batchErr   error
	calls      int
	batchCalls int
	lastInput  string
	lastBatch  []string
	lastHint   TaskHint
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-embed-1" }

func (s *stubProvider) Embed(_ context.Context, text string, hint TaskHint) ([]float64, error) {
	s.calls++
	s.lastInput = text
	s.lastHint = hint
	return s.vector, s.err
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string, hint TaskHint) ([][]float64, error) {
	s.batchCalls++
	s.lastBatch = texts
	s.lastHint = hint
	return s.batch, s.batchErr
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestAdapter(t *testing.T, provider Provider, dimension int) *Adapter {
	t.Helper()

	adapter, err := NewAdapter(AdapterOptions{
		Provider:  provider,
		Dimension: dimension,
		Logger:    silentLogger(),
	})
	if err != nil {
		t.Fatalf("NewAdapter returned error: %v", err)
	}
	return adapter
}

func TestNewAdapterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewAdapter(AdapterOptions{Dimension: 4}); err == nil {
		t.Fatalf("expected error for missing provider")
	}

	if _, err := NewAdapter(AdapterOptions{Provider: &stubProvider{}, Dimension: 0}); err == nil {
		t.Fatalf("expected error for non-positive dimension")
	}
}

func TestEmbedCleansInputAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{vector: []float64{1, 2, 3}}
	adapter := newTestAdapter(t, provider, 3)

	if _, err := adapter.Embed(context.Background(), "   \n\t ", TaskDocument); !eris.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("expected no provider call for empty input, got %d", provider.calls)
	}

	if _, err := adapter.Embed(context.Background(), " line one\nline two ", TaskDocument); err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if provider.lastInput != "line one line two" {
		t.Errorf("expected newlines collapsed to spaces, got %q", provider.lastInput)
	}
}

func TestEmbedPadsShortVectors(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{vector: []float64{0.5, 0.25}}
	adapter := newTestAdapter(t, provider, 4)

	vector, err := adapter.Embed(context.Background(), "text", TaskDocument)
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	expected := []float32{0.5, 0.25, 0, 0}
	if len(vector) != len(expected) {
		t.Fatalf("expected %d elements, got %d", len(expected), len(vector))
	}
	for i, value := range expected {
		if vector[i] != value {
			t.Errorf("element %d: expected %f, got %f", i, value, vector[i])
		}
	}
}

func TestEmbedTruncatesLongVectors(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{vector: []float64{1, 2, 3, 4, 5}}
	adapter := newTestAdapter(t, provider, 3)

	vector, err := adapter.Embed(context.Background(), "text", TaskQuery)
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if len(vector) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(vector))
	}
	if vector[2] != 3 {
		t.Errorf("expected truncation to keep first elements, got %v", vector)
	}
	if provider.lastHint != TaskQuery {
		t.Errorf("expected query hint to reach provider, got %q", provider.lastHint)
	}
}

func TestEmbedRejectsNonFiniteElements(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{vector: []float64{1, math.NaN(), 3}}
	adapter := newTestAdapter(t, provider, 3)

	if _, err := adapter.Embed(context.Background(), "text", TaskDocument); !eris.Is(err, ErrBadVector) {
		t.Fatalf("expected ErrBadVector, got %v", err)
	}

	provider.vector = []float64{math.Inf(1), 2, 3}
	if _, err := adapter.Embed(context.Background(), "text", TaskDocument); !eris.Is(err, ErrBadVector) {
		t.Fatalf("expected ErrBadVector for infinite element, got %v", err)
	}
}

func TestEmbedBatchPreservesOrderAndSkipsBlanks(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{batch: [][]float64{{1, 1}, {2, 2}}}
	adapter := newTestAdapter(t, provider, 2)

	results, err := adapter.EmbedBatch(context.Background(), []string{"first", "   ", "second"}, TaskDocument)
	if err != nil {
		t.Fatalf("EmbedBatch returned error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(results))
	}
	if results[0] == nil || results[2] == nil {
		t.Fatalf("expected slots 0 and 2 to be populated, got %v", results)
	}
	if results[1] != nil {
		t.Errorf("expected blank entry to map to nil slot")
	}
	if len(provider.lastBatch) != 2 {
		t.Errorf("expected blank entry to not consume a provider slot, sent %v", provider.lastBatch)
	}
}

func TestEmbedBatchDegradesToNilOnProviderFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{batchErr: eris.New("backend down")}
	adapter := newTestAdapter(t, provider, 2)

	results, err := adapter.EmbedBatch(context.Background(), []string{"first", "second"}, TaskDocument)
	if err != nil {
		t.Fatalf("expected batch failure to degrade, got error: %v", err)
	}

	for i, slot := range results {
		if slot != nil {
			t.Errorf("expected slot %d to be nil after provider failure", i)
		}
	}
}

func TestModelTag(t *testing.T) {
	t.Parallel()

	adapter := newTestAdapter(t, &stubProvider{vector: []float64{1}}, 1)
	if adapter.ModelTag() != "stub/stub-embed-1" {
		t.Errorf("unexpected model tag %q", adapter.ModelTag())
	}
}
