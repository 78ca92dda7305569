package embedding

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// TaskHint tells the provider whether the text is a stored document or a
// search query. Some backends produce asymmetric embeddings and need this.
type TaskHint string

const (
	// TaskDocument marks text that will be stored and searched against.
	TaskDocument TaskHint = "document"
	// TaskQuery marks text used to search stored documents.
	TaskQuery TaskHint = "query"
)

// Provider is the raw embedding capability boundary. Implementations return
// vectors exactly as the backend produced them; the Adapter owns dimension
// normalization and element validation.
type Provider interface {
	Name() string
	Model() string
	Embed(ctx context.Context, text string, hint TaskHint) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string, hint TaskHint) ([][]float64, error)
}

// ProviderConfig selects and configures a concrete embedding backend.
type ProviderConfig struct {
	Provider     string
	Model        string
	Dimension    int
	OpenAIAPIKey string
	GoogleAPIKey string
	BaseURL      string
}

// NewProvider constructs the embedding backend selected by cfg.Provider.
// Unsupported provider names and missing credentials fail here, at
// construction time, never on first use.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return newOpenAIProvider(cfg)
	case "gemini":
		return newGeminiProvider(ctx, cfg)
	default:
		return nil, eris.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
