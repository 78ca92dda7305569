package embedding

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rotisserie/eris"
)

type embeddingClient interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

type openAIProvider struct {
	embeddings embeddingClient
	model      string
	dimension  int
}

var _ Provider = (*openAIProvider)(nil)

func newOpenAIProvider(cfg ProviderConfig) (*openAIProvider, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, eris.New("openai api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, eris.New("embedding model is required")
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(baseURL))
	}

	apiClient := openai.NewClient(requestOptions...)

	return &openAIProvider{
		embeddings: &apiClient.Embeddings,
		model:      model,
		dimension:  cfg.Dimension,
	}, nil
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Model() string {
	return p.model
}

func (p *openAIProvider) Embed(ctx context.Context, text string, _ TaskHint) ([]float64, error) {
	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(p.model),
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if p.supportsDimensions() {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	response, err := p.embeddings.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "requesting embedding")
	}

	if response == nil || len(response.Data) == 0 {
		return nil, eris.New("embedding response contained no vectors")
	}

	vector := response.Data[0].Embedding
	if len(vector) == 0 {
		// Some gateways hand the vector back as a JSON-encoded string
		// instead of an array. Reinterpret before giving up.
		if decoded, ok := decodeRawVector(response.Data[0].JSON.Embedding.Raw()); ok {
			return decoded, nil
		}
		return nil, eris.New("embedding vector was empty")
	}

	return vector, nil
}

func (p *openAIProvider) EmbedBatch(ctx context.Context, texts []string, _ TaskHint) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model:          openai.EmbeddingModel(p.model),
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if p.supportsDimensions() {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	response, err := p.embeddings.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "requesting batch embeddings")
	}

	results := make([][]float64, len(texts))
	for _, item := range response.Data {
		index := int(item.Index)
		if index < 0 || index >= len(results) {
			continue
		}
		results[index] = item.Embedding
	}

	return results, nil
}

// supportsDimensions reports whether the configured model accepts an explicit
// dimensions parameter. Only the third-generation OpenAI models do.
func (p *openAIProvider) supportsDimensions() bool {
	if p.dimension <= 0 {
		return false
	}
	return p.model == "text-embedding-3-small" || p.model == "text-embedding-3-large"
}

func decodeRawVector(raw string) ([]float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	// The raw field may hold a quoted JSON string wrapping the array.
	var encoded string
	if err := json.Unmarshal([]byte(trimmed), &encoded); err == nil {
		trimmed = encoded
	}

	var vector []float64
	if err := json.Unmarshal([]byte(trimmed), &vector); err != nil {
		return nil, false
	}
	if len(vector) == 0 {
		return nil, false
	}

	return vector, true
}
