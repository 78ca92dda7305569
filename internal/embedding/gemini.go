package embedding

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

type geminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

var _ Provider = (*geminiProvider)(nil)

func newGeminiProvider(ctx context.Context, cfg ProviderConfig) (*geminiProvider, error) {
	if strings.TrimSpace(cfg.GoogleAPIKey) == "" {
		return nil, eris.New("google api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, eris.New("embedding model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating gemini client")
	}

	return &geminiProvider{
		client:    client,
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) Model() string {
	return p.model
}

func (p *geminiProvider) Embed(ctx context.Context, text string, hint TaskHint) ([]float64, error) {
	vectors, err := p.embed(ctx, []string{text}, hint)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, eris.New("embedding response contained no vectors")
	}
	return vectors[0], nil
}

func (p *geminiProvider) EmbedBatch(ctx context.Context, texts []string, hint TaskHint) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.embed(ctx, texts, hint)
}

func (p *geminiProvider) embed(ctx context.Context, texts []string, hint TaskHint) ([][]float64, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	config := &genai.EmbedContentConfig{TaskType: taskType(hint)}
	if p.dimension > 0 {
		config.OutputDimensionality = genai.Ptr(int32(p.dimension))
	}

	response, err := p.client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, eris.Wrap(err, "requesting gemini embeddings")
	}

	if response == nil || len(response.Embeddings) == 0 {
		return nil, eris.New("embedding response contained no vectors")
	}

	results := make([][]float64, len(texts))
	for i, item := range response.Embeddings {
		if i >= len(results) || item == nil {
			break
		}
		vector := make([]float64, len(item.Values))
		for j, value := range item.Values {
			vector[j] = float64(value)
		}
		results[i] = vector
	}

	return results, nil
}

func taskType(hint TaskHint) string {
	if hint == TaskQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}
