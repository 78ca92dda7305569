package translate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

type geminiTranslator struct {
	client *genai.Client
	model  string
}

var _ Translator = (*geminiTranslator)(nil)

func newGeminiTranslator(ctx context.Context, apiKey, model string) (*geminiTranslator, error) {
	if apiKey == "" {
		return nil, eris.New("google api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating genai client")
	}

	return &geminiTranslator{client: client, model: model}, nil
}

func (g *geminiTranslator) TranslateText(ctx context.Context, text string, target Target) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", eris.New("text is empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(textPrompt(target)),
		genai.NewPartFromText(text),
	}

	return g.generate(ctx, parts, target)
}

func (g *geminiTranslator) TranslateImage(ctx context.Context, imagePNG []byte, target Target) (string, error) {
	if len(imagePNG) == 0 {
		return "", eris.New("image bytes are empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(imagePrompt(target)),
		genai.NewPartFromBytes(imagePNG, "image/png"),
	}

	return g.generate(ctx, parts, target)
}

func (g *geminiTranslator) generate(ctx context.Context, parts []*genai.Part, target Target) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", eris.Wrapf(err, "translating to %s", target)
	}

	translation := strings.TrimSpace(response.Text())
	if translation == "" {
		return "", eris.New("translation response is empty")
	}

	return translation, nil
}
