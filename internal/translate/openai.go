package translate

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rotisserie/eris"
)

type chatCompletionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type openAITranslator struct {
	chat  chatCompletionClient
	model string
}

var _ Translator = (*openAITranslator)(nil)

const translatorSystemPrompt = "You are a professional translator of classical and modern Arabic texts."

func newOpenAITranslator(apiKey, model string) (*openAITranslator, error) {
	if apiKey == "" {
		return nil, eris.New("openai api key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &openAITranslator{
		chat:  &client.Chat.Completions,
		model: model,
	}, nil
}

func (o *openAITranslator) TranslateText(ctx context.Context, text string, target Target) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", eris.New("text is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(translatorSystemPrompt),
			openai.UserMessage(textPrompt(target) + "\n\n" + text),
		},
	}

	completion, err := o.chat.New(ctx, params)
	if err != nil {
		return "", eris.Wrapf(err, "translating to %s", target)
	}
	if len(completion.Choices) == 0 {
		return "", eris.New("translation completion returned no choices")
	}

	translation := strings.TrimSpace(completion.Choices[0].Message.Content)
	if translation == "" {
		return "", eris.New("translation response is empty")
	}

	return translation, nil
}

// TranslateImage is only available on the Gemini backend; the OpenAI path is
// text-only.
func (o *openAITranslator) TranslateImage(_ context.Context, _ []byte, target Target) (string, error) {
	return "", eris.Errorf("image translation to %s is not supported by the openai backend", target)
}
