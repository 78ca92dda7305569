package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const visionPrompt = `Extract all text from this book page image exactly as it appears.
Preserve the original line breaks, paragraph breaks and reading order.
Keep Arabic text in Arabic script; do not translate or transliterate.
Do not add commentary, headers or markdown formatting.
If the page is blank, return nothing.`

// VisionReader reads whole page images with a multimodal model. It is used as
// an alternative recognizer backend for degraded scans where the local engine
// underperforms.
type VisionReader struct {
	client *genai.Client
	model  string
}

// NewVisionReader constructs a Gemini-backed page reader.
func NewVisionReader(ctx context.Context, apiKey, model string) (*VisionReader, error) {
	if apiKey == "" {
		return nil, eris.New("google api key is required")
	}
	if model == "" {
		return nil, eris.New("vision model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating genai client")
	}

	return &VisionReader{client: client, model: model}, nil
}

// ReadPage sends the page image and the extraction prompt to the model and
// returns the recognized text with fully blank edge lines trimmed. Interior
// blank lines are paragraph structure and are kept.
func (v *VisionReader) ReadPage(ctx context.Context, imagePNG []byte) (string, error) {
	if len(imagePNG) == 0 {
		return "", eris.New("image bytes are empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(visionPrompt),
		genai.NewPartFromBytes(imagePNG, "image/png"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	response, err := v.client.Models.GenerateContent(ctx, v.model, contents, nil)
	if err != nil {
		return "", eris.Wrap(err, "reading page with vision model")
	}

	return trimBlankEdges(response.Text()), nil
}

// trimBlankEdges drops leading and trailing lines that contain only
// whitespace, leaving interior structure untouched.
func trimBlankEdges(text string) string {
	lines := strings.Split(text, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}
