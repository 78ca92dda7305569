// Package translate produces and stores English and Indonesian translations
// of Arabic page text, from stored text or directly from a page image.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Target is a supported translation target language.
type Target string

const (
	// TargetEnglish translates into English.
	TargetEnglish Target = "en"
	// TargetIndonesian translates into Indonesian.
	TargetIndonesian Target = "id"
)

var targetNames = map[Target]string{
	TargetEnglish:    "English",
	TargetIndonesian: "Indonesian",
}

// ParseTarget validates a target language code.
func ParseTarget(code string) (Target, error) {
	target := Target(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := targetNames[target]; !ok {
		return "", eris.Errorf("unsupported translation target: %s", code)
	}
	return target, nil
}

// Translator converts Arabic source material into a target language.
type Translator interface {
	TranslateText(ctx context.Context, text string, target Target) (string, error)
	TranslateImage(ctx context.Context, imagePNG []byte, target Target) (string, error)
}

// Config selects and configures a translator backend.
type Config struct {
	Provider string
	Model    string
	APIKey   string
}

// NewTranslator constructs the configured translator backend.
func NewTranslator(ctx context.Context, cfg Config) (Translator, error) {
	if cfg.Model == "" {
		return nil, eris.New("translation model is required")
	}

	switch cfg.Provider {
	case "gemini":
		return newGeminiTranslator(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		return newOpenAITranslator(cfg.APIKey, cfg.Model)
	default:
		return nil, eris.Errorf("unsupported translation provider: %s", cfg.Provider)
	}
}

func textPrompt(target Target) string {
	return fmt.Sprintf("Translate the following Arabic text to %s. "+
		"Preserve the line breaks and paragraph structure of the original. "+
		"Return only the translation, with no commentary or notes.", targetNames[target])
}

func imagePrompt(target Target) string {
	return fmt.Sprintf("Extract the Arabic text visible in this page image and translate it to %s. "+
		"Translate only what is visible; never invent or complete missing text. "+
		"Preserve the line and paragraph structure. "+
		"Return only the translation, with no commentary or notes.", targetNames[target])
}
