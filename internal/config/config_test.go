package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DATABASE_URL", "LOG_LEVEL", "ENV", "SENTRY_DSN",
		"OPENAI_API_KEY", "GOOGLE_API_KEY",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSION",
		"TRANSLATION_PROVIDER", "TRANSLATION_MODEL",
		"OCR_MODEL", "OCR_LANGUAGES",
		"STORAGE_DRIVER", "STORAGE_PATH", "AWS_S3_BUCKET_NAME", "AWS_REGION",
		"PROVIDER_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DatabaseURL != defaultDatabaseURL {
		t.Errorf("expected default database URL %q, got %q", defaultDatabaseURL, cfg.DatabaseURL)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.EmbeddingProvider != defaultEmbeddingProvider {
		t.Errorf("expected default embedding provider %q, got %q", defaultEmbeddingProvider, cfg.EmbeddingProvider)
	}

	if cfg.EmbeddingDimension != defaultEmbeddingDimension {
		t.Errorf("expected default embedding dimension %d, got %d", defaultEmbeddingDimension, cfg.EmbeddingDimension)
	}

	if cfg.TranslationProvider != defaultTranslationProvider {
		t.Errorf("expected default translation provider %q, got %q", defaultTranslationProvider, cfg.TranslationProvider)
	}

	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "ara" || cfg.OCRLanguages[1] != "eng" {
		t.Errorf("expected default OCR languages [ara eng], got %v", cfg.OCRLanguages)
	}

	if cfg.StorageDriver != defaultStorageDriver {
		t.Errorf("expected default storage driver %q, got %q", defaultStorageDriver, cfg.StorageDriver)
	}

	if cfg.ProviderTimeout != defaultProviderTimeout {
		t.Errorf("expected provider timeout %s, got %s", defaultProviderTimeout, cfg.ProviderTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db:5432/books")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("EMBEDDING_MODEL", "gemini-embedding-001")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("OCR_LANGUAGES", " ara , eng , fas ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://db:5432/books" {
		t.Errorf("unexpected database URL %q", cfg.DatabaseURL)
	}

	if cfg.EmbeddingProvider != "gemini" || cfg.EmbeddingModel != "gemini-embedding-001" {
		t.Errorf("unexpected embedding settings: %q %q", cfg.EmbeddingProvider, cfg.EmbeddingModel)
	}

	if cfg.EmbeddingDimension != 768 {
		t.Errorf("expected dimension 768, got %d", cfg.EmbeddingDimension)
	}

	if len(cfg.OCRLanguages) != 3 || cfg.OCRLanguages[2] != "fas" {
		t.Errorf("expected trimmed language list of 3, got %v", cfg.OCRLanguages)
	}
}

func TestLoadRejectsBadDimension(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDING_DIMENSION", "abc")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric dimension")
	} else if !strings.Contains(err.Error(), "EMBEDDING_DIMENSION") {
		t.Errorf("expected error to mention EMBEDDING_DIMENSION, got %v", err)
	}

	t.Setenv("EMBEDDING_DIMENSION", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive dimension")
	}
}

func TestLoadProviderTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ProviderTimeout.Seconds() != 90 {
		t.Errorf("expected 90s provider timeout, got %s", cfg.ProviderTimeout)
	}

	t.Setenv("PROVIDER_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unparsable timeout")
	}
}
