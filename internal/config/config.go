package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the book processing service.
type Config struct {
	DatabaseURL string
	LogLevel    string
	Environment string
	SentryDSN   string

	// ProviderTimeout bounds single calls to external providers (embedding,
	// translation, vision OCR).
	ProviderTimeout time.Duration

	OpenAIAPIKey string
	GoogleAPIKey string

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int

	TranslationProvider string
	TranslationModel    string

	VisionOCRModel string
	OCRLanguages   []string

	StorageDriver string
	StoragePath   string
	S3Bucket      string
	S3Region      string
}

const (
	defaultDatabaseURL         = "postgres://localhost:5432/maktaba?sslmode=disable"
	defaultLogLevel            = "info"
	defaultEnvironment         = "development"
	defaultProviderTimeout     = 60 * time.Second
	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimension  = 1536
	defaultTranslationProvider = "gemini"
	defaultTranslationModel    = "gemini-2.0-flash"
	defaultVisionOCRModel      = "gemini-2.0-flash"
	defaultOCRLanguages        = "ara,eng"
	defaultStorageDriver       = "local"
	defaultStoragePath         = "./data/objects"
	defaultS3Region            = "us-east-1"
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", defaultDatabaseURL),
		LogLevel:            getEnv("LOG_LEVEL", defaultLogLevel),
		Environment:         getEnv("ENV", defaultEnvironment),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		ProviderTimeout:     defaultProviderTimeout,
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", defaultEmbeddingProvider),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", defaultEmbeddingModel),
		TranslationProvider: getEnv("TRANSLATION_PROVIDER", defaultTranslationProvider),
		TranslationModel:    getEnv("TRANSLATION_MODEL", defaultTranslationModel),
		VisionOCRModel:      getEnv("OCR_MODEL", defaultVisionOCRModel),
		StorageDriver:       getEnv("STORAGE_DRIVER", defaultStorageDriver),
		StoragePath:         getEnv("STORAGE_PATH", defaultStoragePath),
		S3Bucket:            os.Getenv("AWS_S3_BUCKET_NAME"),
		S3Region:            getEnv("AWS_REGION", defaultS3Region),
	}

	dimensionValue := getEnv("EMBEDDING_DIMENSION", strconv.Itoa(defaultEmbeddingDimension))
	dimension, err := strconv.Atoi(dimensionValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid EMBEDDING_DIMENSION value: %s", dimensionValue)
	}
	if dimension <= 0 {
		return nil, eris.Errorf("EMBEDDING_DIMENSION must be positive, got %d", dimension)
	}
	cfg.EmbeddingDimension = dimension

	if raw := os.Getenv("PROVIDER_TIMEOUT"); raw != "" {
		timeout, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return nil, eris.Wrapf(parseErr, "invalid PROVIDER_TIMEOUT value: %s", raw)
		}
		if timeout <= 0 {
			return nil, eris.Errorf("PROVIDER_TIMEOUT must be positive, got %s", timeout)
		}
		cfg.ProviderTimeout = timeout
	}

	cfg.OCRLanguages = parseLanguages(getEnv("OCR_LANGUAGES", defaultOCRLanguages))
	if len(cfg.OCRLanguages) == 0 {
		return nil, eris.New("OCR_LANGUAGES must include at least one language tag")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLanguages(raw string) []string {
	parts := strings.Split(raw, ",")
	languages := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		languages = append(languages, trimmed)
	}
	return languages
}
