package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gamecontent-server/internal/models"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	debugTextLimit = 300
)

// TextGenerator - клиент текстового вендора. Один вызов, без повторов.
type TextGenerator interface {
	// GenerateText отправляет готовую инструкцию и возвращает сырой текст ответа.
	GenerateText(ctx context.Context, prompt string, contentType models.ContentType) (string, error)
}

// TextConfig - параметры текстового клиента.
type TextConfig struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	TopP         float64
	SystemPrompt string
	// JSONMode просит у вендора JSON на уровне API (только Ollama).
	JSONMode bool
}

// NewTextGenerator создает клиент в зависимости от провайдера.
// Без ключа для OpenAI-совместимого API возвращается клиент, который на каждый
// вызов отвечает ошибкой конфигурации: сервер при этом продолжает работать.
func NewTextGenerator(cfg TextConfig, logger *zap.Logger) (TextGenerator, error) {
	log := logger.Named("TextGenerator")
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			log.Warn("AI API key is not configured, text generation will fail with configuration errors")
			return &unconfiguredClient{message: "text generation API key is not configured (AI_API_KEY)"}, nil
		}
		return newOpenAIClient(cfg, log), nil
	case ProviderOllama:
		return newOllamaClient(cfg, log)
	default:
		return nil, fmt.Errorf("неподдерживаемый тип AI клиента: %s", cfg.Provider)
	}
}

// unconfiguredClient реализует TextGenerator и ImageGenerator при отсутствии ключа.
type unconfiguredClient struct {
	message string
}

func (c *unconfiguredClient) GenerateText(context.Context, string, models.ContentType) (string, error) {
	return "", models.NewConfigurationError(c.message)
}

func (c *unconfiguredClient) GenerateImage(context.Context, string, ImageOptions) (*ImageResult, error) {
	return nil, models.NewConfigurationError(c.message)
}

func (c *unconfiguredClient) GenerateImageFromImage(context.Context, string, string, ImageToImageOptions) (*ImageResult, error) {
	return nil, models.NewConfigurationError(c.message)
}

func truncate(s string) string {
	if len(s) <= debugTextLimit {
		return s
	}
	return s[:debugTextLimit] + "..."
}
