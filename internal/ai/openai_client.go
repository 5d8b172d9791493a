package ai

import (
	"context"
	"net/http"
	"time"

	"gamecontent-server/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient реализует TextGenerator через go-openai. Подходит для Groq,
// OpenRouter и самого OpenAI: отличается только BaseURL.
type openAIClient struct {
	client *openaigo.Client
	cfg    TextConfig
	logger *zap.Logger
}

func newOpenAIClient(cfg TextConfig, logger *zap.Logger) *openAIClient {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger.Info("OpenAI-compatible client created",
		zap.String("baseURL", openaiConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return &openAIClient{
		client: openaigo.NewClientWithConfig(openaiConfig),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *openAIClient) GenerateText(ctx context.Context, prompt string, contentType models.ContentType) (string, error) {
	log := c.logger.With(zap.String("model", c.cfg.Model), zap.String("contentType", string(contentType)))

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt},
		{Role: openaigo.ChatMessageRoleUser, Content: prompt},
	}
	if c.cfg.SystemPrompt == "" {
		messages = messages[1:]
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        float32(c.cfg.TopP),
	})
	duration := time.Since(startTime)

	if err != nil {
		appErr := classifyError(err)
		observeRequest(ProviderOpenAI, c.cfg.Model, string(appErr.Kind), duration.Seconds())
		log.Warn("Text vendor call failed", zap.Duration("duration", duration), zap.String("kind", string(appErr.Kind)), zap.Error(err))
		return "", appErr
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		observeRequest(ProviderOpenAI, c.cfg.Model, "empty_response", duration.Seconds())
		log.Warn("Text vendor returned an empty completion", zap.Duration("duration", duration))
		return "", models.NewUnknownError("vendor returned an empty completion", nil)
	}

	text := resp.Choices[0].Message.Content
	observeRequest(ProviderOpenAI, c.cfg.Model, "success", duration.Seconds())

	usage := Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
	if resp.Usage.TotalTokens == 0 {
		usage = estimateUsage(c.cfg.Model, []string{c.cfg.SystemPrompt, prompt}, text)
	}
	observeTokens(ProviderOpenAI, c.cfg.Model, usage)

	log.Info("Text vendor responded",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(text)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
		zap.Bool("usageEstimated", usage.Estimated),
	)
	log.Debug("Raw vendor response", zap.String("text", truncate(text)))
	return text, nil
}
