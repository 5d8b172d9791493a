package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gamecontent-server/internal/models"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaClient реализует TextGenerator через нативный API Ollama.
type ollamaClient struct {
	client *api.Client
	cfg    TextConfig
	logger *zap.Logger
}

func newOllamaClient(cfg TextConfig, logger *zap.Logger) (*ollamaClient, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	client := api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout})
	logger.Info("Ollama client created",
		zap.String("baseURL", baseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return &ollamaClient{client: client, cfg: cfg, logger: logger}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, prompt string, contentType models.ContentType) (string, error) {
	log := c.logger.With(zap.String("model", c.cfg.Model), zap.String("contentType", string(contentType)))

	messages := make([]api.Message, 0, 2)
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.cfg.Temperature,
			"top_p":       c.cfg.TopP,
			"num_predict": c.cfg.MaxTokens,
		},
	}
	if c.cfg.JSONMode && contentType.IsStructured() {
		req.Format = json.RawMessage(`"json"`)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r // без стрима приходит один финальный ответ
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		appErr := classifyError(err)
		observeRequest(ProviderOllama, c.cfg.Model, string(appErr.Kind), duration.Seconds())
		log.Warn("Ollama call failed", zap.Duration("duration", duration), zap.String("kind", string(appErr.Kind)), zap.Error(err))
		return "", appErr
	}

	text := resp.Message.Content
	if text == "" {
		observeRequest(ProviderOllama, c.cfg.Model, "empty_response", duration.Seconds())
		log.Warn("Ollama returned an empty completion", zap.Duration("duration", duration))
		return "", models.NewUnknownError("vendor returned an empty completion", nil)
	}
	observeRequest(ProviderOllama, c.cfg.Model, "success", duration.Seconds())

	usage := Usage{PromptTokens: resp.PromptEvalCount, CompletionTokens: resp.EvalCount}
	if usage.TotalTokens() == 0 {
		usage = estimateUsage(c.cfg.Model, []string{c.cfg.SystemPrompt, prompt}, text)
	}
	observeTokens(ProviderOllama, c.cfg.Model, usage)

	log.Info("Ollama responded",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(text)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
	)
	log.Debug("Raw vendor response", zap.String("text", truncate(text)))
	return text, nil
}
