package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider работает с любым OpenAI-совместимым API (OpenAI, OpenRouter и т.п.).
type OpenAIProvider struct {
	client      *openaigo.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAIProvider создает клиента go-openai с заданным BaseURL.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	p := &OpenAIProvider{
		client:      openaigo.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger.Named("OpenAIProvider"),
	}
	p.logger.Info("OpenAI клиент создан",
		zap.String("base_url", clientCfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))
	return p
}

func (p *OpenAIProvider) Generate(ctx context.Context, theme string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	userInput := userPrompt(theme)
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userInput},
		},
		Temperature: p.temperature,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues("openai", p.model, "error").Inc()
		wrapped := fmt.Errorf("%w: %v", ErrProviderFailed, err)
		if isPermanentAPIError(err) {
			return "", permanent(wrapped)
		}
		return "", wrapped
	}
	aiRequestDuration.WithLabelValues("openai", p.model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		aiRequestsTotal.WithLabelValues("openai", p.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrProviderFailed)
	}
	aiRequestsTotal.WithLabelValues("openai", p.model, "success").Inc()

	text := resp.Choices[0].Message.Content
	promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if resp.Usage.TotalTokens == 0 {
		promptTokens = estimateTokens(p.model, systemPrompt+userInput)
		completionTokens = estimateTokens(p.model, text)
	}
	observeTokens("openai", p.model, promptTokens, completionTokens)

	p.logger.Info("Ответ от AI получен",
		zap.Duration("duration", duration),
		zap.Int("length", len(text)),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return text, nil
}

// isPermanentAPIError ошибки клиента (кроме 408 и 429) повторять нет смысла.
func isPermanentAPIError(err error) bool {
	status := 0
	var apiErr *openaigo.APIError
	var reqErr *openaigo.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}
