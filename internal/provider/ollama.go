package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

var _ Provider = (*OllamaProvider)(nil)

// OllamaProvider генерирует историю локальной моделью через нативный API Ollama.
type OllamaProvider struct {
	client      *api.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOllamaProvider создает клиента. BaseURL указывается без суффикса /v1.
func NewOllamaProvider(cfg Config, logger *zap.Logger) (*OllamaProvider, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	p := &OllamaProvider{
		client:      api.NewClient(parsed, &http.Client{Timeout: cfg.Timeout}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger.Named("OllamaProvider"),
	}
	p.logger.Info("Ollama клиент создан", zap.String("base_url", baseURL), zap.String("model", cfg.Model))
	return p, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, theme string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(theme)},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": p.temperature,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := p.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues("ollama", p.model, "error").Inc()
		var statusErr api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", permanent(fmt.Errorf("%w: модель %s не найдена: %v", ErrProviderFailed, p.model, err))
		}
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	aiRequestDuration.WithLabelValues("ollama", p.model).Observe(duration.Seconds())

	if strings.TrimSpace(resp.Message.Content) == "" {
		aiRequestsTotal.WithLabelValues("ollama", p.model, "error_empty_response").Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrProviderFailed)
	}
	aiRequestsTotal.WithLabelValues("ollama", p.model, "success").Inc()
	observeTokens("ollama", p.model, resp.PromptEvalCount, resp.EvalCount)

	p.logger.Info("Ответ от Ollama получен",
		zap.Duration("duration", duration),
		zap.Int("length", len(resp.Message.Content)),
		zap.String("done_reason", resp.DoneReason))
	return resp.Message.Content, nil
}
