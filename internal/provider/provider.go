package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrProviderFailed ошибка генерации текста внешней моделью.
var ErrProviderFailed = errors.New("story provider failed")

// Provider генерирует сырой текст дерева истории по теме.
type Provider interface {
	Generate(ctx context.Context, theme string) (string, error)
}

// Config параметры подключения к модели.
type Config struct {
	Kind           string // openai | ollama
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float32
	Timeout        time.Duration // на одну попытку
	MaxAttempts    int
	BaseRetryDelay time.Duration
}

// New создает провайдера нужного типа с повторами при сетевых ошибках.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	var inner Provider
	switch strings.ToLower(cfg.Kind) {
	case "openai":
		inner = NewOpenAIProvider(cfg, logger)
	case "ollama":
		p, err := NewOllamaProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		inner = p
	default:
		return nil, fmt.Errorf("неизвестный тип AI провайдера: %q", cfg.Kind)
	}
	return NewRetrying(inner, cfg.Model, cfg.MaxAttempts, cfg.BaseRetryDelay, logger), nil
}

// systemPrompt описывает формат ответа. Содержание промпта вне зоны валидации:
// все проверки структуры делает schemas.StoryValidator.
const systemPrompt = `You are a creative story writer that creates engaging choose-your-own-adventure stories.
Generate a complete branching story with multiple paths and endings in the JSON format below.

The story should have:
1. A compelling title
2. A starting situation (root node) with 2-3 options
3. Each option leads to another node with its own options
4. Some paths lead to endings (both winning and losing)
5. At least one path leads to a winning ending

Story structure requirements:
- Each node has 2-3 options, except ending nodes which have none
- The story goes 3-4 levels deep including the root node
- Vary path lengths, some end earlier, some later
- Every path ends in an ending node

Respond with a single JSON object and nothing else:
{
  "title": "Story title",
  "rootNode": {
    "content": "Situation description",
    "isEnding": false,
    "isWinningEnding": false,
    "options": [
      {"text": "Option text", "nextNode": {"content": "...", "isEnding": true, "isWinningEnding": true}}
    ]
  }
}`

func userPrompt(theme string) string {
	return "Create the story with this theme: " + theme
}
