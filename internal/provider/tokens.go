package provider

import (
	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// estimateTokens оценивает число токенов, когда API не вернул usage.
// Возвращает 0, если токенизатор недоступен.
func estimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0
		}
	}
	return len(enc.Encode(text, nil, nil))
}
