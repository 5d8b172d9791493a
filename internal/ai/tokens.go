package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Usage содержит информацию об использовании токенов.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Estimated        bool // true, если вендор не вернул usage и мы посчитали сами
}

func (u Usage) TotalTokens() int { return u.PromptTokens + u.CompletionTokens }

const fallbackEncoding = "cl100k_base"

var encodings sync.Map // model -> *tiktoken.Tiktoken или nil

func encodingFor(model string) *tiktoken.Tiktoken {
	if cached, ok := encodings.Load(model); ok {
		enc, _ := cached.(*tiktoken.Tiktoken)
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Не-OpenAI модели (llama, mixtral) считаем по cl100k, это достаточно близко для метрик
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		enc = nil
	}
	encodings.Store(model, enc)
	return enc
}

// countTokens оценивает число токенов. Без словаря используется грубая оценка len/4.
func countTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// estimateUsage вызывается, только когда вендор не прислал usage.
func estimateUsage(model string, promptParts []string, completion string) Usage {
	usage := Usage{Estimated: true}
	for _, p := range promptParts {
		usage.PromptTokens += countTokens(model, p)
	}
	usage.CompletionTokens = countTokens(model, completion)
	return usage
}
