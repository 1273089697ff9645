package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownEngine = errors.New("unknown llm_name; use 'gemini' or 'gpt'")
	ErrNoAPIKey      = errors.New("api key is empty")
	ErrEmptyResponse = errors.New("empty response")
)

// Engine — текстовая модель: по system-инструкции и промпту возвращает сырой ответ.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// Factory создаёт движок под конкретный ключ: ключ приходит с каждым запросом.
type Factory func(apiKey, model string) Engine

// Engines — реестр провайдеров с моделями и серверными ключами по умолчанию.
type Engines struct {
	Default string

	Gemini      Factory
	GeminiModel string
	GeminiKey   string

	OpenAI      Factory
	OpenAIModel string
	OpenAIKey   string
}

// GetEngine выбирает провайдера по имени; пустое имя означает провайдера по умолчанию.
// apiKey из запроса имеет приоритет над серверным.
func (e *Engines) GetEngine(llmName, apiKey string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = strings.ToLower(e.Default)
	}
	apiKey = strings.TrimSpace(apiKey)

	switch name {
	case "", "gemini":
		if e.Gemini == nil {
			return nil, ErrUnknownEngine
		}
		key := firstNonEmpty(apiKey, e.GeminiKey)
		if key == "" {
			return nil, ErrNoAPIKey
		}
		return e.Gemini(key, e.GeminiModel), nil
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, ErrUnknownEngine
		}
		key := firstNonEmpty(apiKey, e.OpenAIKey)
		if key == "" {
			return nil, ErrNoAPIKey
		}
		return e.OpenAI(key, e.OpenAIModel), nil
	default:
		return nil, ErrUnknownEngine
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Retry повторяет вызов до attempts раз с линейной паузой attempt*base.
// Пустой ответ не повторяется.
func Retry(ctx context.Context, attempts int, base time.Duration, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := call()
		if err == nil {
			if strings.TrimSpace(out) == "" {
				return "", ErrEmptyResponse
			}
			return out, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * base):
		}
	}
	return "", lastErr
}
