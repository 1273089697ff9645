package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"az-morph/api/internal/llm"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultModel = "gpt-4o-mini"

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string // пусто: api.openai.com
}

func New(key, model string) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  model,
	}
}

func Factory(apiKey, model string) llm.Engine { return New(apiKey, model) }

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, system, user string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("openai: %w", llm.ErrNoAPIKey)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(e.APIKey),
		option.WithRequestTimeout(120 * time.Second),
		option.WithMaxRetries(0), // повторы делает llm.Retry
	}
	if e.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(e.BaseURL))
	}
	client := oa.NewClient(opts...)

	msgs := make([]oa.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, oa.SystemMessage(system))
	}
	msgs = append(msgs, oa.UserMessage(user))

	out, err := llm.Retry(ctx, 3, 300*time.Millisecond, func() (string, error) {
		resp, err := client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
			Model:       oa.ChatModel(e.Model),
			Messages:    msgs,
			Temperature: oa.Float(0),
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	return out, nil
}
