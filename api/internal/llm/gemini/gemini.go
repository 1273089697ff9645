package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"az-morph/api/internal/llm"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  model,
	}
}

// Factory подходит для llm.Engines.
func Factory(apiKey, model string) llm.Engine { return New(apiKey, model) }

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate отправляет промпт в Gemini с нулевой температурой и возвращает первый текстовый part.
func (e *Engine) Generate(ctx context.Context, system, user string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrNoAPIKey)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	if strings.TrimSpace(system) != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	out, err := llm.Retry(ctx, 3, 300*time.Millisecond, func() (string, error) {
		resp, err := m.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			return "", err
		}
		return firstText(resp), nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
