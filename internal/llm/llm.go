package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/slok/bua/internal/model"
)

// Known provider default endpoints. Any OpenAI-compatible endpoint works
// through the base URL override.
var providerBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"deepseek":  "https://api.deepseek.com/v1",
	"ollama":    "http://localhost:11434/v1",
	"anthropic": "https://api.anthropic.com/v1",
}

// Model is a callable language model handle: a system and user prompt in,
// text out.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds a model handle for the given configuration against an
// OpenAI-compatible chat completions API.
func New(cfg model.LLMConfig) (Model, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required: %w", model.ErrNotValid)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		known, ok := providerBaseURLs[cfg.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q and no base URL given: %w", cfg.Provider, model.ErrNotValid)
		}
		baseURL = known
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(opts...)

	return &chatModel{
		client:      client,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
	}, nil
}

type chatModel struct {
	client      openai.Client
	modelName   string
	temperature float64
}

func (m *chatModel) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(m.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
