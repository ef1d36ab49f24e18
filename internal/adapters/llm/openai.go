package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// OpenAIInvoker implements ports.ModelInvoker against any OpenAI compatible chat completions API.
type OpenAIInvoker struct {
	client openai.Client
	logger *zap.Logger
}

// OpenAIConfig configures the OpenAI invoker.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty selects the public API
	Timeout time.Duration
}

// NewOpenAIInvoker creates a new OpenAI invoker. Retries are disabled: a failed call
// fails the question.
func NewOpenAIInvoker(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIInvoker, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIInvoker{
		client: openai.NewClient(opts...),
		logger: logger,
	}, nil
}

// Invoke sends prompt as a single user message and returns the first choice.
func (a *OpenAIInvoker) Invoke(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	a.logger.Debug("openai chat completion",
		zap.String("model", cfg.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}
