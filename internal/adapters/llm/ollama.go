// Package llm provides model invoker adapters.
// Clean Architecture: adapters implementing ports.ModelInvoker.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// OllamaInvoker implements ports.ModelInvoker using the Ollama generate API.
// The model and temperature come from each call's ModelConfig.
type OllamaInvoker struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaInvoker creates a new Ollama invoker.
func NewOllamaInvoker(baseURL string, timeout time.Duration, logger *zap.Logger) *OllamaInvoker {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaInvoker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Invoke sends prompt to cfg.Model and returns the complete response.
func (a *OllamaInvoker) Invoke(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:   cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: cfg.Temperature},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	a.logger.Debug("ollama generate",
		zap.String("model", cfg.Model),
		zap.Int("prompt_len", len(prompt)),
		zap.Duration("duration", time.Since(start)))
	return genResp.Response, nil
}
