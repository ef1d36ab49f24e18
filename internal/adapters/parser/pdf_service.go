// Package parser provides document parsing adapters.
// Clean Architecture: adapter implementing ports.DocumentParser.
// PDF text extraction is delegated to an external HTTP service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PDFServiceParser implements ports.DocumentParser by posting PDF bytes to a parse service.
// Dependency Inversion: usecases and loaders depend on DocumentParser, not this.
type PDFServiceParser struct {
	serviceURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewPDFServiceParser creates a new PDF parser that calls the service at serviceURL.
func NewPDFServiceParser(serviceURL string, logger *zap.Logger) *PDFServiceParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFServiceParser{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// parseResponse is the parse service response format.
type parseResponse struct {
	Text    string `json:"text"`
	Pages   int    `json:"pages"`
	Library string `json:"library,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Parse extracts text from PDF bytes via the parse service.
func (p *PDFServiceParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("PDF parse error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	p.logger.Debug("pdf parsed",
		zap.String("file", filename),
		zap.Int("pages", result.Pages),
		zap.String("library", result.Library))
	return result.Text, nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFServiceParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// IsServiceHealthy checks if the parse service is running.
func (p *PDFServiceParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
