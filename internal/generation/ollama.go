package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultOllamaModel = "llama3.2"

var _ Generator = (*OllamaClient)(nil)

// OllamaClient drafts text through a local Ollama server. It cannot make
// images.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if strings.TrimSpace(model) == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  any            `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) Copy(ctx context.Context, req CopyRequest) (string, error) {
	temperature := 0.8
	if req.Tier == TierPro {
		temperature = 0.7
	}
	return c.generate(ctx, ollamaGenerateRequest{
		Prompt:  copyPrompt(req),
		Options: map[string]any{"temperature": temperature},
	})
}

func (c *OllamaClient) Image(context.Context, ImageRequest) (Image, error) {
	return Image{}, ErrUnsupported
}

func (c *OllamaClient) Subjects(ctx context.Context, content string) ([]string, error) {
	text, err := c.generate(ctx, ollamaGenerateRequest{
		Prompt: subjectsPrompt(content),
		Format: map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	})
	if err != nil {
		return nil, err
	}
	return parseSubjects(text), nil
}

func (c *OllamaClient) generate(ctx context.Context, payload ollamaGenerateRequest) (string, error) {
	payload.Model = c.model
	payload.Stream = false

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return parsed.Response, nil
}
