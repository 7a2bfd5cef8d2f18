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

const (
	geminiFastModel      = "gemini-3-flash-preview"
	geminiProModel       = "gemini-3-pro-preview"
	geminiImageModel     = "gemini-2.5-flash-image"
	geminiThinkingBudget = 16384
)

var _ Generator = (*GeminiClient)(nil)

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGeminiClient(baseURL, apiKey string) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inlineData,omitempty"`
}

type geminiInline struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type geminiGenerationConfig struct {
	Temperature      *float64              `json:"temperature,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseMIMEType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any        `json:"responseSchema,omitempty"`
	ImageConfig      *geminiImageConfig    `json:"imageConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Copy(ctx context.Context, req CopyRequest) (string, error) {
	model := geminiFastModel
	temperature := 0.8
	config := &geminiGenerationConfig{Temperature: &temperature}
	if req.Tier == TierPro {
		model = geminiProModel
		temperature = 0.7
		config.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: geminiThinkingBudget}
	}

	resp, err := c.generate(ctx, model, copyPrompt(req), config)
	if err != nil {
		return "", err
	}
	return resp.text(), nil
}

func (c *GeminiClient) Image(ctx context.Context, req ImageRequest) (Image, error) {
	config := &geminiGenerationConfig{
		ImageConfig: &geminiImageConfig{AspectRatio: req.AspectRatio},
	}
	resp, err := c.generate(ctx, geminiImageModel, imagePrompt(req.Prompt), config)
	if err != nil {
		return Image{}, err
	}
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return Image{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}, nil
			}
		}
	}
	return Image{}, ErrNoContent
}

func (c *GeminiClient) Subjects(ctx context.Context, content string) ([]string, error) {
	config := &geminiGenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
	}
	resp, err := c.generate(ctx, geminiFastModel, subjectsPrompt(content), config)
	if err != nil {
		return nil, err
	}
	return parseSubjects(resp.text()), nil
}

func (c *GeminiClient) generate(ctx context.Context, model, prompt string, config *geminiGenerationConfig) (*geminiResponse, error) {
	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: config,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// text concatenates the text parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}
