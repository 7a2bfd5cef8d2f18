// Package generation talks to the external generative model service that
// drafts copy, illustrations and subject lines for the editor.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoAPIKey is returned by Init when the provider needs a key and none
	// is configured.
	ErrNoAPIKey = errors.New("generation: no API key configured")
	// ErrUnsupported is returned by providers that lack a capability, e.g.
	// image generation on a text-only model.
	ErrUnsupported = errors.New("generation: operation not supported by provider")
	ErrEmptyPrompt = errors.New("generation: prompt is required")
	ErrNoContent   = errors.New("generation: model returned no content")
)

// MaxSubjects caps the number of subject-line candidates handed back.
const MaxSubjects = 5

type Tier string

const (
	TierFast Tier = "fast"
	TierPro  Tier = "pro"
)

// ParseTier maps user input onto a tier, defaulting to fast.
func ParseTier(value string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(TierFast):
		return TierFast, nil
	case string(TierPro):
		return TierPro, nil
	default:
		return "", fmt.Errorf("unknown tier %q", value)
	}
}

// RequestTimeout bounds a single call to a generation backend. The pro tier
// can think for minutes.
const RequestTimeout = 3 * time.Minute

const DefaultAspectRatio = "16:9"

var aspectRatios = map[string]struct{}{
	"1:1":  {},
	"3:4":  {},
	"4:3":  {},
	"9:16": {},
	"16:9": {},
}

// ParseAspectRatio validates an image aspect ratio; empty means the default.
func ParseAspectRatio(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultAspectRatio, nil
	}
	if _, ok := aspectRatios[value]; !ok {
		return "", fmt.Errorf("unsupported aspect ratio %q", value)
	}
	return value, nil
}

type CopyRequest struct {
	Prompt  string
	Context string
	Tier    Tier
}

type ImageRequest struct {
	Prompt      string
	AspectRatio string
}

// Image is raw generated image data; Data holds base64 as returned by the model.
type Image struct {
	MIMEType string
	Data     string
}

// Generator is implemented by each model provider.
type Generator interface {
	Copy(ctx context.Context, req CopyRequest) (string, error)
	Image(ctx context.Context, req ImageRequest) (Image, error)
	Subjects(ctx context.Context, content string) ([]string, error)
}

// NewGenerator creates a provider client.
// Supported providers: "gemini", "ollama"
func NewGenerator(provider, baseURL, apiKey, model string) (Generator, error) {
	switch provider {
	case "gemini":
		if strings.TrimSpace(apiKey) == "" {
			return nil, ErrNoAPIKey
		}
		return NewGeminiClient(baseURL, apiKey), nil
	case "ollama":
		return NewOllamaClient(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s (supported: gemini, ollama)", provider)
	}
}

// GetDefaultURL returns the default base URL for a given provider.
func GetDefaultURL(provider string) string {
	switch provider {
	case "gemini":
		return "https://generativelanguage.googleapis.com"
	case "ollama":
		return "http://localhost:11434"
	default:
		return ""
	}
}

func copyPrompt(req CopyRequest) string {
	if req.Tier == TierPro {
		return fmt.Sprintf("Act as a senior marketing strategist. Provide high-quality, professional newsletter content. The writing should be actionable, authoritative, yet engaging. Prompt: %q Current context: %s. Ensure the tone is consistent with high-end digital publications.", req.Prompt, req.Context)
	}
	return fmt.Sprintf("Act as a world-class newsletter copywriter. Generate concise, actionable, and punchy marketing copy. Focus on impact and directness. Prompt: %q Current context: %s. Avoid filler sentences.", req.Prompt, req.Context)
}

func imagePrompt(prompt string) string {
	return "Professional newsletter editorial illustration. Modern, high-end, high-resolution. Context: " + prompt
}

func subjectsPrompt(content string) string {
	return fmt.Sprintf("Analyze this content: %q. Suggest 5 high-converting email subject lines that are concise and spark curiosity. Return only a JSON array of strings.", content)
}

// parseSubjects decodes a JSON array of strings. Anything else yields an
// empty list rather than an error.
func parseSubjects(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var values []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &values); err != nil {
		return []string{}
	}
	subjects := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		subjects = append(subjects, value)
		if len(subjects) == MaxSubjects {
			break
		}
	}
	return subjects
}
