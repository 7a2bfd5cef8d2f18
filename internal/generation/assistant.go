package generation

import (
	"context"
	"fmt"
	"strings"
)

// DefaultSubjectContext is used when the draft has no text to analyse.
const DefaultSubjectContext = "Acasting Podcast"

type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Assistant is the initialized generation capability. A nil *Assistant means
// generation is unavailable.
type Assistant struct {
	generator Generator
	provider  string
}

// Init validates cfg and builds the capability.
func Init(cfg Config) (*Assistant, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "gemini"
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = GetDefaultURL(provider)
	}
	generator, err := NewGenerator(provider, baseURL, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	return &Assistant{generator: generator, provider: provider}, nil
}

// NewAssistant wraps an existing generator.
func NewAssistant(generator Generator) *Assistant {
	return &Assistant{generator: generator, provider: "custom"}
}

func (a *Assistant) Provider() string {
	return a.provider
}

func (a *Assistant) Copy(ctx context.Context, req CopyRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt
	}
	if req.Tier == "" {
		req.Tier = TierFast
	}
	text, err := a.generator.Copy(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate copy: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func (a *Assistant) Image(ctx context.Context, req ImageRequest) (Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Image{}, ErrEmptyPrompt
	}
	ratio, err := ParseAspectRatio(req.AspectRatio)
	if err != nil {
		return Image{}, err
	}
	req.AspectRatio = ratio
	image, err := a.generator.Image(ctx, req)
	if err != nil {
		return Image{}, fmt.Errorf("generate image: %w", err)
	}
	if image.Data == "" {
		return Image{}, ErrNoContent
	}
	if image.MIMEType == "" {
		image.MIMEType = "image/png"
	}
	return image, nil
}

// Subjects suggests up to MaxSubjects subject lines for content.
func (a *Assistant) Subjects(ctx context.Context, content string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		content = DefaultSubjectContext
	}
	subjects, err := a.generator.Subjects(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("generate subjects: %w", err)
	}
	if subjects == nil {
		subjects = []string{}
	}
	if len(subjects) > MaxSubjects {
		subjects = subjects[:MaxSubjects]
	}
	return subjects, nil
}
