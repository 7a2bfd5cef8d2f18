package editor

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"newsletter/api/internal/generation"
	"newsletter/api/internal/newsletter"
)

// Assistant produces generated content for a session.
type Assistant interface {
	Copy(ctx context.Context, req generation.CopyRequest) (string, error)
	Image(ctx context.Context, req generation.ImageRequest) (generation.Image, error)
	Subjects(ctx context.Context, content string) ([]string, error)
}

// AssetStore turns raw image bytes into a URL.
type AssetStore interface {
	Put(ctx context.Context, mimeType string, data []byte) (string, error)
}

// beginGeneration claims the session's single generation slot. The returned
// release may be called more than once.
func (s *Session) beginGeneration() (func(), error) {
	if !s.generating.CompareAndSwap(false, true) {
		return nil, ErrGenerationInProgress
	}
	s.publishState()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.generating.Store(false)
			s.publishState()
		})
	}, nil
}

// insertGenerated adds the generated block after the generation slot is
// released, so the returned state no longer reports generating.
func (s *Session) insertGenerated(release func(), blockType newsletter.BlockType, input newsletter.BlockInput) (State, error) {
	release()
	return s.Add(blockType, input)
}

func (s *Session) publishState() {
	state := s.State()
	s.publish(Event{Type: EventState, State: &state})
}

// GenerateCopy drafts text for prompt, using the document as context, and
// inserts it as a new text block. On failure the document is untouched.
func (s *Session) GenerateCopy(ctx context.Context, assistant Assistant, prompt string, tier generation.Tier) (State, error) {
	release, err := s.beginGeneration()
	if err != nil {
		return State{}, err
	}
	defer release()

	text, err := assistant.Copy(ctx, generation.CopyRequest{
		Prompt:  prompt,
		Context: s.Document().Context(),
		Tier:    tier,
	})
	if err != nil {
		return State{}, err
	}
	return s.insertGenerated(release, newsletter.BlockText, newsletter.BlockInput{Content: text})
}

// GenerateImage creates an illustration, stores it as an asset and inserts
// it as a new image block.
func (s *Session) GenerateImage(ctx context.Context, assistant Assistant, assets AssetStore, prompt, aspectRatio string) (State, error) {
	release, err := s.beginGeneration()
	if err != nil {
		return State{}, err
	}
	defer release()

	image, err := assistant.Image(ctx, generation.ImageRequest{Prompt: prompt, AspectRatio: aspectRatio})
	if err != nil {
		return State{}, err
	}
	data, err := base64.StdEncoding.DecodeString(image.Data)
	if err != nil {
		return State{}, fmt.Errorf("decode generated image: %w", err)
	}
	src, err := assets.Put(ctx, image.MIMEType, data)
	if err != nil {
		return State{}, fmt.Errorf("store generated image: %w", err)
	}
	return s.insertGenerated(release, newsletter.BlockImage, newsletter.BlockInput{Src: src, Alt: prompt})
}

// SuggestSubjects returns subject-line candidates for the current draft.
// Picking one is a separate SetTitle call.
func (s *Session) SuggestSubjects(ctx context.Context, assistant Assistant) ([]string, error) {
	release, err := s.beginGeneration()
	if err != nil {
		return nil, err
	}
	defer release()

	return assistant.Subjects(ctx, s.Document().Context())
}
