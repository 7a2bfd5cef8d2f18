package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/assets"
	"newsletter/api/internal/config"
	"newsletter/api/internal/editor"
	"newsletter/api/internal/generation"
	"newsletter/api/internal/newsletter"
	"newsletter/api/internal/search"
)

type dataStore interface {
	SaveNewsletter(context.Context, newsletter.Document) (newsletter.Document, error)
	GetNewsletter(context.Context, string) (*newsletter.Document, error)
	ListNewsletters(context.Context) ([]newsletter.Document, error)
	Ping(context.Context) error
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexNewsletter(newsletter.Document)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	search   searchService
	sessions *editor.Manager
	assets   editor.AssetStore
	log      *logrus.Entry

	assistantMu sync.RWMutex
	assistant   editor.Assistant
}

// New wires the service. assistant may be nil when no generation backend is
// configured yet; it can be supplied later through ConfigureAssistant.
func New(cfg config.Config, store dataStore, searchSvc searchService, sessions *editor.Manager, assetStore editor.AssetStore, assistant editor.Assistant) *Service {
	if assetStore == nil {
		assetStore = assets.DataURIStore{}
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		search:    searchSvc,
		sessions:  sessions,
		assets:    assetStore,
		assistant: assistant,
		log:       logrus.WithField("component", "app"),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ActiveSessions reports how many editing sessions are live.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

func (s *Service) SetupToken() string {
	return s.cfg.SetupToken
}

// GetNewsletter returns the stored document or nil when there is none.
func (s *Service) GetNewsletter(ctx context.Context, id string) (*newsletter.Document, error) {
	doc, err := s.store.GetNewsletter(ctx, strings.TrimSpace(id))
	if err != nil {
		s.log.WithError(err).WithField("newsletter_id", id).Error("get newsletter")
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Failed to fetch newsletter", nil)
	}
	return doc, nil
}

func (s *Service) ListNewsletters(ctx context.Context) ([]newsletter.Document, error) {
	docs, err := s.store.ListNewsletters(ctx)
	if err != nil {
		s.log.WithError(err).Error("list newsletters")
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Failed to fetch newsletters", nil)
	}
	if docs == nil {
		docs = []newsletter.Document{}
	}
	return docs, nil
}

// SaveNewsletter replaces the stored document as a whole. The store assigns
// updatedAt.
func (s *Service) SaveNewsletter(ctx context.Context, doc newsletter.Document) (newsletter.Document, error) {
	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		return newsletter.Document{}, validationError("id is required")
	}
	doc.Normalize()
	saved, err := s.store.SaveNewsletter(ctx, doc)
	if err != nil {
		s.log.WithError(err).WithField("newsletter_id", doc.ID).Error("save newsletter")
		return newsletter.Document{}, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Failed to save newsletter", nil)
	}
	if s.search != nil {
		s.search.IndexNewsletter(saved)
	}
	return saved, nil
}

func (s *Service) SearchNewsletters(ctx context.Context, text string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(ctx, search.Query{Text: text, Limit: limit, Offset: offset})
}

func (s *Service) OpenSession(ctx context.Context, documentID string) (editor.State, error) {
	session, err := s.sessions.Open(ctx, documentID)
	if err != nil {
		return editor.State{}, err
	}
	return session.State(), nil
}

func (s *Service) Session(id string) (*editor.Session, error) {
	return s.sessions.Get(id)
}

func (s *Service) CloseSession(ctx context.Context, id string) error {
	return s.sessions.Close(ctx, id)
}

// Assistant returns the generation capability, or an AI_UNAVAILABLE error
// when none has been initialized.
func (s *Service) Assistant() (editor.Assistant, error) {
	s.assistantMu.RLock()
	defer s.assistantMu.RUnlock()
	if s.assistant == nil {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI assistant is not configured", nil)
	}
	return s.assistant, nil
}

// ConfigureAssistant runs the one-time generation setup with apiKey.
func (s *Service) ConfigureAssistant(apiKey string) error {
	s.assistantMu.Lock()
	defer s.assistantMu.Unlock()
	if s.assistant != nil {
		return domainError(http.StatusConflict, "AI_ALREADY_CONFIGURED", "AI assistant is already configured", nil)
	}
	assistant, err := generation.Init(generation.Config{
		Provider: s.cfg.AIProvider,
		BaseURL:  s.cfg.AIBaseURL,
		APIKey:   apiKey,
		Model:    s.cfg.OllamaModel,
	})
	if err != nil {
		if errors.Is(err, generation.ErrNoAPIKey) {
			return validationError("apiKey is required")
		}
		return validationError(err.Error())
	}
	s.assistant = assistant
	s.log.WithField("provider", assistant.Provider()).Info("AI assistant configured")
	return nil
}

func (s *Service) GenerateCopy(ctx context.Context, sessionID, prompt, tier string) (editor.State, error) {
	session, assistant, err := s.generationTarget(sessionID)
	if err != nil {
		return editor.State{}, err
	}
	parsedTier, err := generation.ParseTier(tier)
	if err != nil {
		return editor.State{}, validationError(err.Error())
	}
	state, err := session.GenerateCopy(ctx, assistant, prompt, parsedTier)
	return state, s.generationError(sessionID, err)
}

func (s *Service) GenerateImage(ctx context.Context, sessionID, prompt, aspectRatio string) (editor.State, error) {
	session, assistant, err := s.generationTarget(sessionID)
	if err != nil {
		return editor.State{}, err
	}
	if _, err := generation.ParseAspectRatio(aspectRatio); err != nil {
		return editor.State{}, validationError(err.Error())
	}
	state, err := session.GenerateImage(ctx, assistant, s.assets, prompt, aspectRatio)
	return state, s.generationError(sessionID, err)
}

func (s *Service) SuggestSubjects(ctx context.Context, sessionID string) ([]string, error) {
	session, assistant, err := s.generationTarget(sessionID)
	if err != nil {
		return nil, err
	}
	subjects, err := session.SuggestSubjects(ctx, assistant)
	if err != nil {
		return nil, s.generationError(sessionID, err)
	}
	return subjects, nil
}

func (s *Service) generationTarget(sessionID string) (*editor.Session, editor.Assistant, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	assistant, err := s.Assistant()
	if err != nil {
		return nil, nil, err
	}
	return session, assistant, nil
}

// generationError turns a failed generation into a user-visible error. The
// session itself is left as it was.
func (s *Service) generationError(sessionID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, editor.ErrGenerationInProgress), errors.Is(err, editor.ErrSessionClosed):
		return err
	case errors.Is(err, generation.ErrEmptyPrompt):
		return validationError("prompt is required")
	case errors.Is(err, generation.ErrUnsupported):
		return domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "The configured AI provider cannot do this", nil)
	}
	s.log.WithError(err).WithField("session_id", sessionID).Warn("generation failed")
	return domainError(http.StatusBadGateway, "GENERATION_FAILED", "Generation failed. Please check your API limits.", nil)
}
