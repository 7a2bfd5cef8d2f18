package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/newsletter"
	"newsletter/api/internal/util"
)

const (
	DefaultAutosaveDelay = 1500 * time.Millisecond
	DefaultIdleTTL       = 30 * time.Minute
)

// Store loads and saves documents; persistence.Gateway satisfies it.
type Store interface {
	Saver
	LoadByID(ctx context.Context, id string) (*newsletter.Document, error)
}

type Options struct {
	AutosaveDelay time.Duration
	HistoryLimit  int
	IdleTTL       time.Duration
	NewID         func() string
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.AutosaveDelay <= 0 {
		o.AutosaveDelay = DefaultAutosaveDelay
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = DefaultIdleTTL
	}
	if o.NewID == nil {
		o.NewID = util.NewShortID
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Manager owns the live sessions. A document has at most one session.
type Manager struct {
	store Store
	opts  Options
	log   *logrus.Entry

	mu         sync.Mutex
	sessions   map[string]*Session
	byDocument map[string]string
}

func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store:      store,
		opts:       opts.withDefaults(),
		log:        logrus.WithField("component", "editor"),
		sessions:   map[string]*Session{},
		byDocument: map[string]string{},
	}
}

// Open returns the session editing documentID, hydrating a new one from the
// store when none is live. A document the store does not know starts from
// the seed draft.
func (m *Manager) Open(ctx context.Context, documentID string) (*Session, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		documentID = newsletter.DefaultDocumentID
	}

	m.mu.Lock()
	if sid, ok := m.byDocument[documentID]; ok {
		session := m.sessions[sid]
		m.mu.Unlock()
		session.touch(m.opts.Now())
		return session, nil
	}
	m.mu.Unlock()

	doc := newsletter.NewDocument(documentID)
	loaded, err := m.store.LoadByID(ctx, documentID)
	switch {
	case err != nil:
		m.log.WithError(err).WithField("newsletter_id", documentID).Warn("load failed, starting from default draft")
	case loaded != nil:
		doc = *loaded
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have opened the document while we were loading
	if sid, ok := m.byDocument[documentID]; ok {
		return m.sessions[sid], nil
	}
	session := newSession(util.NewID("ses"), doc, m.store, m.opts)
	m.sessions[session.id] = session
	m.byDocument[documentID] = session.id
	m.log.WithFields(logrus.Fields{"session_id": session.id, "newsletter_id": documentID}).Info("session opened")
	return session, nil
}

// Get looks up a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(m.opts.Now())
	return session, nil
}

// Close flushes and removes a session.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		m.removeLocked(session)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return session.Close(ctx)
}

func (m *Manager) removeLocked(session *Session) {
	delete(m.sessions, session.id)
	for docID, sid := range m.byDocument {
		if sid == session.id {
			delete(m.byDocument, docID)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions unused for longer than the idle TTL and returns
// how many were closed.
func (m *Manager) EvictIdle(ctx context.Context) int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var idle []*Session
	for _, session := range m.sessions {
		if session.idleSince().Before(cutoff) {
			idle = append(idle, session)
			m.removeLocked(session)
		}
	}
	m.mu.Unlock()

	for _, session := range idle {
		if err := session.Close(ctx); err != nil {
			m.log.WithError(err).WithField("session_id", session.id).Warn("flush on eviction failed")
		}
	}
	return len(idle)
}

// Run evicts idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(ctx); n > 0 {
				m.log.WithField("evicted", n).Info("evicted idle sessions")
			}
		}
	}
}

// Shutdown flushes and closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = map[string]*Session{}
	m.byDocument = map[string]string{}
	m.mu.Unlock()

	var errs []error
	for _, session := range sessions {
		if err := session.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
