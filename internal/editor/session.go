// Package editor hosts editing sessions: one working newsletter, its undo
// history and view state, autosaved through the persistence gateway.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"

	"newsletter/api/internal/history"
	"newsletter/api/internal/newsletter"
)

var (
	ErrSessionNotFound      = errors.New("editor: session not found")
	ErrSessionClosed        = errors.New("editor: session closed")
	ErrGenerationInProgress = errors.New("editor: generation already in progress")
)

// Saver persists whole documents.
type Saver interface {
	Save(ctx context.Context, doc newsletter.Document) (newsletter.Document, error)
}

// State is the externally visible snapshot of a session.
type State struct {
	SessionID  string              `json:"sessionId"`
	Document   newsletter.Document `json:"document"`
	View       View                `json:"view"`
	CanUndo    bool                `json:"canUndo"`
	CanRedo    bool                `json:"canRedo"`
	Generating bool                `json:"generating"`
}

type Session struct {
	id    string
	saver Saver
	newID func() string
	log   *logrus.Entry

	mu       sync.Mutex
	doc      newsletter.Document
	history  *history.History
	view     View
	version  uint64
	saved    uint64
	lastUsed time.Time
	closed   bool

	autosave   func(func())
	saveMu     sync.Mutex
	generating atomic.Bool

	subsMu     sync.Mutex
	subs       map[int]chan Event
	nextSub    int
	subsClosed bool
}

func newSession(id string, doc newsletter.Document, saver Saver, opts Options) *Session {
	doc.Normalize()
	s := &Session{
		id:       id,
		saver:    saver,
		newID:    opts.NewID,
		log:      logrus.WithFields(logrus.Fields{"component": "editor", "session_id": id, "newsletter_id": doc.ID}),
		doc:      doc,
		history:  history.New(opts.HistoryLimit),
		view:     defaultView(),
		lastUsed: opts.Now(),
		autosave: debounce.New(opts.AutosaveDelay),
		subs:     map[int]chan Event{},
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// Document returns a deep copy of the working document.
func (s *Session) Document() newsletter.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		SessionID:  s.id,
		Document:   s.doc.Clone(),
		View:       s.view,
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
		Generating: s.generating.Load(),
	}
}

// mutate runs fn under the session lock. fn returns the next document and
// whether it differs from the current one; a change is published and
// schedules an autosave.
func (s *Session) mutate(fn func() (newsletter.Document, bool)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, ErrSessionClosed
	}

	next, changed := fn()
	if changed {
		s.doc = next
		s.version++
		s.autosave(s.autosaveNow)
	}
	state := s.stateLocked()
	s.publish(Event{Type: EventState, State: &state})
	return state, nil
}

// snapshot records the current document before a discrete edit.
func (s *Session) snapshot() {
	s.history.Record(s.doc)
}

// Add appends a new block of the given type and selects it.
func (s *Session) Add(blockType newsletter.BlockType, input newsletter.BlockInput) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.snapshot()
		block := newsletter.NewBlock(s.newID(), blockType, s.doc.Theme, input)
		s.view.SelectedBlockID = block.ID
		s.view.ActiveTab = TabSettings
		return newsletter.AppendBlock(s.doc, block), true
	})
}

// Update merges patch into one block. Continuous edits like typing are not
// recorded in history.
func (s *Session) Update(id string, patch newsletter.BlockPatch) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		if patch.Empty() || s.doc.IndexOf(id) < 0 {
			return s.doc, false
		}
		return newsletter.UpdateBlock(s.doc, id, patch), true
	})
}

func (s *Session) Remove(id string) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.snapshot()
		if s.view.SelectedBlockID == id {
			s.view.SelectedBlockID = ""
		}
		if s.doc.IndexOf(id) < 0 {
			return s.doc, false
		}
		return newsletter.RemoveBlock(s.doc, id), true
	})
}

// Move swaps a block with its neighbour. The snapshot is taken even when the
// block is already at the boundary.
func (s *Session) Move(id string, direction newsletter.Direction) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.snapshot()
		next := newsletter.MoveBlock(s.doc, id, direction)
		return next, next.IndexOf(id) != s.doc.IndexOf(id)
	})
}

func (s *Session) Duplicate(id string) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.snapshot()
		if s.doc.IndexOf(id) < 0 {
			return s.doc, false
		}
		return newsletter.DuplicateBlock(s.doc, id, s.newID()), true
	})
}

func (s *Session) ApplyTheme(theme newsletter.Theme) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.snapshot()
		return newsletter.ApplyTheme(s.doc, theme), true
	})
}

func (s *Session) SetTitle(title string) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		if title == s.doc.Title {
			return s.doc, false
		}
		return newsletter.SetTitle(s.doc, title), true
	})
}

// Undo restores the previous snapshot. With an empty history nothing changes.
func (s *Session) Undo() (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		previous, ok := s.history.Undo(s.doc)
		if !ok {
			return s.doc, false
		}
		s.dropStaleSelection(previous)
		return previous, true
	})
}

func (s *Session) Redo() (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		next, ok := s.history.Redo(s.doc)
		if !ok {
			return s.doc, false
		}
		s.dropStaleSelection(next)
		return next, true
	})
}

func (s *Session) dropStaleSelection(doc newsletter.Document) {
	if s.view.SelectedBlockID != "" && doc.IndexOf(s.view.SelectedBlockID) < 0 {
		s.view.SelectedBlockID = ""
	}
}

// Select marks a block as selected and opens its settings. An unknown or
// empty id clears the selection.
func (s *Session) Select(id string) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		if id == "" || s.doc.IndexOf(id) < 0 {
			s.view.SelectedBlockID = ""
			return s.doc, false
		}
		s.view.SelectedBlockID = id
		s.view.ActiveTab = TabSettings
		return s.doc, false
	})
}

func (s *Session) SetTab(tab Tab) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.view.ActiveTab = tab
		return s.doc, false
	})
}

func (s *Session) SetPreview(mode PreviewMode) (State, error) {
	return s.mutate(func() (newsletter.Document, bool) {
		s.view.PreviewMode = mode
		return s.doc, false
	})
}

func (s *Session) autosaveNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.save(ctx, false); err != nil {
		s.log.WithError(err).Warn("autosave failed")
	}
}

// Save persists the current document right away, cancelling any pending
// autosave.
func (s *Session) Save(ctx context.Context) (State, error) {
	s.autosave(func() {})
	if _, err := s.save(ctx, true); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Flush persists pending changes, if any.
func (s *Session) Flush(ctx context.Context) error {
	s.autosave(func() {})
	_, err := s.save(ctx, false)
	return err
}

// save writes the latest document. Unless force is set it does nothing when
// the last save already covered the current version.
func (s *Session) save(ctx context.Context, force bool) (bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !force && s.saved == s.version {
		s.mu.Unlock()
		return false, nil
	}
	doc := s.doc.Clone()
	version := s.version
	s.mu.Unlock()

	s.publish(Event{Type: EventSaving})
	stored, err := s.saver.Save(ctx, doc)
	if err != nil {
		s.publish(Event{Type: EventSaveFailed, Error: err.Error()})
		return false, fmt.Errorf("save newsletter %s: %w", doc.ID, err)
	}

	s.mu.Lock()
	s.saved = version
	// later edits keep their own timestamp until they are saved
	if s.version == version && !stored.UpdatedAt.IsZero() {
		s.doc.UpdatedAt = stored.UpdatedAt
	}
	s.mu.Unlock()

	updatedAt := stored.UpdatedAt
	s.publish(Event{Type: EventSaved, UpdatedAt: &updatedAt})
	return true, nil
}

// Close stops accepting edits, flushes pending changes and ends all
// subscriptions. Edits racing with Close fail with ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)

	s.closeSubscribers()
	return err
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
