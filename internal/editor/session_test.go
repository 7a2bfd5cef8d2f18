package editor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"newsletter/api/internal/newsletter"
)

type fakeStore struct {
	mu     sync.Mutex
	docs   map[string]newsletter.Document
	saves  []newsletter.Document
	saveFn func(newsletter.Document) error
	loadFn func(string) (*newsletter.Document, error)
}

func (f *fakeStore) Save(_ context.Context, doc newsletter.Document) (newsletter.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveFn != nil {
		if err := f.saveFn(doc); err != nil {
			return newsletter.Document{}, err
		}
	}
	doc.UpdatedAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if f.docs == nil {
		f.docs = map[string]newsletter.Document{}
	}
	f.docs[doc.ID] = doc
	f.saves = append(f.saves, doc)
	return doc, nil
}

func (f *fakeStore) LoadByID(_ context.Context, id string) (*newsletter.Document, error) {
	if f.loadFn != nil {
		return f.loadFn(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSave() newsletter.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("blk%d", n)
	}
}

func testOptions() Options {
	return Options{AutosaveDelay: time.Hour, NewID: sequentialIDs()}
}

// openSession starts a session on a document with the given blocks.
func openSession(t *testing.T, store *fakeStore, blocks ...newsletter.Block) *Session {
	t.Helper()
	doc := newsletter.Document{ID: "doc-1", Title: "Draft", Theme: newsletter.DefaultDocument().Theme, Blocks: blocks}
	store.docs = map[string]newsletter.Document{"doc-1": doc}
	session, err := NewManager(store, testOptions()).Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return session
}

func textBlock(id, content string) newsletter.Block {
	return newsletter.Block{ID: id, Type: newsletter.BlockText, Content: content, Style: newsletter.Style{}}
}

func ids(state State) []string {
	out := make([]string, 0, len(state.Document.Blocks))
	for _, block := range state.Document.Blocks {
		out = append(out, block.ID)
	}
	return out
}

func mustState(t *testing.T) func(State, error) State {
	return func(state State, err error) State {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return state
	}
}

func TestAddSelectsNewBlockAndUndoRestores(t *testing.T) {
	must := mustState(t)
	header := newsletter.Block{ID: "A", Type: newsletter.BlockHeader, Content: "A", Style: newsletter.Style{}}
	session := openSession(t, &fakeStore{}, header)

	state := must(session.Add(newsletter.BlockText, newsletter.BlockInput{Content: "B"}))
	if !reflect.DeepEqual(ids(state), []string{"A", "blk1"}) {
		t.Fatalf("unexpected blocks %v", ids(state))
	}
	if state.Document.Blocks[1].Content != "B" {
		t.Fatalf("expected caller content, got %q", state.Document.Blocks[1].Content)
	}
	if state.View.SelectedBlockID != "blk1" || state.View.ActiveTab != TabSettings {
		t.Fatalf("expected new block selected on settings tab, got %+v", state.View)
	}
	if !state.CanUndo {
		t.Fatal("expected undo to be available after add")
	}

	undone := must(session.Undo())
	if !reflect.DeepEqual(ids(undone), []string{"A"}) {
		t.Fatalf("expected [A] after undo, got %v", ids(undone))
	}
	if undone.View.SelectedBlockID != "" {
		t.Fatalf("expected selection of vanished block to clear, got %q", undone.View.SelectedBlockID)
	}

	redone := must(session.Redo())
	if !reflect.DeepEqual(ids(redone), []string{"A", "blk1"}) {
		t.Fatalf("expected redo to bring the block back, got %v", ids(redone))
	}
}

func TestUndoUntilEmptyReturnsLoadedState(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("x", "x"))
	loaded := session.Document()

	must(session.Add(newsletter.BlockSpacer, newsletter.BlockInput{}))
	must(session.Move("x", newsletter.DirectionDown))
	must(session.Duplicate("x"))
	must(session.ApplyTheme(newsletter.Theme{Name: "Plain", FontFamily: "Georgia, serif", PrimaryColor: "#000000"}))
	must(session.Remove("blk1"))

	var state State
	for session.State().CanUndo {
		state = must(session.Undo())
	}
	if !reflect.DeepEqual(state.Document, loaded) {
		t.Fatalf("expected loaded document after undoing everything\n got %+v\nwant %+v", state.Document, loaded)
	}
}

func TestUpdateIsNotRecordedInHistory(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("x", "before"))

	content := "after"
	state := must(session.Update("x", newsletter.BlockPatch{Content: &content}))
	if state.Document.Blocks[0].Content != "after" {
		t.Fatalf("expected content update, got %q", state.Document.Blocks[0].Content)
	}
	if state.CanUndo {
		t.Fatal("expected continuous edits to stay out of history")
	}

	missing := must(session.Update("nope", newsletter.BlockPatch{Content: &content}))
	if !reflect.DeepEqual(missing.Document, state.Document) {
		t.Fatal("expected unknown id update to be a no-op")
	}
}

func TestMoveAtBoundaryStillSnapshots(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("X", "x"), textBlock("Y", "y"), textBlock("Z", "z"))

	state := must(session.Move("Y", newsletter.DirectionUp))
	if !reflect.DeepEqual(ids(state), []string{"Y", "X", "Z"}) {
		t.Fatalf("expected [Y X Z], got %v", ids(state))
	}

	before, _ := session.history.Depth()
	state = must(session.Move("Y", newsletter.DirectionUp))
	if !reflect.DeepEqual(ids(state), []string{"Y", "X", "Z"}) {
		t.Fatalf("expected boundary move to be a no-op, got %v", ids(state))
	}
	if after, _ := session.history.Depth(); after != before+1 {
		t.Fatalf("expected boundary move to record a snapshot, depth %d -> %d", before, after)
	}

	state = must(session.Move("X", newsletter.DirectionDown))
	if !reflect.DeepEqual(ids(state), []string{"Y", "Z", "X"}) {
		t.Fatalf("expected [Y Z X], got %v", ids(state))
	}
}

func TestDuplicateAndRemove(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("a", "hello"), textBlock("b", "world"))

	state := must(session.Duplicate("a"))
	if !reflect.DeepEqual(ids(state), []string{"a", "blk1", "b"}) {
		t.Fatalf("expected clone right after original, got %v", ids(state))
	}
	if state.Document.Blocks[1].Content != "hello" {
		t.Fatalf("expected cloned content, got %q", state.Document.Blocks[1].Content)
	}

	must(session.Select("a"))
	state = must(session.Remove("a"))
	if state.View.SelectedBlockID != "" {
		t.Fatal("expected selection cleared after removing the selected block")
	}
	again := must(session.Remove("a"))
	if !reflect.DeepEqual(again.Document, state.Document) {
		t.Fatal("expected second remove to be a no-op")
	}
}

func TestApplyThemeCascadesFont(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("a", "x"))
	must(session.Add(newsletter.BlockButton, newsletter.BlockInput{}))

	midnight, _ := newsletter.LookupTheme("midnight")
	state := must(session.ApplyTheme(midnight))
	for _, block := range state.Document.Blocks {
		if block.Style[newsletter.StyleFontFamily] != midnight.FontFamily {
			t.Fatalf("block %s kept font %q", block.ID, block.Style[newsletter.StyleFontFamily])
		}
	}
	if state.Document.Theme != midnight {
		t.Fatalf("expected midnight theme, got %+v", state.Document.Theme)
	}
}

func TestSelectionAndView(t *testing.T) {
	must := mustState(t)
	session := openSession(t, &fakeStore{}, textBlock("a", "x"))

	state := must(session.Select("a"))
	if state.View.SelectedBlockID != "a" || state.View.ActiveTab != TabSettings {
		t.Fatalf("unexpected view %+v", state.View)
	}
	state = must(session.Select("ghost"))
	if state.View.SelectedBlockID != "" {
		t.Fatal("expected unknown id to clear selection")
	}
	state = must(session.SetTab(TabAI))
	state = must(session.SetPreview(PreviewMobile))
	if state.View.ActiveTab != TabAI || state.View.PreviewMode != PreviewMobile {
		t.Fatalf("unexpected view %+v", state.View)
	}
	if state.CanUndo {
		t.Fatal("view changes must not touch history")
	}
	if _, err := ParseTab("sidebar"); err == nil {
		t.Fatal("expected unknown tab to be rejected")
	}
	if _, err := ParsePreviewMode("tablet"); err == nil {
		t.Fatal("expected unknown preview mode to be rejected")
	}
}

func TestAutosaveDebouncesToLatestState(t *testing.T) {
	store := &fakeStore{}
	store.docs = map[string]newsletter.Document{"doc-1": {ID: "doc-1", Title: "Draft", Blocks: []newsletter.Block{}}}
	opts := testOptions()
	opts.AutosaveDelay = 20 * time.Millisecond
	session, err := NewManager(store, opts).Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := session.SetTitle(fmt.Sprintf("title %d", i)); err != nil {
			t.Fatalf("set title: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.saveCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)

	if got := store.saveCount(); got != 1 {
		t.Fatalf("expected a single debounced save, got %d", got)
	}
	if title := store.lastSave().Title; title != "title 4" {
		t.Fatalf("expected latest title to be saved, got %q", title)
	}
	if session.Document().UpdatedAt.IsZero() {
		t.Fatal("expected server timestamp to be adopted")
	}
}

func TestFlushAndSaveEvents(t *testing.T) {
	store := &fakeStore{}
	session := openSession(t, store, textBlock("a", "x"))

	if err := session.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.saveCount() != 0 {
		t.Fatal("expected flush without changes to skip the save")
	}

	events, cancel := session.Subscribe()
	defer cancel()

	if _, err := session.SetTitle("Launch"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := session.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.saveCount() != 1 || store.lastSave().Title != "Launch" {
		t.Fatalf("expected one save of the new title, got %d", store.saveCount())
	}

	var types []EventType
	for len(types) < 3 {
		select {
		case event := <-events:
			types = append(types, event.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for events, got %v", types)
		}
	}
	want := []EventType{EventState, EventSaving, EventSaved}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
}

func TestSaveFailureKeepsSessionUsable(t *testing.T) {
	store := &fakeStore{saveFn: func(newsletter.Document) error { return errors.New("disk full") }}
	session := openSession(t, store, textBlock("a", "x"))

	if _, err := session.SetTitle("Edited"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if _, err := session.Save(context.Background()); err == nil {
		t.Fatal("expected save error to surface")
	}
	state, err := session.SetTitle("Edited again")
	if err != nil || state.Document.Title != "Edited again" {
		t.Fatalf("expected session to keep working, got %+v err=%v", state.Document.Title, err)
	}
}

func TestClosedSessionRejectsEdits(t *testing.T) {
	store := &fakeStore{}
	session := openSession(t, store, textBlock("a", "x"))
	events, _ := session.Subscribe()

	if _, err := session.SetTitle("Pending"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := session.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("expected close to flush, got %d saves", store.saveCount())
	}
	if _, err := session.SetTitle("Late"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	for range events {
	}
}

func TestEditDuringCloseIsRejectedAndNotSavedLater(t *testing.T) {
	store := &fakeStore{}
	store.docs = map[string]newsletter.Document{"doc-1": {ID: "doc-1", Title: "Draft", Blocks: []newsletter.Block{textBlock("a", "x")}}}
	opts := testOptions()
	opts.AutosaveDelay = 200 * time.Millisecond
	session, err := NewManager(store, opts).Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	store.saveFn = func(newsletter.Document) error {
		once.Do(func() { close(started) })
		<-unblock
		return nil
	}

	if _, err := session.SetTitle("Pending"); err != nil {
		t.Fatalf("set title: %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- session.Close(context.Background()) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("close never started flushing")
	}
	if _, err := session.Add(newsletter.BlockText, newsletter.BlockInput{Content: "late"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected edit during close to fail with ErrSessionClosed, got %v", err)
	}

	close(unblock)
	if err := <-closed; err != nil {
		t.Fatalf("close: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := store.saveCount(); got != 1 {
		t.Fatalf("expected exactly the closing flush, got %d saves", got)
	}
	if saved := store.lastSave(); saved.Title != "Pending" || len(saved.Blocks) != 1 {
		t.Fatalf("unexpected saved document %+v", saved)
	}
}
