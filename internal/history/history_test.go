package history

import (
	"fmt"
	"testing"

	"newsletter/api/internal/newsletter"
)

func docWithTitle(title string) newsletter.Document {
	return newsletter.Document{
		ID:    "doc-1",
		Title: title,
		Blocks: []newsletter.Block{
			{ID: "b1", Type: newsletter.BlockText, Content: title, Style: newsletter.Style{newsletter.StyleColor: "#000000"}},
		},
	}
}

func TestUndoOnEmptyStackIsNoop(t *testing.T) {
	h := New(DefaultLimit)
	current := docWithTitle("live")
	got, ok := h.Undo(current)
	if ok {
		t.Fatal("expected undo on empty stack to report false")
	}
	if got.Title != "live" {
		t.Fatalf("expected current document back, got %q", got.Title)
	}
	if _, ok := h.Redo(current); ok {
		t.Fatal("expected redo on empty stack to report false")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New(DefaultLimit)
	v1 := docWithTitle("v1")
	h.Record(v1)
	v2 := docWithTitle("v2")

	undone, ok := h.Undo(v2)
	if !ok || undone.Title != "v1" {
		t.Fatalf("expected undo to return v1, got %q ok=%v", undone.Title, ok)
	}
	if !h.CanRedo() || h.CanUndo() {
		t.Fatal("expected redo available and undo exhausted")
	}

	redone, ok := h.Redo(undone)
	if !ok || redone.Title != "v2" {
		t.Fatalf("expected redo to return v2, got %q ok=%v", redone.Title, ok)
	}
	if !h.CanUndo() {
		t.Fatal("expected undo to be available again after redo")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(DefaultLimit)
	h.Record(docWithTitle("v1"))
	h.Undo(docWithTitle("v2"))
	if !h.CanRedo() {
		t.Fatal("expected redo after undo")
	}
	h.Record(docWithTitle("v1"))
	if h.CanRedo() {
		t.Fatal("expected a new snapshot to invalidate redo")
	}
}

func TestSnapshotsAreIsolatedFromLiveDocument(t *testing.T) {
	h := New(DefaultLimit)
	live := docWithTitle("before")
	h.Record(live)

	live.Blocks[0].Content = "after"
	live.Blocks[0].Style[newsletter.StyleColor] = "#FFFFFF"

	restored, _ := h.Undo(live)
	if restored.Blocks[0].Content != "before" {
		t.Fatalf("history entry was corrupted by live mutation: %q", restored.Blocks[0].Content)
	}
	if restored.Blocks[0].Style[newsletter.StyleColor] != "#000000" {
		t.Fatalf("history style was corrupted by live mutation: %q", restored.Blocks[0].Style[newsletter.StyleColor])
	}

	restored.Blocks[0].Content = "mutated after undo"
	again, _ := h.Redo(restored)
	if again.Blocks[0].Content != "after" {
		t.Fatalf("expected redo entry to hold the pre-undo state, got %q", again.Blocks[0].Content)
	}
}

func TestRecordDropsOldestPastLimit(t *testing.T) {
	h := New(DefaultLimit)
	for i := 0; i < 25; i++ {
		h.Record(docWithTitle(fmt.Sprintf("v%d", i)))
	}
	undo, _ := h.Depth()
	if undo != DefaultLimit {
		t.Fatalf("expected %d entries, got %d", DefaultLimit, undo)
	}

	current := docWithTitle("live")
	var last newsletter.Document
	for h.CanUndo() {
		current, _ = h.Undo(current)
		last = current
	}
	if last.Title != "v5" {
		t.Fatalf("expected oldest surviving entry v5, got %q", last.Title)
	}
}

func TestNewFallsBackToDefaultLimit(t *testing.T) {
	h := New(0)
	for i := 0; i < 30; i++ {
		h.Record(docWithTitle("x"))
	}
	if undo, _ := h.Depth(); undo != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, undo)
	}
}
