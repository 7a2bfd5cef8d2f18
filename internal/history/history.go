// Package history keeps bounded undo and redo stacks of document snapshots.
//
// Snapshots are taken before a mutation is applied, so the top of the undo
// stack is always the state immediately prior to the live document. Any new
// snapshot invalidates the redo stack.
package history

import "newsletter/api/internal/newsletter"

const DefaultLimit = 20

type History struct {
	limit int
	undo  []newsletter.Document
	redo  []newsletter.Document
}

func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Record pushes a deep copy of doc onto the undo stack, discarding the oldest
// entry past the limit, and clears the redo stack.
func (h *History) Record(doc newsletter.Document) {
	h.undo = push(h.undo, doc.Clone(), h.limit)
	h.redo = nil
}

// Undo returns the previous state and parks current on the redo stack. With
// nothing to undo it returns current and false.
func (h *History) Undo(current newsletter.Document) (newsletter.Document, bool) {
	if len(h.undo) == 0 {
		return current, false
	}
	last := len(h.undo) - 1
	previous := h.undo[last]
	h.undo = h.undo[:last]
	h.redo = push(h.redo, current.Clone(), h.limit)
	return previous.Clone(), true
}

// Redo re-applies the most recently undone state.
func (h *History) Redo(current newsletter.Document) (newsletter.Document, bool) {
	if len(h.redo) == 0 {
		return current, false
	}
	last := len(h.redo) - 1
	next := h.redo[last]
	h.redo = h.redo[:last]
	h.undo = push(h.undo, current.Clone(), h.limit)
	return next.Clone(), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth reports the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func push(stack []newsletter.Document, doc newsletter.Document, limit int) []newsletter.Document {
	stack = append(stack, doc)
	if overflow := len(stack) - limit; overflow > 0 {
		trimmed := make([]newsletter.Document, limit)
		copy(trimmed, stack[overflow:])
		stack = trimmed
	}
	return stack
}
