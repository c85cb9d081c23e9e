// Package history records paint actions for undo, redo and replay.
//
// Neither tracker is safe for concurrent use.  The grid passed to Undo,
// Redo and PlayNext must be the one the actions were recorded against, or
// a fresh grid of the same style and size.
package history

import "github.com/cptaffe/acme-paint/paint"

// Capacity bounds both undo stacks and the replay recording.  Pushes beyond it
// are dropped.
const Capacity = 10000

// UndoTracker is a bounded linear undo history.
type UndoTracker struct {
	done   []*paint.Action
	undone []*paint.Action
}

func NewUndoTracker() *UndoTracker {
	return &UndoTracker{}
}

// Add records a newly applied action.  It is dropped if the history is
// full.  Any undone actions are discarded: once a new action is taken the
// old branch cannot be redone.
func (t *UndoTracker) Add(a *paint.Action) {
	if a == nil || len(t.done) >= Capacity {
		return
	}
	t.done = append(t.done, a)
	clear(t.undone)
	t.undone = t.undone[:0]
}

// Undo reverses the most recent action on g and returns it, or returns nil
// if there is nothing to undo.
func (t *UndoTracker) Undo(g *paint.Grid) *paint.Action {
	a, ok := pop(&t.done)
	if !ok {
		return nil
	}
	a.Undo(g)
	push(&t.undone, a)
	return a
}

// Redo reapplies the most recently undone action on g and returns it, or
// returns nil if there is nothing to redo.
func (t *UndoTracker) Redo(g *paint.Grid) *paint.Action {
	a, ok := pop(&t.undone)
	if !ok {
		return nil
	}
	a.Redo(g)
	push(&t.done, a)
	return a
}

// Len returns the number of actions that can be undone.
func (t *UndoTracker) Len() int { return len(t.done) }

// RedoLen returns the number of actions that can be redone.
func (t *UndoTracker) RedoLen() int { return len(t.undone) }

func push(s *[]*paint.Action, a *paint.Action) {
	if len(*s) < Capacity {
		*s = append(*s, a)
	}
}

func pop(s *[]*paint.Action) (*paint.Action, bool) {
	n := len(*s)
	if n == 0 {
		return nil, false
	}
	a := (*s)[n-1]
	(*s)[n-1] = nil
	*s = (*s)[:n-1]
	return a, true
}
