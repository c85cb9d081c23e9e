package history

import "github.com/cptaffe/acme-paint/paint"

// entry is one queued replay event.  An undo entry plays its action
// backwards.
type entry struct {
	action *paint.Action
	undo   bool
}

// play applies the entry to g.
func (e entry) play(g *paint.Grid) {
	if e.undo {
		e.action.Undo(g)
		return
	}
	e.action.Redo(g)
}

// ReplayTracker records every user-visible event of a session so it can be
// played back, one event per call, against a fresh grid.  Played events
// stay recorded: Rewind queues the whole session again.
type ReplayTracker struct {
	events [Capacity]entry
	count  int // recorded events
	cursor int // next event to play
}

func NewReplayTracker() *ReplayTracker {
	return &ReplayTracker{}
}

// Add records a.  If undo is set, playing the entry undoes a rather than
// applying it.  Nil actions and pushes to a full recording are dropped.
func (r *ReplayTracker) Add(a *paint.Action, undo bool) {
	if a == nil || r.count == Capacity {
		return
	}
	r.events[r.count] = entry{action: a, undo: undo}
	r.count++
}

// PlayNext plays the oldest unplayed event on g.  It returns true, without
// touching g, once every recorded event has been played.
func (r *ReplayTracker) PlayNext(g *paint.Grid) (finished bool) {
	if r.cursor == r.count {
		return true
	}
	e := r.events[r.cursor]
	r.cursor++
	e.play(g)
	return false
}

// Rewind queues every recorded event for playing again, from the first.
func (r *ReplayTracker) Rewind() {
	r.cursor = 0
}

// Len returns the number of events left to play.
func (r *ReplayTracker) Len() int { return r.count - r.cursor }

// Recorded returns the number of events recorded in the session.
func (r *ReplayTracker) Recorded() int { return r.count }
