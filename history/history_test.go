package history

import (
	"reflect"
	"testing"
	"time"

	"github.com/cptaffe/acme-paint/paint"
)

func testCatalog() paint.Catalog {
	mk := func(d int) paint.ApplyFunc {
		return func(c paint.Color, _ time.Duration, x, y int) paint.Color {
			return paint.Color{R: c.R*10 + d, G: c.G + x, B: c.B + y}
		}
	}
	return paint.NewCatalog(
		paint.Layer{Name: "apple", Fn: mk(1)},
		paint.Layer{Name: "banana", Fn: mk(2)},
		paint.Layer{Name: "cherry", Fn: mk(3)},
		paint.Layer{Name: "date", Fn: mk(4)},
	)
}

var white = paint.Color{R: 255, G: 255, B: 255}

func TestUndoEmpty(t *testing.T) {
	tr := NewUndoTracker()
	g := paint.NewGrid(paint.StyleSet, 3, 3, testCatalog())
	if tr.Undo(g) != nil || tr.Redo(g) != nil {
		t.Fatal("empty tracker should return nil")
	}
}

func TestUndoRedo(t *testing.T) {
	c := testCatalog()
	g := paint.NewGrid(paint.StyleSet, 10, 10, c)
	tr := NewUndoTracker()

	a := g.Paint(c[0], 5, 5)
	tr.Add(a)
	after := g.Colors(white, 0)

	if got := tr.Undo(g); got != a {
		t.Fatalf("Undo returned %p, want %p", got, a)
	}
	if tr.Len() != 0 || tr.RedoLen() != 1 {
		t.Fatalf("depths %d/%d", tr.Len(), tr.RedoLen())
	}
	if got := g.Store(5, 5).Color(white, 0, 5, 5); got != white {
		t.Fatalf("undo left %v", got)
	}
	if got := tr.Redo(g); got != a {
		t.Fatal("Redo should return the undone action")
	}
	if got := g.Colors(white, 0); !reflect.DeepEqual(got, after) {
		t.Fatal("redo did not restore the painted state")
	}
	if tr.Redo(g) != nil {
		t.Fatal("nothing left to redo")
	}
}

func TestAddClearsRedo(t *testing.T) {
	c := testCatalog()
	g := paint.NewGrid(paint.StyleSequence, 5, 5, c)
	tr := NewUndoTracker()
	tr.Add(g.Paint(c[0], 1, 1))
	tr.Undo(g)
	if tr.RedoLen() != 1 {
		t.Fatal("undo should make the action redoable")
	}
	tr.Add(g.Paint(c[1], 3, 3))
	if tr.RedoLen() != 0 {
		t.Fatal("a new action should discard the redo branch")
	}
	if tr.Redo(g) != nil {
		t.Fatal("redo after a new action should do nothing")
	}
}

func TestUndoCapacity(t *testing.T) {
	tr := NewUndoTracker()
	for i := 0; i < Capacity+5; i++ {
		tr.Add(paint.NewAction(false))
	}
	if tr.Len() != Capacity {
		t.Fatalf("len = %d, want %d", tr.Len(), Capacity)
	}
	tr.Add(nil)
	if tr.Len() != Capacity {
		t.Fatal("nil action should be ignored")
	}
}

func TestReplayPlayNext(t *testing.T) {
	special := paint.NewAction(true)
	stroke := paint.NewAction(false)
	g := paint.NewGrid(paint.StyleSet, 5, 5, testCatalog())

	r := NewReplayTracker()
	r.Add(special, false)
	r.Add(stroke, false)
	r.Add(stroke, true)
	r.Add(nil, true)
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, r.PlayNext(g))
	}
	if want := []bool{false, false, false, true}; !reflect.DeepEqual(got, want) {
		t.Fatalf("PlayNext sequence %v, want %v", got, want)
	}
	// The special entry was played once, so every empty cell is black.
	if c := g.Store(0, 0).Color(white, 0, 0, 0); c != (paint.Color{}) {
		t.Fatalf("cell = %v, want black", c)
	}
}

func TestReplayCapacity(t *testing.T) {
	r := NewReplayTracker()
	a := paint.NewAction(false)
	for i := 0; i < Capacity+1; i++ {
		r.Add(a, false)
	}
	if r.Len() != Capacity {
		t.Fatalf("len = %d", r.Len())
	}
	g := paint.NewGrid(paint.StyleSet, 1, 1, testCatalog())
	for i := 0; i < 3; i++ {
		r.PlayNext(g)
	}
	// Played events stay recorded, so the recording is still full.
	r.Add(a, false)
	if r.Len() != Capacity-3 || r.Recorded() != Capacity {
		t.Fatalf("len = %d, recorded = %d after playing 3", r.Len(), r.Recorded())
	}
}

func TestReplayRewind(t *testing.T) {
	c := testCatalog()
	live := paint.NewGrid(paint.StyleSequence, 6, 6, c)
	r := NewReplayTracker()
	r.Add(live.Paint(c[0], 2, 2), false)
	r.Add(live.Special(), false)
	r.Add(live.Paint(c[2], 3, 4), false)
	want := live.Colors(white, 0)

	for round := 0; round < 2; round++ {
		r.Rewind()
		if r.Len() != 3 {
			t.Fatalf("round %d: len = %d after rewind, want 3", round, r.Len())
		}
		g := paint.NewGrid(paint.StyleSequence, 6, 6, c)
		for !r.PlayNext(g) {
		}
		if got := g.Colors(white, 0); !reflect.DeepEqual(got, want) {
			t.Fatalf("round %d: replayed grid differs", round)
		}
	}
}

// session mirrors the caller's bookkeeping: every event goes to both
// trackers, and undo/redo results are recorded for replay.
type session struct {
	grid   *paint.Grid
	undo   *UndoTracker
	replay *ReplayTracker
}

func (s *session) paint(l *paint.Layer, x, y int) {
	a := s.grid.Paint(l, x, y)
	s.undo.Add(a)
	s.replay.Add(a, false)
}

func (s *session) special() {
	a := s.grid.Special()
	s.undo.Add(a)
	s.replay.Add(a, false)
}

func (s *session) undoLast() { s.replay.Add(s.undo.Undo(s.grid), true) }
func (s *session) redoLast() { s.replay.Add(s.undo.Redo(s.grid), false) }

func TestReplayDeterminism(t *testing.T) {
	for _, style := range []paint.Style{paint.StyleSet, paint.StyleAdditive, paint.StyleSequence} {
		c := testCatalog()
		s := &session{
			grid:   paint.NewGrid(style, 12, 9, c),
			undo:   NewUndoTracker(),
			replay: NewReplayTracker(),
		}
		s.paint(c[0], 3, 3)
		s.paint(c[1], 4, 3)
		s.grid.IncreaseBrushSize()
		s.paint(c[2], 6, 5)
		s.special()
		s.paint(c[3], 2, 7)
		s.undoLast()
		s.undoLast()
		s.redoLast()
		s.grid.DecreaseBrushSize()
		s.paint(c[0], 11, 8)
		s.special()
		s.undoLast()
		s.undoLast()
		live := s.grid.Colors(white, 3*time.Second)

		fresh := paint.NewGrid(style, 12, 9, c)
		steps := 0
		for !s.replay.PlayNext(fresh) {
			steps++
		}
		if got := fresh.Colors(white, 3*time.Second); !reflect.DeepEqual(got, live) {
			t.Fatalf("%v: replayed grid differs from the live grid after %d steps", style, steps)
		}
	}
}
