package paint

// Step is one per-cell change: Layer was added to (or, for a recorded
// special effect, removed from) cell (X, Y).
type Step struct {
	X, Y  int
	Layer *Layer
}

// Rect is a half-open cell rectangle [X0,X1)×[Y0,Y1).
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Empty reports whether r contains no cells.
func (r Rect) Empty() bool {
	return r.X0 >= r.X1 || r.Y0 >= r.Y1
}

// Contains reports whether cell (x, y) lies in r.
func (r Rect) Contains(x, y int) bool {
	return r.X0 <= x && x < r.X1 && r.Y0 <= y && y < r.Y1
}

// Intersect returns the cells common to r and s.
func (r Rect) Intersect(s Rect) Rect {
	r.X0 = max(r.X0, s.X0)
	r.Y0 = max(r.Y0, s.Y0)
	r.X1 = min(r.X1, s.X1)
	r.Y1 = min(r.Y1, s.Y1)
	if r.Empty() {
		return Rect{}
	}
	return r
}

// Action is one undoable, replayable event: a brush stroke or a special
// effect over the whole grid.  Steps are only appended while the action is
// being built by a Grid.
type Action struct {
	steps   []Step
	special bool
}

func NewAction(special bool) *Action {
	return &Action{special: special}
}

// AddStep appends a step.
func (a *Action) AddStep(s Step) {
	a.steps = append(a.steps, s)
}

// Steps returns a copy of the recorded steps.
func (a *Action) Steps() []Step {
	return append([]Step(nil), a.steps...)
}

func (a *Action) IsSpecial() bool { return a.special }

// Empty reports whether applying a would change nothing.  A special action
// is never empty: its effect is global even when it records no steps.
func (a *Action) Empty() bool {
	return !a.special && len(a.steps) == 0
}

// Bounds returns the smallest rectangle holding every step.  A special
// action covers the whole grid g.
func (a *Action) Bounds(g *Grid) Rect {
	if a.special {
		return g.Bounds()
	}
	if len(a.steps) == 0 {
		return Rect{}
	}
	r := Rect{a.steps[0].X, a.steps[0].Y, a.steps[0].X + 1, a.steps[0].Y + 1}
	for _, s := range a.steps[1:] {
		r.X0 = min(r.X0, s.X)
		r.Y0 = min(r.Y0, s.Y)
		r.X1 = max(r.X1, s.X+1)
		r.Y1 = max(r.Y1, s.Y+1)
	}
	return r
}

// Undo reverses a on g.  Steps are erased newest first, since a stroke may
// touch the same cell more than once.
func (a *Action) Undo(g *Grid) {
	if a.special && g.specialSelfInverse() {
		g.special(nil)
		return
	}
	for i := len(a.steps) - 1; i >= 0; i-- {
		s := a.steps[i]
		if !g.In(s.X, s.Y) {
			continue
		}
		st := g.Store(s.X, s.Y)
		if a.special {
			st.Add(s.Layer)
		} else {
			st.Erase(s.Layer)
		}
	}
}

// Redo applies a to g again.
func (a *Action) Redo(g *Grid) {
	if a.special && g.specialSelfInverse() {
		g.special(nil)
		return
	}
	for _, s := range a.steps {
		if !g.In(s.X, s.Y) {
			continue
		}
		st := g.Store(s.X, s.Y)
		if a.special {
			st.Erase(s.Layer)
		} else {
			st.Add(s.Layer)
		}
	}
}
