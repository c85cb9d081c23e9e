package paint

import "time"

// Brush limits.
const (
	MinBrush     = 0
	MaxBrush     = 5
	DefaultBrush = 2
)

// Grid is a width×height array of layer stores, all of one Style, plus the
// brush used to paint it.
//
// A Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	style   Style
	width   int
	height  int
	brush   int
	catalog Catalog
	cells   [][]LayerStore // [x][y]
}

// NewGrid returns an empty grid whose cells use the given style.
// Width and height must not be negative.
func NewGrid(style Style, width, height int, catalog Catalog) *Grid {
	g := &Grid{
		style:   style,
		width:   width,
		height:  height,
		brush:   DefaultBrush,
		catalog: catalog,
		cells:   make([][]LayerStore, width),
	}
	for x := range g.cells {
		col := make([]LayerStore, height)
		for y := range col {
			col[y] = newStore(style, catalog)
		}
		g.cells[x] = col
	}
	return g
}

func (g *Grid) Style() Style { return g.style }
func (g *Grid) Width() int { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) BrushSize() int { return g.brush }
func (g *Grid) Catalog() Catalog { return g.catalog }
func (g *Grid) Bounds() Rect { return Rect{0, 0, g.width, g.height} }

// IncreaseBrushSize grows the brush by one, up to MaxBrush.
func (g *Grid) IncreaseBrushSize() {
	if g.brush < MaxBrush {
		g.brush++
	}
}

// DecreaseBrushSize shrinks the brush by one, down to MinBrush.
func (g *Grid) DecreaseBrushSize() {
	if g.brush > MinBrush {
		g.brush--
	}
}

// Store returns the store of cell (x, y).  It panics if the cell is out of
// range, like a slice index.
func (g *Grid) Store(x, y int) LayerStore {
	return g.cells[x][y]
}

// In reports whether (x, y) is a cell of g.
func (g *Grid) In(x, y int) bool {
	return 0 <= x && x < g.width && 0 <= y && y < g.height
}

// Paint adds l to every cell within brush distance (Manhattan) of
// (cx, cy).  The returned action holds one step per cell that changed, in
// scan order; it may hold none.
func (g *Grid) Paint(l *Layer, cx, cy int) *Action {
	a := NewAction(false)
	for x := cx - g.brush; x <= cx+g.brush; x++ {
		for y := cy - g.brush; y <= cy+g.brush; y++ {
			if !g.In(x, y) || abs(cx-x)+abs(cy-y) > g.brush {
				continue
			}
			if g.cells[x][y].Add(l) {
				a.AddStep(Step{X: x, Y: y, Layer: l})
			}
		}
	}
	return a
}

// Special runs every cell's special effect.  For styles whose effect is
// not self-inverse the returned action records, per cell, the layer the
// effect disabled, so that it can be undone exactly.
func (g *Grid) Special() *Action {
	a := NewAction(true)
	g.special(a)
	return a
}

func (g *Grid) special(rec *Action) {
	for x, col := range g.cells {
		for y, s := range col {
			r, ok := s.(specialRecorder)
			if !ok {
				s.Special()
				continue
			}
			if l := r.specialLayer(); l != nil && rec != nil {
				rec.AddStep(Step{X: x, Y: y, Layer: l})
			}
		}
	}
}

// specialSelfInverse reports whether running Special twice restores the
// grid.
func (g *Grid) specialSelfInverse() bool {
	return g.style != StyleSequence
}

// Colors composes every cell over start at time ts.  The result is indexed
// [x][y].
func (g *Grid) Colors(start Color, ts time.Duration) [][]Color {
	out := make([][]Color, g.width)
	for x, col := range g.cells {
		out[x] = make([]Color, g.height)
		for y, s := range col {
			out[x][y] = s.Color(start, ts, x, y)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
