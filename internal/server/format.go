package server

import (
	"time"

	"github.com/cptaffe/acme-paint/cell"
	"github.com/cptaffe/acme-paint/paint"
)

// background is the color every cell composes over.
var background = paint.Color{R: 255, G: 255, B: 255}

// colorsIn returns the composed color of each cell of g inside r, column by
// column.  r is clipped to the grid.
func colorsIn(g *paint.Grid, r paint.Rect, ts time.Duration) []cell.Entry {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return nil
	}
	out := make([]cell.Entry, 0, (r.X1-r.X0)*(r.Y1-r.Y0))
	for x := r.X0; x < r.X1; x++ {
		for y := r.Y0; y < r.Y1; y++ {
			out = append(out, cell.Entry{X: x, Y: y, Color: g.Store(x, y).Color(background, ts, x, y)})
		}
	}
	return out
}
