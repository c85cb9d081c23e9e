package server

import "github.com/cptaffe/acme-paint/paint"

// union returns the smallest rectangle covering a and b.  Empty rectangles
// are ignored.
func union(a, b paint.Rect) paint.Rect {
	switch {
	case a.Empty():
		return b
	case b.Empty():
		return a
	}
	return paint.Rect{
		X0: min(a.X0, b.X0),
		Y0: min(a.Y0, b.Y0),
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
