package paint

import "time"

// Color is an RGB triple.  Channels are nominally 0-255 but the core never
// clamps them; that is left to whatever transforms produce them.
type Color struct {
	R, G, B int
}

// ApplyFunc transforms a cell color.  It must be deterministic in its
// arguments; ts is the elapsed session time.
type ApplyFunc func(c Color, ts time.Duration, x, y int) Color

// Black maps every color to black.
func Black(Color, time.Duration, int, int) Color {
	return Color{}
}

// Invert flips each channel around 255.
func Invert(c Color, _ time.Duration, _, _ int) Color {
	return Color{255 - c.R, 255 - c.G, 255 - c.B}
}
