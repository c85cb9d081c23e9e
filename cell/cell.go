// Package cell defines the shared wire-format types for the acme-paint
// canvas protocol.
//
// Entry and Rect are used by both the paint daemon and client tools that
// read composed colors back from a canvas.  A colors file holds one line per
// cell, "x y #rrggbb", in column-major order; an addr or dirty file holds a
// single "x0 y0 x1 y1" rectangle with exclusive upper bounds.
package cell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cptaffe/acme-paint/paint"
	"github.com/lucasb-eyer/go-colorful"
)

// Entry is the composed color of one canvas cell.
type Entry struct {
	X, Y  int
	Color paint.Color
}

// Rect is a half-open cell rectangle.
type Rect = paint.Rect

// Format serialises entries into the colors wire format.
func Format(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d %d %s\n", e.X, e.Y, Hex(e.Color))
	}
	return sb.String()
}

// Parse parses colors wire text.  Blank lines are skipped.
func Parse(text string) ([]Entry, error) {
	var out []Entry
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: want \"x y #rrggbb\", got %q", n+1, line)
		}
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", n+1, err)
		}
		y, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", n+1, err)
		}
		c, err := ParseHex(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		out = append(out, Entry{X: x, Y: y, Color: c})
	}
	return out, nil
}

// Hex returns c as "#rrggbb".  Channels are clamped to [0, 255].
func Hex(c paint.Color) string {
	return ToColorful(c).Hex()
}

// ParseHex parses a "#rrggbb" color.
func ParseHex(s string) (paint.Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return paint.Color{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return paint.Color{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return paint.Color{R: int(v >> 16), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

// FromColorful converts a colorful.Color to a clamped 8-bit paint.Color.
func FromColorful(c colorful.Color) paint.Color {
	r, g, b := c.Clamped().RGB255()
	return paint.Color{R: int(r), G: int(g), B: int(b)}
}

// ToColorful converts c, clamped to 8 bits per channel, for color math.
func ToColorful(c paint.Color) colorful.Color {
	return colorful.Color{
		R: float64(clamp(c.R)) / 255,
		G: float64(clamp(c.G)) / 255,
		B: float64(clamp(c.B)) / 255,
	}
}

func clamp(v int) int {
	return min(max(v, 0), 255)
}

// FormatRect serialises r as "x0 y0 x1 y1\n".  An empty rect formats as
// the empty string.
func FormatRect(r Rect) string {
	if r.Empty() {
		return ""
	}
	return fmt.Sprintf("%d %d %d %d\n", r.X0, r.Y0, r.X1, r.Y1)
}

// ParseRect parses "x0 y0 x1 y1".
func ParseRect(s string) (Rect, error) {
	var r Rect
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d %d %d %d", &r.X0, &r.Y0, &r.X1, &r.Y1); err != nil {
		return Rect{}, fmt.Errorf("parse rect %q: %w", s, err)
	}
	return r, nil
}
