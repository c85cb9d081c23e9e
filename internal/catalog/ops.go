package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cptaffe/acme-paint/cell"
	"github.com/cptaffe/acme-paint/paint"
	"github.com/lucasb-eyer/go-colorful"
)

// Default op arguments.
const (
	defaultTint    = 0.5
	defaultLight   = 0.2
	defaultSat     = 0.2
	defaultPeriod  = 4 * time.Second
	rainbowSpatial = 15.0 // degrees of hue per cell of x+y
)

// compile returns the transform named op.  arg is the text after '=' in the
// catalog token, or "" if there was none.
func compile(op, arg string) (paint.ApplyFunc, error) {
	switch op {
	case "black":
		return paint.Black, noArg(op, arg)
	case "invert":
		return paint.Invert, noArg(op, arg)
	case "set":
		c, err := cell.ParseHex(arg)
		if err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		return func(paint.Color, time.Duration, int, int) paint.Color { return c }, nil
	case "tint":
		hex, amt, _ := strings.Cut(arg, ":")
		target, err := cell.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("tint: %w", err)
		}
		t, err := fraction(op, amt, defaultTint)
		if err != nil {
			return nil, err
		}
		tc := cell.ToColorful(target)
		return mapColor(func(c colorful.Color) colorful.Color {
			return c.BlendLab(tc, t)
		}), nil
	case "lighten", "darken":
		d, err := fraction(op, arg, defaultLight)
		if err != nil {
			return nil, err
		}
		if op == "darken" {
			d = -d
		}
		return mapColor(func(c colorful.Color) colorful.Color {
			h, s, l := c.Hsl()
			return colorful.Hsl(h, s, unit(l+d))
		}), nil
	case "saturate", "desaturate":
		d, err := fraction(op, arg, defaultSat)
		if err != nil {
			return nil, err
		}
		if op == "desaturate" {
			d = -d
		}
		return mapColor(func(c colorful.Color) colorful.Color {
			h, s, l := c.Hsl()
			return colorful.Hsl(h, unit(s+d), l)
		}), nil
	case "hue":
		deg, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("hue: bad rotation %q", arg)
		}
		return mapColor(func(c colorful.Color) colorful.Color {
			h, s, v := c.Hsv()
			return colorful.Hsv(wrapHue(h+deg), s, v)
		}), nil
	case "rainbow":
		period := defaultPeriod
		if arg != "" {
			d, err := time.ParseDuration(arg)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("rainbow: bad period %q", arg)
			}
			period = d
		}
		return rainbow(period), nil
	}
	return nil, fmt.Errorf("unknown op %q", op)
}

// rainbow paints a hue that drifts with time and position, keeping the
// incoming color's lightness.
func rainbow(period time.Duration) paint.ApplyFunc {
	return func(c paint.Color, ts time.Duration, x, y int) paint.Color {
		phase := float64(ts%period) / float64(period) * 360
		h := wrapHue(phase + rainbowSpatial*float64(x+y))
		_, _, l := cell.ToColorful(c).Hsl()
		return cell.FromColorful(colorful.Hsl(h, 0.8, 0.25+l/2))
	}
}

func mapColor(f func(colorful.Color) colorful.Color) paint.ApplyFunc {
	return func(c paint.Color, _ time.Duration, _, _ int) paint.Color {
		return cell.FromColorful(f(cell.ToColorful(c)))
	}
}

func noArg(op, arg string) error {
	if arg != "" {
		return fmt.Errorf("%s takes no argument", op)
	}
	return nil
}

// fraction parses an optional amount in [0, 1].
func fraction(op, arg string, def float64) (float64, error) {
	if arg == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("%s: amount %q not in [0, 1]", op, arg)
	}
	return f, nil
}

func unit(f float64) float64 {
	return math.Min(math.Max(f, 0), 1)
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
