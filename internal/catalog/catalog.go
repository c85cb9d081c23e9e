// Package catalog parses the layer catalog file.
//
// A catalog file is line oriented.  Blank lines and lines starting with '#'
// are ignored.
//
//	:name op[=arg] ...   defines a layer; layers are indexed in file order
//	@style name          default draw style (set, additive, sequence)
//	@size W H            default canvas size
//
// A layer's ops are applied left to right to the incoming color.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cptaffe/acme-paint/paint"
	"go.uber.org/multierr"
)

// Default canvas geometry used when neither the catalog nor the command line
// sets one.
const (
	DefaultWidth  = 32
	DefaultHeight = 32
)

// Default is the built-in catalog served when no catalog file is given.
const Default = `# acme-paint built-in layers
:black black
:lighten lighten
:darken darken
:invert invert
:red tint=#e0301e:0.6
:green tint=#2e8b57:0.6
:blue tint=#1e64e0:0.6
:rainbow rainbow=4s
:warm hue=-30 saturate=0.1
:cool hue=30 desaturate=0.1
@style set
@size 32 32
`

// Config holds all values parsed from a catalog file.
type Config struct {
	Layers paint.Catalog
	Style  paint.Style
	Width  int
	Height int
}

// Parse parses catalog content into a Config.  Every malformed line is
// reported; the returned Config holds whatever parsed cleanly.
func Parse(content string) (Config, error) {
	cfg := Config{Style: paint.StyleSet, Width: DefaultWidth, Height: DefaultHeight}
	var (
		layers []paint.Layer
		seen   = make(map[string]int)
		errs   error
	)
	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lineErr := func(err error) {
			errs = multierr.Append(errs, fmt.Errorf("line %d: %w", n+1, err))
		}
		switch {
		case strings.HasPrefix(line, ":"):
			l, err := parseLayerLine(line[1:])
			if err != nil {
				lineErr(err)
				continue
			}
			if prev, ok := seen[l.Name]; ok {
				lineErr(fmt.Errorf("layer %q already defined on line %d", l.Name, prev))
				continue
			}
			seen[l.Name] = n + 1
			layers = append(layers, l)
		case strings.HasPrefix(line, "@"):
			if err := cfg.directive(strings.Fields(line[1:])); err != nil {
				lineErr(err)
			}
		default:
			lineErr(fmt.Errorf("unrecognised line %q", line))
		}
	}
	if len(layers) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no layers defined"))
	}
	cfg.Layers = paint.NewCatalog(layers...)
	return cfg, errs
}

// MustDefault returns the parsed built-in catalog.
func MustDefault() Config {
	cfg, err := Parse(Default)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return cfg
}

func (cfg *Config) directive(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("empty directive")
	}
	switch fields[0] {
	case "style":
		if len(fields) != 2 {
			return fmt.Errorf("@style wants one argument")
		}
		s, err := paint.ParseStyle(fields[1])
		if err != nil {
			return err
		}
		cfg.Style = s
	case "size":
		if len(fields) != 3 {
			return fmt.Errorf("@size wants width and height")
		}
		w, errW := strconv.Atoi(fields[1])
		h, errH := strconv.Atoi(fields[2])
		if err := multierr.Combine(errW, errH); err != nil {
			return fmt.Errorf("@size: %w", err)
		}
		if w <= 0 || h <= 0 {
			return fmt.Errorf("@size %dx%d: dimensions must be positive", w, h)
		}
		cfg.Width, cfg.Height = w, h
	default:
		return fmt.Errorf("unknown directive @%s", fields[0])
	}
	return nil
}

// parseLayerLine parses "name op[=arg] ..." (after the leading ':' is
// stripped).
func parseLayerLine(line string) (paint.Layer, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return paint.Layer{}, fmt.Errorf("layer has no name")
	}
	name := fields[0]
	if _, err := strconv.Atoi(name); err == nil {
		return paint.Layer{}, fmt.Errorf("layer name %q is numeric", name)
	}
	if len(fields) == 1 {
		return paint.Layer{}, fmt.Errorf("layer %q has no ops", name)
	}
	var (
		fns  []paint.ApplyFunc
		errs error
	)
	for _, tok := range fields[1:] {
		op, arg, _ := strings.Cut(tok, "=")
		fn, err := compile(op, arg)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("layer %q: %w", name, err))
			continue
		}
		fns = append(fns, fn)
	}
	if errs != nil {
		return paint.Layer{}, errs
	}
	return paint.Layer{Name: name, Fn: chain(fns)}, nil
}

func chain(fns []paint.ApplyFunc) paint.ApplyFunc {
	if len(fns) == 1 {
		return fns[0]
	}
	return func(c paint.Color, ts time.Duration, x, y int) paint.Color {
		for _, fn := range fns {
			c = fn(c, ts, x, y)
		}
		return c
	}
}
