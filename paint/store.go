package paint

import (
	"fmt"
	"strings"
	"time"
)

// LayerStore is the per-cell composition strategy.  Every cell of a Grid
// holds one, all of the same Style.
type LayerStore interface {
	// Add applies l to the cell and reports whether anything changed.
	Add(l *Layer) bool
	// Erase removes a layer from the cell and reports whether anything
	// changed.  What gets removed depends on the variant.
	Erase(l *Layer) bool
	// Special runs the variant's special effect.
	Special()
	// Color composes the cell's layers over start.  It does not modify
	// the store.
	Color(start Color, ts time.Duration, x, y int) Color
}

// specialRecorder is implemented by stores whose special effect is not its
// own inverse.  specialLayer runs the effect and returns the layer it
// disabled, or nil if nothing changed.
type specialRecorder interface {
	specialLayer() *Layer
}

// Style selects the LayerStore variant of a grid.
type Style int

const (
	StyleSet Style = iota
	StyleAdditive
	StyleSequence
)

var styleNames = [...]string{
	StyleSet:      "set",
	StyleAdditive: "additive",
	StyleSequence: "sequence",
}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// Next returns the style that follows s in the mode cycle
// set → additive → sequence → set.
func (s Style) Next() Style {
	return (s + 1) % Style(len(styleNames))
}

// ParseStyle accepts the names printed by String, case-insensitively, plus
// the short forms "add" and "seq".
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "set":
		return StyleSet, nil
	case "additive", "add":
		return StyleAdditive, nil
	case "sequence", "seq":
		return StyleSequence, nil
	}
	return 0, fmt.Errorf("unknown draw style %q", name)
}

// newStore returns an empty store of the given style.
func newStore(s Style, catalog Catalog) LayerStore {
	switch s {
	case StyleAdditive:
		return NewAdditiveStore(catalog)
	case StyleSequence:
		return NewSequenceStore(catalog)
	default:
		return NewSetStore()
	}
}
